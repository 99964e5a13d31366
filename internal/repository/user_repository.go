package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avolkov/sessiond/internal/model"
	"github.com/avolkov/sessiond/internal/utils"
)

// UserRepo is the user directory collaborator: a MySQL-backed store of
// subjects. The session engine only reads it (keyed by id or email) except
// for registration, which creates a row.
type UserRepo struct {
	DB   *sql.DB
	Cost int // bcrypt cost for password hashing at creation
}

func NewUserRepo(db *sql.DB, bcryptCost int) *UserRepo {
	return &UserRepo{DB: db, Cost: bcryptCost}
}

// Create inserts a subject with a hashed password and returns the stored
// record. Duplicate emails yield ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password string, roles []string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, r.Cost)
	if err != nil {
		return model.User{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, roles) VALUES (?,?,?)",
		email, hash, joinRoles(roles))
	if err != nil {
		// 1062 = ER_DUP_ENTRY on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a subject by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,roles,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// GetByID fetches a subject by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,roles,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u     model.User
		roles string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Roles = splitRoles(roles)
	return u, nil
}

// Roles are persisted as a comma-separated set in a single column; the set
// is small and order-irrelevant, so a join table would buy nothing here.

func joinRoles(roles []string) string {
	cleaned := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.TrimSpace(role); role != "" {
			cleaned = append(cleaned, role)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
