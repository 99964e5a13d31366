// Package service implements the session lifecycle: registration, login,
// refresh rotation, and logout. It owns the mapping from storage and
// verification failures onto the error taxonomy the HTTP layer exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/avolkov/sessiond/internal/model"
	q "github.com/avolkov/sessiond/internal/queue"
	"github.com/avolkov/sessiond/internal/repository"
	"github.com/avolkov/sessiond/internal/token"
	"github.com/avolkov/sessiond/internal/utils"
)

var (
	// ErrInvalidCredentials covers every authentication failure the caller
	// is not entitled to distinguish: unknown email, wrong password,
	// deactivated account, or a refresh token that fails verification.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAlreadyExists means the registration email is taken.
	ErrAlreadyExists = errors.New("account already exists")
	// ErrSessionExpired means the subject has no active refresh session;
	// the client must log in again.
	ErrSessionExpired = errors.New("session expired")
)

// UserDirectory is the account lookup surface the coordinator needs.
// *repository.UserRepo satisfies it.
type UserDirectory interface {
	Create(ctx context.Context, email, password string, roles []string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is the refresh-session and revocation surface the coordinator
// needs. *repository.TokenRepo satisfies it.
type TokenStore interface {
	PutRefresh(ctx context.Context, subjectID, hash string, ttl time.Duration) error
	GetRefresh(ctx context.Context, subjectID string) (string, error)
	DeleteRefresh(ctx context.Context, subjectID string) error
	Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Session is the result of a successful lifecycle operation: the resolved
// account plus a freshly minted token pair.
type Session struct {
	User model.User
	Pair token.Pair
}

// SessionService coordinates the issuer, the user directory and the token
// store. Each subject holds at most one active refresh session: every issuance
// overwrites the previous session's stored hash.
type SessionService struct {
	users   UserDirectory
	tokens  TokenStore
	issuer  *token.Issuer
	cost    int
	broker  string
	publish func(ctx context.Context, url string, event q.AuthEvent) error
}

// NewSessionService wires the coordinator. brokerURL may be empty, which
// disables event publishing entirely.
func NewSessionService(users UserDirectory, tokens TokenStore, issuer *token.Issuer, bcryptCost int, brokerURL string) *SessionService {
	return &SessionService{
		users:   users,
		tokens:  tokens,
		issuer:  issuer,
		cost:    bcryptCost,
		broker:  brokerURL,
		publish: PublishAuthEvent,
	}
}

// Register creates the account and immediately opens a session for it.
func (s *SessionService) Register(ctx context.Context, email, password string, roles []string) (Session, error) {
	u, err := s.users.Create(ctx, email, password, roles)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, ErrAlreadyExists
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	sess, err := s.issueFor(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, q.EventRegistered, subjectString(u.ID), u.Email, sess.Pair.TokenID)
	return sess, nil
}

// Login verifies the password and opens a fresh session, displacing any
// session the subject already had.
func (s *SessionService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	sess, err := s.issueFor(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, q.EventLoggedIn, subjectString(u.ID), u.Email, sess.Pair.TokenID)
	return sess, nil
}

// Refresh rotates the session: it verifies the presented refresh token
// against the stored hash and, on success, replaces it with a new pair. The
// presented token is unusable afterwards regardless of who wins a concurrent
// race, because the stored hash only ever matches the latest issuance.
func (s *SessionService) Refresh(ctx context.Context, rawRefresh string) (Session, error) {
	subjectID, err := s.issuer.ParseRefresh(rawRefresh)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}

	hash, err := s.tokens.GetRefresh(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshNotFound) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !utils.VerifyRefresh(hash, rawRefresh) {
		// Structurally valid token that no longer matches the stored
		// session: already rotated or superseded by a newer login.
		return Session{}, ErrInvalidCredentials
	}

	uid, err := strconv.ParseUint(subjectID, 10, 64)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return Session{}, ErrInvalidCredentials
	}

	sess, err := s.issueFor(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, q.EventRefreshed, subjectString(u.ID), u.Email, sess.Pair.TokenID)
	return sess, nil
}

// Logout revokes the access token and removes the refresh session. It is
// idempotent: logging out an already-closed session succeeds. expiresAt is
// the access token's expiry when the caller knows it; the zero time falls
// back to the full configured access lifetime as a safe upper bound.
func (s *SessionService) Logout(ctx context.Context, subjectID, tokenID string, expiresAt time.Time) error {
	ttl := s.issuer.AccessTTL()
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
	}
	if tokenID != "" {
		if err := s.tokens.Blacklist(ctx, tokenID, ttl); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	if err := s.tokens.DeleteRefresh(ctx, subjectID); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	s.emit(ctx, q.EventLoggedOut, subjectID, "", tokenID)
	return nil
}

// issueFor mints a pair and persists the refresh hash, overwriting whatever
// session the subject held before. The stored entry expires together with the
// refresh token itself.
func (s *SessionService) issueFor(ctx context.Context, u model.User) (Session, error) {
	pair, err := s.issuer.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue tokens: %w", err)
	}
	hash, err := utils.HashRefresh(pair.RefreshToken, s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash refresh: %w", err)
	}
	if err := s.tokens.PutRefresh(ctx, subjectString(u.ID), hash, time.Until(pair.RefreshExpiresAt)); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return Session{User: u, Pair: pair}, nil
}

func subjectString(id uint64) string { return strconv.FormatUint(id, 10) }

// emit publishes an auth event when a broker is configured. Failures are
// logged and swallowed; eventing never blocks a lifecycle operation.
func (s *SessionService) emit(ctx context.Context, eventType, subjectID, email, tokenID string) {
	if s.broker == "" || s.publish == nil {
		return
	}
	ev := q.AuthEvent{
		Type:      eventType,
		SubjectID: subjectID,
		Email:     email,
		TokenID:   tokenID,
		At:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publish(ctx, s.broker, ev); err != nil {
		log.Printf("auth event %s not published: %v", eventType, err)
	}
}
