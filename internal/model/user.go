package model

import "time"

// User represents a subject record as stored in the `users` table. The core
// engine treats it as read-mostly input owned by the user directory; only the
// directory creates or mutates rows.
//
// Fields:
//
//	ID           – primary key identifier of the subject.
//	Email        – unique email address, stored lowercased.
//	PasswordHash – bcrypt hashed password.
//	Roles        – role names carried into access-token claims; order is irrelevant.
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
