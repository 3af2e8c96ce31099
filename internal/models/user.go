package models

import "time"

type User struct {
	ID       string
	Username string
	Email    string
	// Password holds the argon2id hash, never the plaintext.
	Password  string
	IsActive  bool
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
