package storage

import "time"

// User represents an account that can authenticate and own tasks.
// Password carries the bcrypt hash once the user is persisted; on input
// paths (CreateUser) it carries the plaintext to be hashed.
type User struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the representation safe to return from the API.
type PublicUser struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips credential material from the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username:  u.Username,
		Email:     u.Email,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
