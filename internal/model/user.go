package model

import "time"

// User represents a customer who signed in with a one-time code.  Users are
// created on first login; the name defaults to the local part of the email.
//
// Fields:
//
//	ID        – primary key identifier of the user.
//	Email     – unique, normalized email address.
//	Name      – display name.
//	CreatedAt – timestamp of creation.
type User struct {
	ID        uint64    `json:"id"`         // users.id
	Email     string    `json:"email"`      // users.email
	Name      string    `json:"name"`       // users.name
	CreatedAt time.Time `json:"created_at"` // users.created_at
}
