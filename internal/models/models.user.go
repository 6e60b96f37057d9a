// FilePath: internal/models/models.user.go
package models

import "time"

// User owns zero or more devices. Identity is the login alone; there is
// no password, trust is established through device pairing and token
// issuance.
type User struct {
	UserLogin string    `json:"user_login" db:"user_login"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
