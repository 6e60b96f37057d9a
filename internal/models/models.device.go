// FilePath: internal/models/models.device.go
package models

import (
	"database/sql"
	"time"
)

// Device is a paired sensor unit. UserLogin is set once an owner claims
// the device; freshly paired devices are unowned.
type Device struct {
	DeviceID  string         `json:"device_id" db:"device_id"`
	Name      string         `json:"name" db:"name"`
	UserLogin sql.NullString `json:"user_login,omitempty" db:"user_login" readxs:"user,operator,system" writexs:"operator,system"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at" readxs:"user,operator,system"`
}
