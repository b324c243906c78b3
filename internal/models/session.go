package models

import "time"

// Session is a server-side login session. Rows are owned entirely by the
// auth layer; the storage core never reads or writes them.
type Session struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
