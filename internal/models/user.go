package models

import "time"

// User is an identity record mirrored from the external identity provider.
// The ID is the provider's subject claim; rows are upserted on every
// successful login, so all fields track the provider's latest values.
type User struct {
	ID              string  `gorm:"primaryKey" json:"id"`
	Email           *string `gorm:"uniqueIndex" json:"email"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	ProfileImageURL *string `json:"profile_image_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
