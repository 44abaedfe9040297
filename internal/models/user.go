package models

import "time"

// User is the local identity record reconciled from the OAuth provider.
// Email and ID are fixed at creation; later logins only refresh the
// provider-owned fields.
type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Email      string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Name       string    `json:"name" gorm:"type:varchar(255)"`
	ExternalID string    `json:"-" gorm:"column:google_id;index;type:varchar(255)"`
	AvatarURL  *string   `json:"avatar" gorm:"column:avatar;type:text"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserProfile is the read-only projection of a User handed to clients.
type UserProfile struct {
	ID     uint    `json:"id"`
	Email  string  `json:"email"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// Profile returns the client projection of u.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Avatar: u.AvatarURL,
	}
}
