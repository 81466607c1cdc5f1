// Package model defines database models
package model

import "time"

// Account is keyed by email. Lookups compare the email case-insensitively, the
// stored value keeps whatever casing the user registered with.
type Account struct {
	ID           string `gorm:"primaryKey" bson:"_id" json:"_id"`
	FirstName    string `gorm:"not null" bson:"firstName" json:"firstName"`
	LastName     string `bson:"lastName" json:"lastName"`
	Email        string `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string `gorm:"not null" bson:"password" json:"-"`
	IsVerified   bool   `gorm:"default:false" bson:"isVerified" json:"isVerified"`

	// Once verified the code is "" and the expiry is the verification instant,
	// so the pair can never match again.
	VerifyCode       string    `bson:"verifyCode" json:"-"`
	VerifyCodeExpiry time.Time `gorm:"not null" bson:"verifyCodeExpiry" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
