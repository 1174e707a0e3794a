package model

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

func NewUser(id, username, email, fullName, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		IsActive:     true,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}
