package auth

import "time"

// User represents an application account able to hold sessions.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
