// Package domain holds the records exchanged between the API and storage.
package domain

import "time"

// User is a stored user record. ID and CreatedAt are assigned by storage.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SeedUsers are the example records inserted when the users table is bootstrapped.
var SeedUsers = []User{
	{Name: "John Doe", Email: "john@example.com"},
	{Name: "Jane Smith", Email: "jane@example.com"},
}
