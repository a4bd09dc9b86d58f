package models

import "time"

// User is a row of the users table. Password holds the bcrypt hash and is never serialized.
type User struct {
	ID         int       `json:"id"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	ExternalID string    `json:"externalId"`
	Email      string    `json:"email"`
	Mobile     string    `json:"mobile"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SignupUser is the public shape returned after signup.
type SignupUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// LoginUser is the public shape returned after login.
type LoginUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}
