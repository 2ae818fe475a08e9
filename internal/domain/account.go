// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrUsernameAlreadyExists indicates that the account with the given username already exists.
	ErrUsernameAlreadyExists = errors.New("username already exists")
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrWrongPassword indicates the wrong password for the given account.
	ErrWrongPassword = errors.New("wrong password")
)

// Account holds a registered user and their current balance.
type Account struct {
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashed_password"`
	Balance        string    `json:"balance"` // never negative
	CreatedAt      time.Time `json:"created_at"`
}

// AccountWithoutPassword is Account data excluding credential data.
type AccountWithoutPassword struct {
	Username  string    `json:"username"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
