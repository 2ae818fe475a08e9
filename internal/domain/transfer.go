package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidAmount indicates that the amount is not a valid positive decimal.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNegativeAmount indicates a negative amount.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrSelfTransfer indicates that the sender and the recipient are the same account.
	ErrSelfTransfer = errors.New("self transfer")
	// ErrInsufficientBalance indicates that the sender does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRecipientNotFound indicates that the recipient account is not found.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrTransferNotFound indicates that the transfer is not found.
	ErrTransferNotFound = errors.New("transfer not found")
)

// Transfer is an immutable audit record of a completed funds movement.
// It exists if and only if the matching debit and credit both committed.
type Transfer struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"` // must be positive
	CreatedAt time.Time `json:"created_at"`
}

// CreateTransferParams is the input data for the transfer transaction.
type CreateTransferParams struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// TransferTxResult is the result of the transfer transaction.
type TransferTxResult struct {
	Transfer  Transfer `json:"transfer"`
	Sender    Account  `json:"sender"`
	Recipient Account  `json:"recipient"`
}
