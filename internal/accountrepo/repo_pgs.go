// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-maxim/linebank/internal/domain"
	"github.com/go-maxim/linebank/pkg/dbpkg"
	"github.com/go-maxim/linebank/pkg/errorspkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createTableQuery = `
CREATE TABLE IF NOT EXISTS accounts (
    username varchar PRIMARY KEY,
    hashed_password varchar NOT NULL,
    balance decimal NOT NULL DEFAULT 0,
    created_at timestamptz NOT NULL DEFAULT (now()),
    CONSTRAINT accounts_balance_check CHECK (balance >= 0)
)
`

// CreateSchema creates the accounts table if it does not exist yet.
func (r *RepoPGS) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createTableQuery)
	return err
}

const createQuery = `
INSERT INTO
    accounts (username, hashed_password)
VALUES
    ($1, $2)
RETURNING username, hashed_password, balance, created_at
`

// Create creates the account with a zero balance and then returns it.
func (r *RepoPGS) Create(ctx context.Context, username, hashedPassword string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, username, hashedPassword)

	var a domain.Account

	err := row.Scan(
		&a.Username,
		&a.HashedPassword,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == "accounts_pkey" {
				return a, domain.ErrUsernameAlreadyExists
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	username, hashed_password, balance, created_at
FROM accounts
WHERE username = $1
`

// Get returns the account with the given username.
func (r *RepoPGS) Get(ctx context.Context, username string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, username)

	var a domain.Account

	err := row.Scan(
		&a.Username,
		&a.HashedPassword,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getForUpdateQuery = `
SELECT
	username, hashed_password, balance, created_at
FROM accounts
WHERE username = $1
FOR UPDATE
`

// GetForUpdate returns the account with the given username locking its row
// until the surrounding transaction completes.
func (r *RepoPGS) GetForUpdate(ctx context.Context, username string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getForUpdateQuery, username)

	var a domain.Account

	err := row.Scan(
		&a.Username,
		&a.HashedPassword,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const addBalanceQuery = `
UPDATE accounts
SET balance = balance + $1
WHERE username = $2
RETURNING username, hashed_password, balance, created_at
`

// AddBalance changes the account's balance and returns the changed account.
// A negative amount debits the account.
func (r *RepoPGS) AddBalance(ctx context.Context, amount, username string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, addBalanceQuery, amount, username)

	var a domain.Account

	err := row.Scan(
		&a.Username,
		&a.HashedPassword,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, domain.ErrInsufficientBalance
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const setBalanceQuery = `
UPDATE accounts
SET balance = $1
WHERE username = $2
RETURNING username, hashed_password, balance, created_at
`

// SetBalance overwrites the account's balance. It is a store-level
// maintenance operation and is not reachable from the wire protocol.
func (r *RepoPGS) SetBalance(ctx context.Context, balance, username string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, setBalanceQuery, balance, username)

	var a domain.Account

	err := row.Scan(
		&a.Username,
		&a.HashedPassword,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, domain.ErrNegativeAmount
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}
