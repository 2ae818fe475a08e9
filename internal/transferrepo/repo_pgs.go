// Package transferrepo manages repository layer of transfers.
package transferrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-maxim/linebank/internal/accountrepo"
	"github.com/go-maxim/linebank/internal/domain"
	"github.com/go-maxim/linebank/pkg/dbpkg"
	"github.com/go-maxim/linebank/pkg/errorspkg"
)

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns transfer RepoPGS scoped to an already open transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns transfer RepoPGS with a connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const createTableQuery = `
CREATE TABLE IF NOT EXISTS transfers (
    id bigserial PRIMARY KEY,
    sender varchar NOT NULL REFERENCES accounts (username),
    recipient varchar NOT NULL REFERENCES accounts (username),
    amount decimal NOT NULL,
    created_at timestamptz NOT NULL DEFAULT (now()),
    CONSTRAINT transfers_amount_check CHECK (amount > 0)
)
`

// CreateSchema creates the transfers table if it does not exist yet.
func (r *RepoPGS) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createTableQuery)
	return err
}

const createQuery = `
INSERT INTO
    transfers (sender, recipient, amount)
VALUES
    ($1, $2, $3)
RETURNING id, sender, recipient, amount, created_at
`

// Create creates the transfer record and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransferParams) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, arg.Sender, arg.Recipient, arg.Amount)

	var t domain.Transfer

	err := row.Scan(
		&t.ID,
		&t.Sender,
		&t.Recipient,
		&t.Amount,
		&t.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transfers_sender_fkey":
				return t, domain.ErrAccountNotFound
			case "transfers_recipient_fkey":
				return t, domain.ErrRecipientNotFound
			case "transfers_amount_check":
				return t, domain.ErrInvalidAmount
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listBySender = `
SELECT
	id, sender, recipient, amount, created_at
FROM transfers
WHERE sender = $1
ORDER BY created_at DESC, id DESC
`

// ListBySender returns the outgoing transfers of the given account,
// most recent first.
func (r *RepoPGS) ListBySender(ctx context.Context, sender string) ([]domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listBySender, sender)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transfer{}

	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(
			&t.ID,
			&t.Sender,
			&t.Recipient,
			&t.Amount,
			&t.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

// Transfer moves money between two accounts.
//
// It locks both account rows, checks the sender's balance, updates both
// balances and creates the transfer record within a single db transaction.
// Either all three writes commit or none of them is ever observable.
func (r *RepoPGS) Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	accountRepo := accountrepo.NewRepoPGS(tx)
	transferRepo := NewTxRepoPGS(tx)

	// To avoid deadlocks lock rows in consistent username order.
	first, second := arg.Sender, arg.Recipient
	if second < first {
		first, second = second, first
	}

	firstAccount, err := accountRepo.GetForUpdate(ctx, first)
	if err != nil {
		if err == domain.ErrAccountNotFound && first == arg.Recipient {
			return result, domain.ErrRecipientNotFound
		}

		return result, err
	}

	secondAccount, err := accountRepo.GetForUpdate(ctx, second)
	if err != nil {
		if err == domain.ErrAccountNotFound && second == arg.Recipient {
			return result, domain.ErrRecipientNotFound
		}

		return result, err
	}

	sender := firstAccount
	if arg.Sender == second {
		sender = secondAccount
	}

	senderBalance, err := decimal.NewFromString(sender.Balance)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	amount, err := decimal.NewFromString(arg.Amount)
	if err != nil {
		l.Error().Err(err).Send()
		return result, domain.ErrInvalidAmount
	}

	if senderBalance.LessThan(amount) {
		return result, domain.ErrInsufficientBalance
	}

	result.Sender, err = accountRepo.AddBalance(ctx, amount.Neg().String(), arg.Sender)
	if err != nil {
		return result, err
	}

	result.Recipient, err = accountRepo.AddBalance(ctx, amount.String(), arg.Recipient)
	if err != nil {
		return result, err
	}

	result.Transfer, err = transferRepo.Create(ctx, arg)
	if err != nil {
		return result, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferTxResult{}, errorspkg.ErrInternal
	}

	return result, nil
}
