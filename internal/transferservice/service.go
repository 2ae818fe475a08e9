// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-maxim/linebank/internal/domain"
)

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferTxResult, error)
	ListBySender(ctx context.Context, sender string) ([]domain.Transfer, error)
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo Repo
}

// New returns transfer service struct to manage transfer business logic.
func New(tr Repo) *Service {
	return &Service{
		repo: tr,
	}
}

func validRequest(ctx context.Context, arg domain.CreateTransferParams) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	amount, err := decimal.NewFromString(arg.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		return amount, domain.ErrInvalidAmount
	}

	if amount.IsNegative() {
		return amount, domain.ErrNegativeAmount
	}

	if amount.IsZero() {
		return amount, domain.ErrInvalidAmount
	}

	if arg.Sender == arg.Recipient {
		return amount, domain.ErrSelfTransfer
	}

	return amount, nil
}

// Transfer checks if the transfer request is valid and then executes the transfer.
func (s *Service) Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferTxResult, error) {
	amount, err := validRequest(ctx, arg)
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	// Canonical decimal form: strips an explicit plus sign and other
	// syntax the store does not accept.
	arg.Amount = amount.String()

	result, err := s.repo.Transfer(ctx, arg)
	if err != nil {
		return result, err
	}

	return result, nil
}

// History returns the account's outgoing transfers, most recent first.
func (s *Service) History(ctx context.Context, username string) ([]domain.Transfer, error) {
	return s.repo.ListBySender(ctx, username)
}
