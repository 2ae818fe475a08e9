// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/go-maxim/linebank/internal/domain"
	"github.com/go-maxim/linebank/pkg/errorspkg"
	"github.com/go-maxim/linebank/pkg/passpkg"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, username, hashedPassword string) (domain.Account, error)
	Get(ctx context.Context, username string) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account business logic.
func New(ar Repo) *Service {
	return &Service{
		repo: ar,
	}
}

// NewAccountWithoutPassword returns account with removed sensitive data.
func NewAccountWithoutPassword(a domain.Account) domain.AccountWithoutPassword {
	return domain.AccountWithoutPassword{
		Username:  a.Username,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

// Register hashes the password and creates the account with a zero balance.
func (s *Service) Register(ctx context.Context, username, password string) (domain.AccountWithoutPassword, error) {
	l := zerolog.Ctx(ctx)

	var result domain.AccountWithoutPassword

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	gotAccount, err := s.repo.Create(ctx, username, hashedPassword)
	if err != nil {
		return result, err
	}

	result = NewAccountWithoutPassword(gotAccount)

	return result, nil
}

// CheckPassword checks if the password is valid for the given username.
func (s *Service) CheckPassword(ctx context.Context, username, password string) (domain.AccountWithoutPassword, error) {
	l := zerolog.Ctx(ctx)

	var response domain.AccountWithoutPassword

	gotAccount, err := s.repo.Get(ctx, username)
	if err != nil {
		return response, err
	}

	err = passpkg.Check(password, gotAccount.HashedPassword)
	if err != nil {
		l.Warn().Err(err).Send()
		return response, domain.ErrWrongPassword
	}

	response = NewAccountWithoutPassword(gotAccount)

	return response, nil
}

// Get returns the account snapshot without sensitive data.
func (s *Service) Get(ctx context.Context, username string) (domain.AccountWithoutPassword, error) {
	gotAccount, err := s.repo.Get(ctx, username)
	if err != nil {
		return domain.AccountWithoutPassword{}, err
	}

	return NewAccountWithoutPassword(gotAccount), nil
}
