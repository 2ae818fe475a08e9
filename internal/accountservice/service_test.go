package accountservice

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/go-maxim/linebank/internal/domain"
	"github.com/go-maxim/linebank/pkg/errorspkg"
	"github.com/go-maxim/linebank/pkg/passpkg"
	"github.com/go-maxim/linebank/pkg/randompkg"
)

func TestRegister(t *testing.T) {
	testUsername := randompkg.Username()
	testPassword := randompkg.String(10)

	testCases := []struct {
		name          string
		buildStubs    func(repo *MockRepo)
		checkResponse func(res domain.AccountWithoutPassword, err error)
	}{
		{
			name: "ErrUsernameAlreadyExists",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Create(gomock.Any(), gomock.Eq(testUsername), gomock.Any()).
					Times(1).
					Return(domain.Account{}, domain.ErrUsernameAlreadyExists)
			},
			checkResponse: func(res domain.AccountWithoutPassword, err error) {
				require.Empty(t, res)
				require.EqualError(t, err, domain.ErrUsernameAlreadyExists.Error())
			},
		},
		{
			name: "InternalRepoError",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Create(gomock.Any(), gomock.Eq(testUsername), gomock.Any()).
					Times(1).
					Return(domain.Account{}, errorspkg.ErrInternal)
			},
			checkResponse: func(res domain.AccountWithoutPassword, err error) {
				require.Empty(t, res)
				require.EqualError(t, err, errorspkg.ErrInternal.Error())
			},
		},
		{
			name: "OK",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Create(gomock.Any(), gomock.Eq(testUsername), gomock.Any()).
					Times(1).
					DoAndReturn(func(_ context.Context, username, hashedPassword string) (domain.Account, error) {
						require.NoError(t, passpkg.Check(testPassword, hashedPassword))

						return domain.Account{
							Username:       username,
							HashedPassword: hashedPassword,
							Balance:        "0",
							CreatedAt:      time.Now().Truncate(time.Second).UTC(),
						}, nil
					})
			},
			checkResponse: func(res domain.AccountWithoutPassword, err error) {
				require.NoError(t, err)
				require.Equal(t, testUsername, res.Username)
				require.Equal(t, "0", res.Balance)
				require.NotZero(t, res.CreatedAt)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			accountRepo := NewMockRepo(ctrl)
			accountService := New(accountRepo)

			tc.buildStubs(accountRepo)

			tc.checkResponse(accountService.Register(context.Background(), testUsername, testPassword))
		})
	}
}

func TestCheckPassword(t *testing.T) {
	testUsername := randompkg.Username()
	testPassword := randompkg.String(10)

	testHashedPassword, err := passpkg.Hash(testPassword)
	require.NoError(t, err)

	testAccount := domain.Account{
		Username:       testUsername,
		HashedPassword: testHashedPassword,
		Balance:        "100",
		CreatedAt:      time.Now().Truncate(time.Second).UTC(),
	}

	testCases := []struct {
		name          string
		password      string
		buildStubs    func(repo *MockRepo)
		checkResponse func(res domain.AccountWithoutPassword, err error)
	}{
		{
			name:     "ErrAccountNotFound",
			password: testPassword,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(testUsername)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			checkResponse: func(res domain.AccountWithoutPassword, err error) {
				require.Empty(t, res)
				require.EqualError(t, err, domain.ErrAccountNotFound.Error())
			},
		},
		{
			name:     "ErrWrongPassword",
			password: "incorrect",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(testUsername)).
					Times(1).
					Return(testAccount, nil)
			},
			checkResponse: func(res domain.AccountWithoutPassword, err error) {
				require.Empty(t, res)
				require.EqualError(t, err, domain.ErrWrongPassword.Error())
			},
		},
		{
			name:     "OK",
			password: testPassword,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(testUsername)).
					Times(1).
					Return(testAccount, nil)
			},
			checkResponse: func(res domain.AccountWithoutPassword, err error) {
				require.NoError(t, err)
				require.Equal(t, NewAccountWithoutPassword(testAccount), res)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			accountRepo := NewMockRepo(ctrl)
			accountService := New(accountRepo)

			tc.buildStubs(accountRepo)

			tc.checkResponse(accountService.CheckPassword(context.Background(), testUsername, tc.password))
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	testAccount := domain.Account{
		Username:       randompkg.Username(),
		HashedPassword: randompkg.String(60),
		Balance:        randompkg.MoneyAmountBetween(100, 1_000),
		CreatedAt:      time.Now().Truncate(time.Second).UTC(),
	}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accountRepo := NewMockRepo(ctrl)
	accountService := New(accountRepo)

	accountRepo.EXPECT().
		Get(gomock.Any(), gomock.Eq(testAccount.Username)).
		Times(1).
		Return(testAccount, nil)

	res, err := accountService.Get(context.Background(), testAccount.Username)
	require.NoError(t, err)
	require.Equal(t, NewAccountWithoutPassword(testAccount), res)
}
