// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"

	"github.com/go-maxim/linebank/internal/accountrepo"
	"github.com/go-maxim/linebank/internal/domain"
	"github.com/go-maxim/linebank/internal/transferrepo"
	"github.com/go-maxim/linebank/pkg/configpkg"
	"github.com/go-maxim/linebank/pkg/dbpkg"
	"github.com/go-maxim/linebank/pkg/passpkg"
	"github.com/go-maxim/linebank/pkg/randompkg"
)

// SetupDB sets up a database connection for testing and registers cleanup
// that flushes all tables once the test is done.
func SetupDB(t *testing.T, configPath string) *sql.DB {
	t.Helper()

	config, err := configpkg.Load(configPath)
	if err != nil {
		t.Fatalf("configpkg.Load(%q) returned error: %v", configPath, err)
	}

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	ctx := context.Background()

	if err := accountrepo.NewRepoPGS(db).CreateSchema(ctx); err != nil {
		t.Fatalf("accounts schema creation failed. err: %v", err)
	}

	if err := transferrepo.NewRepoPGS(db).CreateSchema(ctx); err != nil {
		t.Fatalf("transfers schema creation failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// Flush flushes all db tables without dropping them.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec(`TRUNCATE TABLE accounts CASCADE`); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SeedAccount creates a random account with a zero balance.
func SeedAccount(t *testing.T, db *sql.DB) domain.Account {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(10))
	if err != nil {
		t.Fatalf("passpkg.Hash() returned error: %v", err)
	}

	account, err := accountrepo.NewRepoPGS(db).Create(context.Background(), randompkg.Username(), hashedPassword)
	if err != nil {
		t.Fatalf("cannot seed account: %v", err)
	}

	return account
}

// SeedAccountWithBalance creates a random account and sets its balance at store level.
func SeedAccountWithBalance(t *testing.T, db *sql.DB, balance string) domain.Account {
	t.Helper()

	account := SeedAccount(t, db)

	account, err := accountrepo.NewRepoPGS(db).SetBalance(context.Background(), balance, account.Username)
	if err != nil {
		t.Fatalf("cannot set seeded balance: %v", err)
	}

	return account
}
