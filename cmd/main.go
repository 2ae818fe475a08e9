// Package main starts the bank wire protocol server.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/go-maxim/linebank/cmd/tcpserver"
	"github.com/go-maxim/linebank/pkg/configpkg"
	"github.com/go-maxim/linebank/pkg/dbpkg"
	"github.com/go-maxim/linebank/pkg/logpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := logpkg.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	server, err := tcpserver.New(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	logger.Info().Msg("BANK WIRE SERVER HAS STARTED")

	err = server.Run()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
