// Package tcpserver manages server assembly and the connection listener.
package tcpserver

import (
	"context"
	"database/sql"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/go-maxim/linebank/internal/accountrepo"
	"github.com/go-maxim/linebank/internal/accountservice"
	"github.com/go-maxim/linebank/internal/tcpdelivery"
	"github.com/go-maxim/linebank/internal/transferrepo"
	"github.com/go-maxim/linebank/internal/transferservice"
	"github.com/go-maxim/linebank/pkg/configpkg"
	"github.com/go-maxim/linebank/pkg/logpkg"
)

// Server holds the db connection, the protocol handler and configuration.
type Server struct {
	DB      *sql.DB
	Config  configpkg.Config
	Handler *tcpdelivery.Handler

	logger   zerolog.Logger
	sessions *semaphore.Weighted
}

// New creates a Server with instantiated domains and ensures the ledger schema exists.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	accountRepo := accountrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn)

	ctx := logger.WithContext(context.Background())

	if err := accountRepo.CreateSchema(ctx); err != nil {
		return nil, err
	}

	if err := transferRepo.CreateSchema(ctx); err != nil {
		return nil, err
	}

	accountService := accountservice.New(accountRepo)
	transferService := transferservice.New(transferRepo)

	handler := tcpdelivery.NewHandler(accountService, transferService)

	maxSessions := config.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1024
	}

	server := &Server{
		DB:       conn,
		Config:   config,
		Handler:  handler,
		logger:   logger,
		sessions: semaphore.NewWeighted(maxSessions),
	}

	return server, nil
}

// Run listens on the configured address and serves connections until
// the listener fails.
func (s *Server) Run() error {
	lis, err := net.Listen("tcp", s.Config.ServerAddress)
	if err != nil {
		return err
	}

	s.logger.Info().Str("address", lis.Addr().String()).Msg("server listening")

	return s.Serve(lis)
}

// Serve accepts connections from lis indefinitely, one session goroutine
// per connection. A session failure never terminates the accept loop.
func (s *Server) Serve(lis net.Listener) error {
	for {
		// Admission bound: the accept loop waits for a free session slot
		// instead of spawning without limit.
		if err := s.sessions.Acquire(context.Background(), 1); err != nil {
			return err
		}

		conn, err := lis.Accept()
		if err != nil {
			s.sessions.Release(1)

			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				s.logger.Warn().Err(err).Msg("transient accept error")
				continue
			}

			return err
		}

		go func() {
			defer s.sessions.Release(1)
			s.serveSession(conn)
		}()
	}
}

// serveSession owns one connection end-to-end. Panics and I/O errors are
// contained to the session.
func (s *Server) serveSession(conn net.Conn) {
	logger := logpkg.WithSession(s.logger, uuid.NewString(), conn.RemoteAddr().String())

	defer func() {
		if panicVal := recover(); panicVal != nil {
			logger.Error().Msgf("session panic: %v", panicVal)
		}

		if err := conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("cannot close connection")
		}
	}()

	ctx := logger.WithContext(context.Background())

	if err := s.Handler.ServeConn(ctx, conn); err != nil {
		logger.Info().Err(err).Msg("session closed with error")
		return
	}

	logger.Debug().Msg("session closed")
}
