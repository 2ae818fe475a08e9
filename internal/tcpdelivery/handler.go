// Package tcpdelivery manages the wire protocol delivery layer.
//
// A session serves exactly one newline-delimited command per connection:
// the command token line followed by a fixed number of argument lines.
package tcpdelivery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-maxim/linebank/internal/domain"
)

// Reply lines of the wire protocol.
const (
	ReplySuccess        = "SUCCESS"
	ReplyFailure        = "FAILURE"
	ReplyUnknownCommand = "UNKNOWN_COMMAND"
)

// Command tokens of the wire protocol.
const (
	CommandRegister = "REGISTER"
	CommandLogin    = "LOGIN"
	CommandTransfer = "TRANSFER"
)

// maxLineLength bounds a single request line.
const maxLineLength = 1024

// timeLayout is the timestamp format of history lines. Old clients parse
// the reply stream positionally, so the textual form stays stable.
const timeLayout = "2006-01-02 15:04:05"

// ErrMalformedRequest indicates a protocol error in the inbound line sequence.
var ErrMalformedRequest = errors.New("malformed request")

// AccountService provides the account business logic needed by the delivery layer.
//
//go:generate mockgen -source handler.go -destination handler_mock.go -package tcpdelivery
type AccountService interface {
	Register(ctx context.Context, username, password string) (domain.AccountWithoutPassword, error)
	CheckPassword(ctx context.Context, username, password string) (domain.AccountWithoutPassword, error)
}

// TransferService provides the transfer business logic needed by the delivery layer.
//
//go:generate mockgen -source handler.go -destination handler_mock.go -package tcpdelivery
type TransferService interface {
	Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferTxResult, error)
	History(ctx context.Context, username string) ([]domain.Transfer, error)
}

// Handler facilitates the wire protocol delivery layer logic.
type Handler struct {
	accountService  AccountService
	transferService TransferService
	validate        *validator.Validate
}

// NewHandler returns the wire protocol handler.
func NewHandler(as AccountService, ts TransferService) *Handler {
	return &Handler{
		accountService:  as,
		transferService: ts,
		validate:        validator.New(),
	}
}

// ServeConn reads one command from rw, dispatches it and writes the framed
// reply. It never panics on malformed input; protocol errors are reported
// to the peer as a FAILURE line and end the session.
func (h *Handler) ServeConn(ctx context.Context, rw io.ReadWriter) error {
	l := zerolog.Ctx(ctx)

	r := bufio.NewReader(rw)
	w := bufio.NewWriter(rw)

	command, err := readLine(r)
	if err != nil {
		l.Info().Err(err).Msg("session ended before a command was read")
		return err
	}

	switch command {
	case CommandRegister:
		err = h.register(ctx, r, w)
	case CommandLogin:
		err = h.login(ctx, r, w)
	case CommandTransfer:
		err = h.transfer(ctx, r, w)
	default:
		l.Info().Str("command", command).Msg("unknown command")
		writeLine(w, ReplyUnknownCommand)
	}

	if err != nil {
		l.Info().Err(err).Str("command", command).Msg("session failed")
		writeLine(w, ReplyFailure)
	}

	if err := w.Flush(); err != nil {
		l.Warn().Err(err).Msg("cannot flush reply")
		return err
	}

	return nil
}

func (h *Handler) register(ctx context.Context, r *bufio.Reader, w *bufio.Writer) error {
	username, password, err := h.readCredentials(r)
	if err != nil {
		return err
	}

	if _, err := h.accountService.Register(ctx, username, password); err != nil {
		return err
	}

	writeLine(w, ReplySuccess)

	return nil
}

func (h *Handler) login(ctx context.Context, r *bufio.Reader, w *bufio.Writer) error {
	username, password, err := h.readCredentials(r)
	if err != nil {
		return err
	}

	// Unknown user and wrong password both surface as a bare FAILURE to
	// prevent username enumeration.
	account, err := h.accountService.CheckPassword(ctx, username, password)
	if err != nil {
		return err
	}

	transfers, err := h.transferService.History(ctx, username)
	if err != nil {
		return err
	}

	writeBalanceBlock(w, account.Balance, transfers)

	return nil
}

func (h *Handler) transfer(ctx context.Context, r *bufio.Reader, w *bufio.Writer) error {
	sender, err := h.readArg(r, "required,alphanum")
	if err != nil {
		return err
	}

	recipient, err := h.readArg(r, "required,alphanum")
	if err != nil {
		return err
	}

	amount, err := h.readArg(r, "required")
	if err != nil {
		return err
	}

	arg := domain.CreateTransferParams{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}

	result, err := h.transferService.Transfer(ctx, arg)
	if err != nil {
		return err
	}

	transfers, err := h.transferService.History(ctx, sender)
	if err != nil {
		return err
	}

	writeBalanceBlock(w, result.Sender.Balance, transfers)

	return nil
}

func (h *Handler) readCredentials(r *bufio.Reader) (string, string, error) {
	username, err := h.readArg(r, "required,alphanum")
	if err != nil {
		return "", "", err
	}

	password, err := h.readArg(r, "required")
	if err != nil {
		return "", "", err
	}

	return username, password, nil
}

func (h *Handler) readArg(r *bufio.Reader, tag string) (string, error) {
	arg, err := readLine(r)
	if err != nil {
		return "", ErrMalformedRequest
	}

	if err := h.validate.Var(arg, tag); err != nil {
		return "", ErrMalformedRequest
	}

	return arg, nil
}

// writeBalanceBlock writes the success reply shared by LOGIN and TRANSFER:
// SUCCESS, the balance, the history length and that many history lines.
func writeBalanceBlock(w *bufio.Writer, balance string, transfers []domain.Transfer) {
	writeLine(w, ReplySuccess)
	writeLine(w, balance)
	writeLine(w, fmt.Sprintf("%d", len(transfers)))

	for _, t := range transfers {
		writeLine(w, HistoryLine(t))
	}
}

// HistoryLine renders a transfer as a single history reply line.
func HistoryLine(t domain.Transfer) string {
	return fmt.Sprintf("Sent $%s to %s on %s", t.Amount, t.Recipient, t.CreatedAt.Format(timeLayout))
}

func readLine(r *bufio.Reader) (string, error) {
	var raw []byte

	for {
		chunk, err := r.ReadSlice('\n')
		raw = append(raw, chunk...)

		// Bound the buffered line, not just the parsed one: an
		// unterminated line must never grow past the limit in memory.
		if len(raw) > maxLineLength+1 {
			return "", ErrMalformedRequest
		}

		if err == bufio.ErrBufferFull {
			continue
		}

		if err != nil && len(raw) == 0 {
			return "", err
		}

		break
	}

	line := strings.TrimRight(string(raw), "\r\n")
	if line == "" {
		return "", ErrMalformedRequest
	}

	return line, nil
}

func writeLine(w *bufio.Writer, line string) {
	// Writes are buffered; errors surface on the final Flush.
	_, _ = w.WriteString(line)
	_ = w.WriteByte('\n')
}
