package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	pop3client "github.com/knadh/go-pop3"
)

// POP3Dialer opens POP3/POP3S sessions. POP3 has no server-side search, so
// sender and date filtering happen on message headers fetched with TOP.
// Messages are identified by their UIDL value.
type POP3Dialer struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	logger   *slog.Logger
}

// NewPOP3 creates a new POP3 dialer.
func NewPOP3(host string, port int, username, password string, useTLS bool, logger *slog.Logger) *POP3Dialer {
	return &POP3Dialer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		useTLS:   useTLS,
		logger:   logger,
	}
}

// Dial connects and authenticates.
func (d *POP3Dialer) Dial(ctx context.Context) (Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(d.host, strconv.Itoa(d.port))

	client := pop3client.New(pop3client.Opt{
		Host:       d.host,
		Port:       d.port,
		TLSEnabled: d.useTLS,
	})
	conn, err := client.NewConn()
	if err != nil {
		return nil, fmt.Errorf("pop3 connect %s: %w", addr, err)
	}

	if err := conn.Auth(d.username, d.password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("pop3 auth %s: %w", d.username, err)
	}

	d.logger.Debug("pop3 session open", "addr", addr)
	return &pop3Mailbox{conn: conn, logger: d.logger, seq: make(map[string]int)}, nil
}

type pop3Mailbox struct {
	conn   *pop3client.Conn
	logger *slog.Logger
	// seq maps UIDL values seen by Search to message numbers in this session.
	seq map[string]int
}

// Search requires UIDL. Message numbers are reassigned between sessions,
// so a server without UIDL cannot be searched and messages reported with an
// empty UID are skipped.
func (m *pop3Mailbox) Search(ctx context.Context, c Criteria) ([]string, error) {
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("pop3 search: %w", err)
	}

	msgs, err := m.conn.Uidl(0)
	if err != nil {
		return nil, fmt.Errorf("pop3 uidl: %w", err)
	}

	since := StartOfDay(c.Since)
	var ids []string
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if msg.UID == "" {
			m.logger.Warn("pop3 message without uid, skipping", "msg", msg.ID)
			continue
		}

		entity, err := m.conn.Top(msg.ID, 0)
		if err != nil {
			m.logger.Warn("pop3 top failed", "msg", msg.ID, "error", err)
			continue
		}
		h := mail.Header{Header: entity.Header}

		if !fromMatches(h, c.From) {
			continue
		}
		if date, err := h.Date(); err == nil && !date.IsZero() && sentBefore(date, since) {
			continue
		}

		m.seq[msg.UID] = msg.ID
		ids = append(ids, msg.UID)
	}

	m.logger.Debug("pop3 search", "from", c.From, "listed", len(msgs), "matched", len(ids))
	return ids, nil
}

func (m *pop3Mailbox) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := m.seq[id]
	if !ok {
		return nil, fmt.Errorf("pop3 retr %s: %w", id, ErrNotFound)
	}
	buf, err := m.conn.RetrRaw(n)
	if err != nil {
		return nil, fmt.Errorf("pop3 retr %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

func (m *pop3Mailbox) Close() error {
	return m.conn.Quit()
}

func fromMatches(h mail.Header, want string) bool {
	addrs, err := h.AddressList("From")
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if strings.EqualFold(a.Address, want) {
			return true
		}
	}
	return false
}

// sentBefore compares calendar days in the location of since.
func sentBefore(date, since time.Time) bool {
	return StartOfDay(date.In(since.Location())).Before(since)
}
