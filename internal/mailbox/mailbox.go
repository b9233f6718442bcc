// Package mailbox is the narrow boundary between the poller and a remote
// mail store. Adapters exist for IMAP and POP3.
package mailbox

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Fetch when the server has no message with
// the requested identifier.
var ErrNotFound = errors.New("message not found")

// ErrNoSender is returned by Search when Criteria.From is empty. IMAP
// servers match FROM "" against every message.
var ErrNoSender = errors.New("sender filter is empty")

// Criteria selects candidate messages.
type Criteria struct {
	// From is the sender address to match.
	From string
	// Since is the earliest day to include. Only the calendar date is
	// significant: messages from any time on that day match.
	Since time.Time
}

func (c Criteria) validate() error {
	if strings.TrimSpace(c.From) == "" {
		return ErrNoSender
	}
	return nil
}

// Dialer opens an authenticated session on the configured mailbox.
type Dialer interface {
	Dial(ctx context.Context) (Mailbox, error)
}

// Mailbox is an open session. Requests are issued one at a time.
type Mailbox interface {
	// Search returns identifiers of matching messages in server order.
	Search(ctx context.Context, c Criteria) ([]string, error)
	// Fetch returns the raw RFC 5322 bytes of one message.
	Fetch(ctx context.Context, id string) ([]byte, error)
	// Close ends the session and releases the connection.
	Close() error
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
