package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPDialer opens IMAP/IMAPS sessions. Messages are identified by UID.
type IMAPDialer struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	folder   string
	logger   *slog.Logger

	// TLSConfig overrides the default client TLS settings when set.
	TLSConfig *tls.Config
}

// NewIMAP creates a new IMAP dialer.
func NewIMAP(host string, port int, username, password string, useTLS bool, folder string, logger *slog.Logger) *IMAPDialer {
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPDialer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		useTLS:   useTLS,
		folder:   folder,
		logger:   logger,
	}
}

// Dial connects, logs in and selects the folder. On failure the
// connection is closed before returning.
func (d *IMAPDialer) Dial(ctx context.Context) (Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(d.host, strconv.Itoa(d.port))

	var client *imapclient.Client
	var err error

	if d.useTLS {
		tlsConfig := d.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: d.host}
		}
		client, err = imapclient.DialTLS(addr, &imapclient.Options{
			TLSConfig: tlsConfig,
		})
	} else {
		client, err = imapclient.DialInsecure(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("imap connect %s: %w", addr, err)
	}

	if err := client.Login(d.username, d.password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("imap login %s: %w", d.username, err)
	}

	if _, err := client.Select(d.folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		client.Logout().Wait()
		client.Close()
		return nil, fmt.Errorf("imap select %s: %w", d.folder, err)
	}

	d.logger.Debug("imap session open", "addr", addr, "folder", d.folder)
	return &imapMailbox{client: client, logger: d.logger}, nil
}

type imapMailbox struct {
	client *imapclient.Client
	logger *slog.Logger
}

// Search issues UID SEARCH FROM <sender> SINCE <day>. The IMAP SINCE key
// compares dates only, so the whole cutoff day is included.
func (m *imapMailbox) Search(ctx context.Context, c Criteria) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "From", Value: c.From}},
		Since:  StartOfDay(c.Since),
	}
	data, err := m.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := data.AllUIDs()
	m.logger.Debug("imap search", "from", c.From, "since", criteria.Since.Format("02-Jan-2006"), "count", len(uids))

	ids := make([]string, len(uids))
	for i, uid := range uids {
		ids[i] = strconv.FormatUint(uint64(uid), 10)
	}
	return ids, nil
}

// Fetch retrieves BODY.PEEK[] so the \Seen flag is left as it was.
func (m *imapMailbox) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("imap fetch %q: invalid uid", id)
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	buffers, err := m.client.Fetch(imap.UIDSetNum(imap.UID(n)), fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch %s: %w", id, err)
	}

	for _, buf := range buffers {
		if buf.UID != imap.UID(n) {
			continue
		}
		if content := buf.FindBodySection(bodySection); content != nil {
			return content, nil
		}
	}
	return nil, fmt.Errorf("imap fetch %s: %w", id, ErrNotFound)
}

func (m *imapMailbox) Close() error {
	if err := m.client.Logout().Wait(); err != nil {
		m.logger.Debug("imap logout", "error", err)
	}
	return m.client.Close()
}
