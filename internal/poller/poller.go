// Package poller runs one pass over a mailbox: search for recent messages
// from a sender, examine each message not seen before, report statistic
// values, and persist the identifiers of everything examined.
//
// A Poller is not safe for concurrent runs against the same state file.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tracyhatemice/mailstat/internal/idstore"
	"github.com/tracyhatemice/mailstat/internal/mailbox"
	"github.com/tracyhatemice/mailstat/internal/parser"
	"github.com/tracyhatemice/mailstat/internal/report"
)

// Store loads and saves the processed-ID set.
type Store interface {
	Load() (idstore.Set, error)
	Save(idstore.Set) error
}

// Reporter receives the operator-facing output of a run.
type Reporter interface {
	Match(report.Match)
	Saved()
	Error(error)
}

// Options configures a Poller.
type Options struct {
	Sender    string
	Lookback  time.Duration
	StatField string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Poller examines new messages from one sender.
type Poller struct {
	opts     Options
	dialer   mailbox.Dialer
	store    Store
	reporter Reporter
	logger   *slog.Logger
}

// New creates a Poller.
func New(opts Options, dialer mailbox.Dialer, store Store, reporter Reporter, logger *slog.Logger) *Poller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		opts:     opts,
		dialer:   dialer,
		store:    store,
		reporter: reporter,
		logger:   logger,
	}
}

// Run performs a single pass. State load, connection, search and state
// save failures end the run with an error after being reported; a message
// that cannot be fetched is skipped and stays eligible for the next run.
func (p *Poller) Run(ctx context.Context) error {
	seen, err := p.store.Load()
	if err != nil {
		return p.fail(fmt.Errorf("load state: %w", err))
	}
	p.logger.Debug("loaded state", "seen_count", seen.Len())

	added, err := p.poll(ctx, seen)
	if err != nil {
		return p.fail(err)
	}

	if added == 0 {
		p.logger.Debug("no new messages")
		return nil
	}

	if err := p.store.Save(seen); err != nil {
		return p.fail(fmt.Errorf("save state: %w", err))
	}
	p.reporter.Saved()
	p.logger.Info("state saved", "new", added, "seen_count", seen.Len())
	return nil
}

// poll adds every examined identifier to seen and returns how many were new.
func (p *Poller) poll(ctx context.Context, seen idstore.Set) (int, error) {
	mb, err := p.dialer.Dial(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := mb.Close(); err != nil {
			p.logger.Debug("close mailbox", "error", err)
		}
	}()

	criteria := mailbox.Criteria{
		From:  p.opts.Sender,
		Since: mailbox.StartOfDay(p.opts.Now().Add(-p.opts.Lookback)),
	}
	ids, err := mb.Search(ctx, criteria)
	if err != nil {
		return 0, err
	}
	p.logger.Info(fmt.Sprintf("found %d candidate message(s)", len(ids)), "from", criteria.From)

	added := 0
	for _, id := range ids {
		if seen.Has(id) {
			continue
		}
		if err := ctx.Err(); err != nil {
			p.logger.Warn("run interrupted", "error", err)
			break
		}

		raw, err := mb.Fetch(ctx, id)
		if err != nil {
			p.logger.Warn("fetch failed, skipping", "msg_id", id, "error", err)
			continue
		}

		p.examine(id, raw)
		seen.Add(id)
		added++
	}
	return added, nil
}

// examine decodes one message and reports its statistic value, if any.
func (p *Poller) examine(id string, raw []byte) {
	msg, err := mailbox.Decode(id, raw)
	if err != nil {
		p.logger.Warn("decode failed, treating body as empty", "msg_id", id, "error", err)
		msg.Body = ""
	}

	payload := parser.Parse(msg.Body)
	value, ok := payload.FirstValue(p.opts.StatField)
	if !ok {
		p.logger.Debug("no statistic in message", "msg_id", id, "keys", len(payload))
		return
	}

	p.reporter.Match(report.Match{
		Time:    p.opts.Now(),
		ID:      id,
		Subject: msg.Subject,
		Value:   value,
	})
}

func (p *Poller) fail(err error) error {
	p.logger.Error("run failed", "error", err)
	p.reporter.Error(err)
	return err
}
