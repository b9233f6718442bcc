// Package report writes the operator-facing text output of a run.
package report

import (
	"fmt"
	"io"
	"time"
)

// Match is one message that carried a statistic value.
type Match struct {
	Time    time.Time
	ID      string
	Subject string
	Value   any
}

// Printer writes line-oriented reports. Write errors are ignored.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Match prints a matched message record.
func (p *Printer) Match(m Match) {
	p.printf("\nNew message processed - %s\n", m.Time.Format(time.DateTime))
	p.printf("ID: %s\n", m.ID)
	p.printf("Subject: %s\n", m.Subject)
	p.printf("Message: %v\n", m.Value)
	p.printf("-----------------------------\n")
}

// Saved confirms that processing state was written.
func (p *Printer) Saved() {
	p.printf("Processing state saved.\n")
}

// Error prints a failure line.
func (p *Printer) Error(err error) {
	p.printf("Error: %v\n", err)
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}
