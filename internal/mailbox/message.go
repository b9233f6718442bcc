package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Message is a fetched mail item reduced to what the poller examines.
type Message struct {
	ID      string
	Subject string
	Body    string // first text/plain part, empty if there is none
}

var wordDecoder = &mime.WordDecoder{}

// Decode parses raw message bytes. The subject is decoded from RFC 2047
// encoded words; the body is the first text/plain part with transfer and
// charset encodings removed. Invalid UTF-8 in the body is replaced with
// U+FFFD.
func Decode(id string, raw []byte) (Message, error) {
	msg := Message{ID: id}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return msg, fmt.Errorf("parse message %s: %w", id, err)
	}
	defer mr.Close()

	msg.Subject = decodeSubject(mr.Header)

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return msg, fmt.Errorf("read part of %s: %w", id, err)
		}

		if !isPlainText(p.Header) {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return msg, fmt.Errorf("read text body of %s: %w", id, err)
		}
		msg.Body = strings.ToValidUTF8(string(b), "\uFFFD")
		break
	}
	return msg, nil
}

func decodeSubject(h mail.Header) string {
	if s, err := h.Subject(); err == nil {
		return s
	}
	raw := h.Get("Subject")
	if s, err := wordDecoder.DecodeHeader(raw); err == nil {
		return s
	}
	return raw
}

func isPlainText(h mail.PartHeader) bool {
	var ct string
	switch h := h.(type) {
	case *mail.InlineHeader:
		ct, _, _ = h.ContentType()
	case *mail.AttachmentHeader:
		ct, _, _ = h.ContentType()
	default:
		return false
	}
	// A part without Content-Type defaults to text/plain.
	return ct == "" || ct == "text/plain"
}
