// Package mailboxtest runs an in-memory IMAP server for tests.
package mailboxtest

import (
	"bytes"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

// Credentials accepted by the server.
const (
	User     = "user@example.org"
	Password = "secret"
)

// Message is one mailbox entry to seed.
type Message struct {
	Raw  string
	Date time.Time // internal date; zero means now
}

// Server is a running in-memory IMAP server with an INBOX.
type Server struct {
	Host string
	Port int
	addr string
}

// Start listens on a loopback port, seeds INBOX with msgs and stops the
// server when the test ends.
func Start(t testing.TB, msgs ...Message) *Server {
	t.Helper()

	memServer := imapmemserver.New()
	user := imapmemserver.NewUser(User, Password)
	if err := user.Create("INBOX", nil); err != nil {
		t.Fatalf("create INBOX: %v", err)
	}
	memServer.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memServer.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go server.Serve(ln)
	t.Cleanup(func() { server.Close() })

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	s := &Server{Host: host, Port: port, addr: ln.Addr().String()}

	s.Append(t, msgs...)
	return s
}

// Append adds messages to INBOX over a separate client connection.
func (s *Server) Append(t testing.TB, msgs ...Message) {
	t.Helper()
	if len(msgs) == 0 {
		return
	}

	c, err := imapclient.DialInsecure(s.addr, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.Login(User, Password).Wait(); err != nil {
		t.Fatalf("login: %v", err)
	}

	for _, m := range msgs {
		date := m.Date
		if date.IsZero() {
			date = time.Now()
		}
		raw := []byte(m.Raw)
		cmd := c.Append("INBOX", int64(len(raw)), &imap.AppendOptions{Time: date})
		if _, err := cmd.Write(raw); err != nil {
			t.Fatalf("append write: %v", err)
		}
		if err := cmd.Close(); err != nil {
			t.Fatalf("append close: %v", err)
		}
		if _, err := cmd.Wait(); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := c.Logout().Wait(); err != nil {
		t.Fatalf("logout: %v", err)
	}
}

// Mail builds a minimal RFC 5322 message with CRLF line endings.
func Mail(from, subject, body string) string {
	var b bytes.Buffer
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + User + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}
