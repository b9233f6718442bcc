package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestDecodeSinglePart(t *testing.T) {
	t.Parallel()

	raw := crlf(`From: stats@example.org
Subject: Daily report
Content-Type: text/plain; charset=utf-8

{"NumberStat": [42]}
`)

	msg, err := Decode("7", raw)
	require.NoError(t, err)
	assert.Equal(t, "7", msg.ID)
	assert.Equal(t, "Daily report", msg.Subject)
	assert.Equal(t, `{"NumberStat": [42]}`, strings.TrimSpace(msg.Body))
}

func TestDecodeEncodedSubject(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"=?UTF-8?B?SG9sYSBtdW5kbw==?=": "Hola mundo",
		"=?ISO-8859-1?Q?Caf=E9?=":      "Café",
		"plain subject":                "plain subject",
	}
	for encoded, want := range tests {
		encoded, want := encoded, want
		t.Run(want, func(t *testing.T) {
			t.Parallel()

			raw := crlf("Subject: " + encoded + "\nContent-Type: text/plain\n\nbody\n")
			msg, err := Decode("1", raw)
			require.NoError(t, err)
			assert.Equal(t, want, msg.Subject)
		})
	}
}

func TestDecodeMultipartPicksFirstPlainText(t *testing.T) {
	t.Parallel()

	raw := crlf(`From: stats@example.org
Subject: Report
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="xyz"

--xyz
Content-Type: text/html

<b>NumberStat: 99</b>
--xyz
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

NumberStat: 4=
2
--xyz
Content-Type: text/plain

NumberStat: 7
--xyz--
`)

	msg, err := Decode("3", raw)
	require.NoError(t, err)
	assert.Equal(t, "NumberStat: 42", strings.TrimSpace(msg.Body))
}

func TestDecodeNestedMultipart(t *testing.T) {
	t.Parallel()

	raw := crlf(`Subject: Nested
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain

Name: Alice
--inner
Content-Type: text/html

<p>Alice</p>
--inner--
--outer
Content-Type: application/pdf
Content-Disposition: attachment; filename="r.pdf"
Content-Transfer-Encoding: base64

JVBERi0=
--outer--
`)

	msg, err := Decode("4", raw)
	require.NoError(t, err)
	assert.Equal(t, "Name: Alice", strings.TrimSpace(msg.Body))
}

func TestDecodeCharsetAndBase64(t *testing.T) {
	t.Parallel()

	// "Nombre: José" in ISO-8859-1, base64 encoded.
	raw := crlf(`Subject: Latin
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: base64

Tm9tYnJlOiBKb3Pp
`)

	msg, err := Decode("5", raw)
	require.NoError(t, err)
	assert.Equal(t, "Nombre: José", strings.TrimSpace(msg.Body))
}

func TestDecodeNoPlainText(t *testing.T) {
	t.Parallel()

	raw := crlf(`Subject: Only HTML
Content-Type: text/html

<p>NumberStat: 1</p>
`)

	msg, err := Decode("6", raw)
	require.NoError(t, err)
	assert.Equal(t, "Only HTML", msg.Subject)
	assert.Empty(t, msg.Body)
}

func TestDecodeInvalidUTF8(t *testing.T) {
	t.Parallel()

	raw := append(crlf("Subject: bytes\nContent-Type: text/plain; charset=utf-8\n\nA: "), 0xff, 0xfe, '\r', '\n')

	msg, err := Decode("8", raw)
	require.NoError(t, err)
	assert.Equal(t, "A: \uFFFD", strings.TrimSpace(msg.Body))
}
