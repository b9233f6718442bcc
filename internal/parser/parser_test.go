package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Payload
	}{
		{
			name: "json object",
			in:   `{"NumberStat": [42, 7]}`,
			want: Payload{"NumberStat": []any{json.Number("42"), json.Number("7")}},
		},
		{
			name: "json object with surrounding whitespace",
			in:   "\n\t  {\"Name\": \"Alice\", \"Nested\": {\"ok\": true}}  \r\n",
			want: Payload{"Name": "Alice", "Nested": map[string]any{"ok": true}},
		},
		{
			name: "json wins over line syntax",
			in:   "{\"A\": \"x: y\"}",
			want: Payload{"A": "x: y"},
		},
		{
			name: "plain text record",
			in:   "Name: Alice\nNumberStat: 10\nIgnored line with no separator",
			want: Payload{"Name": "Alice", "NumberStat": "10"},
		},
		{
			name: "last key wins",
			in:   "A: 1\nA: 2",
			want: Payload{"A": "2"},
		},
		{
			name: "split on first separator only",
			in:   "Time: 10: 30",
			want: Payload{"Time": "10: 30"},
		},
		{
			name: "colon without space is not a separator",
			in:   "url:http://example.org\nKey:  value  ",
			want: Payload{"Key": "value"},
		},
		{
			name: "crlf line endings",
			in:   "A: 1\r\nB: 2\r\n",
			want: Payload{"A": "1", "B": "2"},
		},
		{
			name: "malformed json falls back",
			in:   "{\"NumberStat\": [1, 2\nStatus: broken",
			want: Payload{"{\"NumberStat\"": "[1, 2", "Status": "broken"},
		},
		{
			name: "json array is not a payload",
			in:   `[1, 2, 3]`,
			want: Payload{},
		},
		{
			name: "json scalar is not a payload",
			in:   `42`,
			want: Payload{},
		},
		{
			name: "json null is not a payload",
			in:   `null`,
			want: Payload{},
		},
		{
			name: "trailing data after object",
			in:   "{\"A\": 1}\nB: 2",
			want: Payload{"{\"A\"": "1}", "B": "2"},
		},
		{
			name: "non-standard json literals fall back",
			in:   `{"NumberStat": [NaN]}`,
			want: Payload{`{"NumberStat"`: "[NaN]}"},
		},
		{
			name: "empty",
			in:   "",
			want: Payload{},
		},
		{
			name: "whitespace only",
			in:   " \n\t\r\n ",
			want: Payload{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestFirstValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		p      Payload
		want   any
		wantOK bool
	}{
		{"array", Parse(`{"NumberStat": [42, 7]}`), json.Number("42"), true},
		{"empty array", Parse(`{"NumberStat": []}`), nil, false},
		{"plain text value", Parse("NumberStat: 10"), "10", true},
		{"empty plain text value", Payload{"NumberStat": ""}, nil, false},
		{"number", Parse(`{"NumberStat": 5}`), nil, false},
		{"object", Parse(`{"NumberStat": {"a": 1}}`), nil, false},
		{"missing", Parse(`{"Other": [1]}`), nil, false},
		{"nil payload", nil, nil, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.p.FirstValue("NumberStat")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
