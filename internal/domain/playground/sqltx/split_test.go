package sqltx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{name: "empty", script: "", want: []string{}},
		{name: "whitespace only", script: " ;\n ; ", want: []string{}},
		{
			name:   "single without terminator",
			script: "INSERT INTO t RECORDS {_id: 1}",
			want:   []string{"INSERT INTO t RECORDS {_id: 1}"},
		},
		{
			name:   "several",
			script: "INSERT INTO t (_id) VALUES (1);\n  INSERT INTO t (_id) VALUES (2);\n",
			want:   []string{"INSERT INTO t (_id) VALUES (1)", "INSERT INTO t (_id) VALUES (2)"},
		},
		{
			name:   "semicolon in string",
			script: "INSERT INTO t (_id, s) VALUES (1, 'a;b'); SELECT 'it''s;'",
			want:   []string{"INSERT INTO t (_id, s) VALUES (1, 'a;b')", "SELECT 'it''s;'"},
		},
		{
			name:   "quoted identifier",
			script: `SELECT "a;b" FROM t; SELECT 2`,
			want:   []string{`SELECT "a;b" FROM t`, "SELECT 2"},
		},
		{
			name:   "comments",
			script: "-- setup; ignored\nINSERT INTO t RECORDS {_id: 1}; /* a; b */ SELECT 1;\n-- trailing",
			want:   []string{"-- setup; ignored\nINSERT INTO t RECORDS {_id: 1}", "/* a; b */ SELECT 1"},
		},
		{
			name:   "unterminated string",
			script: "SELECT 'oops; SELECT 2",
			want:   []string{"SELECT 'oops; SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.script))
		})
	}
}
