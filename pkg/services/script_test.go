package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitScript(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "empty",
			script: "",
			want:   nil,
		},
		{
			name:   "single without terminator",
			script: "SELECT 1",
			want:   []string{"SELECT 1"},
		},
		{
			name: "readme walkthrough",
			script: `CREATE DATABASE IF NOT EXISTS sales_db;
USE sales_db;
CREATE TABLE sales (id INT, amount DOUBLE) PARTITIONED BY (sale_date STRING);
ALTER TABLE sales ADD PARTITION (sale_date='2024-02-18');
`,
			want: []string{
				"CREATE DATABASE IF NOT EXISTS sales_db",
				"USE sales_db",
				"CREATE TABLE sales (id INT, amount DOUBLE) PARTITIONED BY (sale_date STRING)",
				"ALTER TABLE sales ADD PARTITION (sale_date='2024-02-18')",
			},
		},
		{
			name:   "semicolon in string",
			script: "INSERT INTO t VALUES ('a;b'); SELECT \"x;y\" FROM t",
			want:   []string{"INSERT INTO t VALUES ('a;b')", "SELECT \"x;y\" FROM t"},
		},
		{
			name:   "semicolon in comments",
			script: "-- first; still a comment\nSELECT 1; /* a; b */ SELECT 2",
			want:   []string{"-- first; still a comment\nSELECT 1", "/* a; b */ SELECT 2"},
		},
		{
			name:   "comment only segments dropped",
			script: "SELECT 1;\n-- trailing note\n;;",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "semicolon in backticks",
			script: "SELECT `a;b` FROM t;",
			want:   []string{"SELECT `a;b` FROM t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitScript(tt.script))
		})
	}
}
