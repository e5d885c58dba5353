package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractQueryName(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT id FROM users", "SELECT"},
		{"\n\tinsert into trading_actions (id) values ($1)", "INSERT"},
		{"", "unknown"},
		{"   ", "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractQueryName(tt.sql), "sql=%q", tt.sql)
	}
}
