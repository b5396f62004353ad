package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-42, "-42"},
		{-1234567, "-1,234,567"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in))
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `hello world`, EscapeMarkdownV2("hello world"))
	assert.Equal(t, `a\.b\!c`, EscapeMarkdownV2("a.b!c"))
	assert.Equal(t, `\[link\]\(url\)`, EscapeMarkdownV2("[link](url)"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly", Truncate("exactly", 7))
	assert.Equal(t, "long ...", Truncate("long text here", 8))
	assert.Equal(t, "", Truncate("anything", 0))
}
