package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", `{"a":1}`, `{"a":1}`},
		{"Fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"BareFence", "```\n[1,2]\n```", `[1,2]`},
		{"Prose", "Here you go: {\"a\":{\"b\":2}} hope it helps", `{"a":{"b":2}}`},
		{"NoJSON", "not json", "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "日本語...", Truncate("日本語のテキストです", 6))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	var u Unavailable

	_, err := u.CheckSafety(ctx, "text")
	assert.True(t, aierrors.IsCollaborator(err))
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = u.Embed(ctx, "text", TaskRetrievalQuery)
	assert.True(t, aierrors.IsCollaborator(err))

	_, err = u.Generate(ctx, "prompt", nil)
	assert.True(t, aierrors.IsCollaborator(err))
}
