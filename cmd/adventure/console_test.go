package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConsole(input string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConsole(strings.NewReader(input), &out, logger), &out
}

func TestConsole_Confirm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bool
		wantErr error
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "no", input: "no\n", want: false},
		{name: "empty line asks again", input: "\n\nY\n", want: true},
		{name: "unknown answer asks again", input: "maybe\nn\n", want: false},
		{name: "empty line never accepts", input: "\n", wantErr: io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testConsole(tt.input)
			got, err := c.Confirm(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsole_Retry(t *testing.T) {
	c, out := testConsole("\ny\n")
	again, err := c.Retry(context.Background(), assert.AnError)
	require.NoError(t, err)
	assert.True(t, again)
	assert.Contains(t, out.String(), "The storyteller is not answering.")
}

func TestConsole_Choose(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"numbered", "2\n", "Run"},
		{"out of range then free text", "9\nClimb the wall\n", "Climb the wall"},
		{"empty skipped", "\n1\n", "Fight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testConsole(tt.input)
			got, err := c.Choose(context.Background(), []string{"Fight", "Run"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsole_ReadLineCancelled(t *testing.T) {
	c, _ := testConsole("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.readLine(ctx, "prompt")
	assert.Error(t, err)
}
