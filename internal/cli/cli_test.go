package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes with spaces", input: "  YES \n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty line", input: "\n", want: false},
		{name: "eof without newline", input: "y", want: true},
		{name: "eof", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(context.Background(), strings.NewReader(tt.input), &out, "Delete card?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Delete card? [y/N]")
		})
	}
}

func TestConfirm_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Confirm(ctx, pr, io.Discard, "Delete card?")
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"Card", "Reward"},
		[][]string{
			{"HSBC Red", "12.50"},
			{"BOC Cheers Visa Signature", "3.00"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Card")
	assert.Contains(t, lines[1], "HSBC Red")
	// The second column starts at the same printed offset on every row.
	col := func(line, cell string) int {
		return lipgloss.Width(line[:strings.Index(line, cell)])
	}
	assert.Equal(t, col(lines[1], "12.50"), col(lines[2], "3.00"))
}

func TestUsageBar(t *testing.T) {
	assert.Empty(t, UsageBar(50, 0))

	bar := UsageBar(50, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))

	assert.Equal(t, 10, strings.Count(UsageBar(250, 10), "█"))
	assert.Equal(t, 10, strings.Count(UsageBar(-5, 10), "░"))
}

func TestFormatReward(t *testing.T) {
	assert.Contains(t, FormatReward("HK$6.00", true), "HK$6.00")
	assert.Contains(t, FormatReward("HK$6.00", false), "HK$6.00")
}
