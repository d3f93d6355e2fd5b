package console

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk(t *testing.T) {
	var out bytes.Buffer
	term := New(strings.NewReader("  smoking \nlast line without newline"), &out, false)

	got, err := term.Ask("Habit: ")
	require.NoError(t, err)
	assert.Equal(t, "smoking", got)

	got, err = term.Ask("Why: ")
	require.NoError(t, err)
	assert.Equal(t, "last line without newline", got)

	_, err = term.Ask("More? ")
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "Habit: Why: More? ", out.String())
}

func TestAsk_EmptyLine(t *testing.T) {
	term := New(strings.NewReader("\n"), io.Discard, false)
	got, err := term.Ask("> ")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestPlainOutput(t *testing.T) {
	var out bytes.Buffer
	term := New(strings.NewReader(""), &out, false)
	term.Say("Welcome")
	term.Warn("Invalid choice. Try again.")
	term.Show("Craving Intervention", "**Breathe** in for 4.")

	assert.Equal(t, "Welcome\nInvalid choice. Try again.\n\nCraving Intervention\n\n**Breathe** in for 4.\n", out.String())
}

func TestPrettyOutputKeepsText(t *testing.T) {
	var out bytes.Buffer
	term := New(strings.NewReader(""), &out, true)
	term.Say("Welcome")
	term.Show("Daily Check-In", "Nice work today.")

	assert.Contains(t, out.String(), "Welcome")
	assert.Contains(t, out.String(), "Daily Check-In")
	assert.Contains(t, out.String(), "Nice work today.")
}
