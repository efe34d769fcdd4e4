package flow

import (
	"testing"

	"runpay/internal/core"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var equateDecimals = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestStartingBalance(t *testing.T) {
	assert.True(t, StartingBalance(" sarah ").Equal(decimal.NewFromInt(45)))
	assert.True(t, StartingBalance("Nobody").IsZero())
}

func TestLookupNormalizesText(t *testing.T) {
	def, ok := Lookup(`  "Send all my ENGINEERS a $15 dollar bonus   if they hit at least 80% of their sprint on Linear" `)
	require.True(t, ok)
	assert.Equal(t, core.Linear, def.ID)

	_, ok = Lookup("Send all my engineers a $15 dollar bonus")
	assert.False(t, ok)
}

func TestEveryFlowEndsWithOneFinalStep(t *testing.T) {
	for _, def := range Definitions() {
		finals := 0
		for _, s := range def.Steps {
			if s.Final {
				finals++
			}
		}
		assert.Equal(t, 1, finals, def.ID)
		assert.True(t, def.Steps[len(def.Steps)-1].Final, def.ID)
		got, ok := Get(def.ID)
		require.True(t, ok)
		assert.Equal(t, def.Prompt, got.Prompt)
	}
}

func TestExtractEmails(t *testing.T) {
	got := ExtractEmails("maya@acme.io, and tyler.b+demo@sales.acme.co please")
	want := []string{"maya@acme.io", "tyler.b+demo@sales.acme.co"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExtractEmails mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, ExtractEmails("no addresses here"))
}

func TestSessionWalkthrough(t *testing.T) {
	def, ok := Get(core.Calendly)
	require.True(t, ok)

	s, first := Start(def)
	assert.True(t, first.Configuring)
	assert.Equal(t, 1, s.Step())

	for i := 1; i < len(def.Steps)-1; i++ {
		step, done, err := s.Advance("yes")
		require.NoError(t, err)
		assert.Nil(t, done)
		assert.Equal(t, def.Steps[i].Message, step.Message)
	}

	step, done, err := s.Advance("maya@acme.io")
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.True(t, step.Final)
	assert.True(t, s.Done())

	want := []core.Employee{
		{Name: "Maya", Role: "Sales", Email: "maya@acme.io", Balance: decimal.NewFromInt(22)},
		{Name: "Tyler", Role: "Sales", Balance: decimal.NewFromInt(18)},
	}
	if diff := cmp.Diff(want, done.Members, equateDecimals); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Calendly Product Demo Bonus", done.Automation.Name)
	assert.Equal(t, def.Prompt, done.Prompt)

	_, _, err = s.Advance("again")
	assert.ErrorIs(t, err, core.ErrUnknownFlow)
}
