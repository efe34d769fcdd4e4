package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeedYAML = `treasury:
  name: Treasury
  balance: 250000
  yield_rate: 0.045
employees:
  - id: emp-ben
    name: Ben
    role: Engineer
    balance: 5000
  - id: emp-priya
    name: Priya
    role: Support
    balance: 1900
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeedYAML), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	t.Cleanup(func() { seedFile, policy, logLevel = "", "", "error" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestMatchCommand(t *testing.T) {
	seed := writeSeed(t)
	out := execute(t, "", "match", "--seed", seed, "Give", "Ben", "a", "20%", "pay", "raise")

	var got struct {
		Rule   string `json:"rule"`
		Kind   string `json:"kind"`
		Action struct {
			To     string `json:"to"`
			Amount string `json:"amount"`
		} `json:"action"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "transfer", got.Kind)
	assert.Equal(t, "emp-ben", got.Action.To)
	assert.Equal(t, "1000", got.Action.Amount)
	assert.NotEmpty(t, got.Rule)
}

func TestMatchCommandReportsCause(t *testing.T) {
	seed := writeSeed(t)
	out := execute(t, "", "match", "--seed", seed, "Give Zed a 10% pay raise")
	assert.Contains(t, out, `"kind": "unknown"`)
	assert.Contains(t, out, "no such employee")
}

func TestReplSession(t *testing.T) {
	seed := writeSeed(t)
	input := strings.Join([]string{
		"Send Priya $250",
		"confirm",
		"Give Ben a 20% pay raise",
		"balances",
		"exit",
		"Summary",
	}, "\n")
	out := execute(t, input, "repl", "--seed", seed)

	assert.Contains(t, out, "type confirm or cancel")
	assert.Contains(t, out, "[applied]")
	assert.Contains(t, out, "$2,150")
	assert.Contains(t, out, "$6,000")
	assert.Contains(t, out, "$248,750")
	assert.NotContains(t, out, "Summary: payroll", "input after exit must be ignored")
}

func TestReplCancelAndEmptyPending(t *testing.T) {
	seed := writeSeed(t)
	out := execute(t, "send ben $75\nno\nno\n", "repl", "--seed", seed)
	assert.Contains(t, out, "cancelled:")
	assert.Contains(t, out, "nothing to confirm")
}

func TestReplGuidedFlowTakesYesAsAnswer(t *testing.T) {
	seed := writeSeed(t)
	input := strings.Join([]string{
		"Send all my sales people a $2 dollar bonus for every booked demo on Calendly",
		"Product Demo link",
		"yes",
		"per rep",
		"maya@acme.co, tyler@acme.co",
		"automations",
		"yes",
		"exit",
	}, "\n")
	out := execute(t, input, "repl", "--seed", seed)

	assert.Contains(t, out, "Do you want to include both?")
	assert.Contains(t, out, "unique per rep")
	assert.Contains(t, out, "automation created: Calendly Product Demo Bonus")
	assert.Contains(t, out, "Calendly Product Demo Bonus [")
	assert.Equal(t, 1, strings.Count(out, "nothing to confirm"), "only the yes after the flow ends has nothing to act on")
}

func TestSummaryCommand(t *testing.T) {
	seed := writeSeed(t)
	out := execute(t, "", "summary", "--seed", seed)
	assert.Contains(t, out, "payroll $42,000")
	assert.Contains(t, out, "est. quarter yield $2,812.50")
	assert.Contains(t, out, "across 2 employees")
}

func TestSeedCommand(t *testing.T) {
	seed := writeSeed(t)
	out := execute(t, "", "seed", "--seed", seed)
	assert.Contains(t, out, "treasury:")
	assert.Contains(t, out, "name: Priya")
	assert.Contains(t, out, "id: intercom")
}

func TestUnknownPolicyFails(t *testing.T) {
	seed := writeSeed(t)
	t.Cleanup(func() { seedFile, policy, logLevel = "", "", "error" })
	rootCmd.SetArgs([]string{"summary", "--seed", seed, "--policy", "yolo"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	assert.Error(t, rootCmd.Execute())
}
