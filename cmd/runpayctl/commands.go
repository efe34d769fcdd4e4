package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"runpay/internal/core"
	"runpay/internal/prompt"
	"runpay/internal/services"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive console session",
	Long: `Reads one prompt per line and applies it to an in-memory ledger.

Besides prompts the session understands:
  confirm | yes   apply the newest pending transfer
  cancel  | no    drop the newest pending transfer
                  (inside a guided flow these answer the flow instead)
  balances        print treasury and team balances
  automations     list automations
  exit    | quit  leave the session`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

var matchCmd = &cobra.Command{
	Use:   "match <prompt...>",
	Short: "Show how a prompt is understood without applying it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatch,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Preview the summary report for the seed",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Print the loaded seed as YAML",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func runRepl(cmd *cobra.Command, _ []string) error {
	console, _, err := newConsole(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
		case "exit", "quit":
			return nil
		case "confirm", "yes", "cancel", "no":
			// A running flow asks yes/no questions of its own.
			if _, _, inFlow := console.ActiveFlow(); inFlow {
				submitLine(cmd, console, line)
				break
			}
			word := strings.ToLower(line)
			resolvePending(cmd, console, word == "confirm" || word == "yes")
		case "balances":
			printBalances(out, console.Snapshot())
		case "automations":
			for _, a := range console.Automations() {
				fmt.Fprintf(out, "%s [%s] %s\n", a.Name, a.Status.Label(), core.FormatUSD(a.Amount))
			}
		default:
			submitLine(cmd, console, line)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func submitLine(cmd *cobra.Command, console *services.Console, line string) {
	out := cmd.OutOrStdout()
	res, err := console.Submit(cmd.Context(), line)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	printResult(out, res)
}

// resolvePending confirms or cancels the newest pending transfer.
func resolvePending(cmd *cobra.Command, console *services.Console, confirm bool) {
	out := cmd.OutOrStdout()
	pending := console.Pending()
	if len(pending) == 0 {
		fmt.Fprintln(out, "nothing to confirm")
		return
	}
	newest := pending[0]
	for _, p := range pending[1:] {
		if p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if !confirm {
		if _, err := console.Cancel(cmd.Context(), newest.ID); err != nil {
			fmt.Fprintln(out, "error:", err)
			return
		}
		fmt.Fprintln(out, "cancelled:", newest.Action.Description)
		return
	}
	entry, err := console.Confirm(cmd.Context(), newest.ID)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	printEntry(out, entry)
}

func printResult(out io.Writer, res services.SubmitResult) {
	switch {
	case res.Flow != nil:
		fmt.Fprintln(out, res.Flow.Message)
	case res.Pending != nil:
		fmt.Fprintf(out, "%s: type confirm or cancel\n", res.Pending.Action.Description)
	case res.Entry != nil:
		printEntry(out, *res.Entry)
	}
	if res.Automation != nil {
		fmt.Fprintf(out, "automation created: %s\n", res.Automation.Name)
	}
}

func printEntry(out io.Writer, e core.LogEntry) {
	line := fmt.Sprintf("[%s] %s", e.Status, e.Description)
	if e.Reason != "" {
		line += " (" + e.Reason + ")"
	}
	fmt.Fprintln(out, line)
	if e.Report != nil {
		fmt.Fprintln(out, e.Report.String())
	}
}

func printBalances(out io.Writer, s services.Snapshot) {
	fmt.Fprintf(out, "%-20s %15s\n", s.Treasury.Name, core.FormatUSD(s.Treasury.Balance))
	for _, e := range s.Employees {
		fmt.Fprintf(out, "%-20s %15s\n", e.Name, core.FormatUSD(e.Balance))
	}
}

type matchOutput struct {
	Rule   string      `json:"rule"`
	Kind   core.Kind   `json:"kind"`
	Action core.Action `json:"action"`
	Cause  string      `json:"cause,omitempty"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	_, s, err := newConsole(cmd)
	if err != nil {
		return err
	}
	action, rule := prompt.NewMatcher().Trace(strings.Join(args, " "), s.Employees)
	res := matchOutput{Rule: rule, Kind: action.Kind(), Action: action}
	if u, ok := action.(core.Unknown); ok && u.Cause != nil {
		res.Cause = u.Cause.Error()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	console, _, err := newConsole(cmd)
	if err != nil {
		return err
	}
	r := console.PreviewSummary()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, r.String())
	fmt.Fprintf(out, "treasury %s at %s%% across %d employees\n",
		core.FormatUSD(r.TreasuryBalance), r.YieldRate.Shift(2).String(), r.EmployeeCount)
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	_, s, err := newConsole(cmd)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
