// Package prompt maps console text to ledger actions.
//
// Matching is a fixed, ordered list of rules. Each rule owns one or more
// regular expressions over the normalized text and an extractor that turns
// the submatches into a core.Action. The first extractor that succeeds wins;
// when none does the result is core.Unknown.
package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"runpay/internal/core"

	"github.com/shopspring/decimal"
)

// DefaultUSDCAmount is used when a USDC prompt does not name an amount.
var DefaultUSDCAmount = decimal.NewFromInt(1000)

const amountPattern = `(\d[\d,]*(?:\.\d{1,2})?)`

type extractor func(m []string, roster []core.Employee) (core.Action, error)

type rule struct {
	name     string
	patterns []*regexp.Regexp
	extract  extractor
}

// Matcher holds the ordered rule list. The zero value is not usable; use
// NewMatcher.
type Matcher struct {
	rules []rule
}

// NewMatcher returns a matcher with the built-in rules in priority order.
func NewMatcher() *Matcher {
	return &Matcher{rules: []rule{
		{
			name:     "raise",
			patterns: []*regexp.Regexp{regexp.MustCompile(`give (\p{L}+) a (\d+)% pay raise`)},
			extract:  extractRaise,
		},
		{
			name: "birthday",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`on every employee'?s birthday,? send them a \$` + amountPattern + ` bonus`),
				regexp.MustCompile(`send (?:a |them a )?\$` + amountPattern + ` bonus on (?:every employee'?s |their )?birthdays?`),
			},
			extract: extractBirthday,
		},
		{
			name:     "usdc",
			patterns: []*regexp.Regexp{regexp.MustCompile(`send (?:a wire of |a wire to )?(\d[\d,]*(?:\.\d+)?)?\s*(?:of )?usdc to (0x[0-9a-f]+)`)},
			extract:  extractUSDC,
		},
		{
			name:     "withdraw",
			patterns: []*regexp.Regexp{regexp.MustCompile(`withdraw (\d+)% of the company'?s revenue`)},
			extract:  extractWithdraw,
		},
		{
			name:     "direct",
			patterns: []*regexp.Regexp{regexp.MustCompile(`send (\p{L}+) \$` + amountPattern)},
			extract:  extractDirect,
		},
		{
			name:     "summary",
			patterns: []*regexp.Regexp{regexp.MustCompile(`^(?:run (?:a |the )?summary|summary|give me a summary|show (?:me )?(?:the )?summary)[.!]?$`)},
			extract: func([]string, []core.Employee) (core.Action, error) {
				return core.Summary{}, nil
			},
		},
	}}
}

var defaultMatcher = NewMatcher()

// Match maps text to an action using the built-in rules.
func Match(text string, roster []core.Employee) core.Action {
	return defaultMatcher.Match(text, roster)
}

// Match never fails: unrecognized text yields core.Unknown carrying the raw
// input, with Cause set to the first extractor error if a rule recognized the
// phrase but could not resolve it.
func (m *Matcher) Match(text string, roster []core.Employee) core.Action {
	a, _ := m.Trace(text, roster)
	return a
}

// Trace is Match that also reports the name of the winning rule, or
// "fallback".
func (m *Matcher) Trace(text string, roster []core.Employee) (core.Action, string) {
	normalized := Normalize(text)
	var cause error
	for _, r := range m.rules {
		for _, re := range r.patterns {
			sub := re.FindStringSubmatch(normalized)
			if sub == nil {
				continue
			}
			a, err := r.extract(sub, roster)
			if err != nil {
				if cause == nil {
					cause = err
				}
				continue
			}
			return a, r.name
		}
	}
	return core.Unknown{RawText: text, Cause: cause}, "fallback"
}

// FindEmployee looks up an employee by case-insensitive exact first name.
func FindEmployee(roster []core.Employee, name string) (core.Employee, bool) {
	for _, e := range roster {
		if strings.EqualFold(e.FirstName(), name) {
			return e, true
		}
	}
	return core.Employee{}, false
}

func lookup(roster []core.Employee, name string) (core.Employee, error) {
	e, ok := FindEmployee(roster, name)
	if !ok {
		return core.Employee{}, fmt.Errorf("%w: %s", core.ErrNoSuchEmployee, name)
	}
	return e, nil
}

func parsePercent(s string) (int, error) {
	pct, err := strconv.Atoi(s)
	if err != nil || pct < 0 || pct > 100 {
		return 0, fmt.Errorf("%w: %s", core.ErrInvalidPercent, s)
	}
	return pct, nil
}

func extractRaise(m []string, roster []core.Employee) (core.Action, error) {
	emp, err := lookup(roster, m[1])
	if err != nil {
		return nil, err
	}
	pct, err := parsePercent(m[2])
	if err != nil {
		return nil, err
	}
	return core.Transfer{
		From:        core.TreasuryID,
		To:          emp.ID,
		Amount:      core.Percent(emp.Balance, pct),
		Rail:        core.RailInternal,
		Description: fmt.Sprintf("Pay raise %d%% to %s", pct, emp.Name),
	}, nil
}

func extractBirthday(m []string, _ []core.Employee) (core.Action, error) {
	amt, err := core.ParseAmount(m[1])
	if err != nil {
		return nil, err
	}
	return core.LoopBirthdayBonus{
		AmountPerEmployee: amt,
		Description:       fmt.Sprintf("Send %s to each employee on birthday", core.FormatUSD(amt)),
	}, nil
}

// extractUSDC treats a missing or zero amount as DefaultUSDCAmount.
func extractUSDC(m []string, _ []core.Employee) (core.Action, error) {
	amt := DefaultUSDCAmount
	if m[1] != "" && !isZeroAmount(m[1]) {
		parsed, err := core.ParseAmount(m[1])
		if err != nil {
			return nil, err
		}
		amt = parsed
	}
	to := core.AccountID(m[2])
	return core.Transfer{
		From:        core.TreasuryID,
		To:          to,
		Amount:      amt,
		Rail:        core.RailUSDC,
		Description: fmt.Sprintf("Send %s USDC to %s", amt.String(), to),
	}, nil
}

func isZeroAmount(s string) bool {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	return err == nil && d.Round(2).IsZero()
}

func extractWithdraw(m []string, _ []core.Employee) (core.Action, error) {
	pct, err := parsePercent(m[1])
	if err != nil {
		return nil, err
	}
	return core.WithdrawToBank{
		Percent:     pct,
		Description: fmt.Sprintf("Withdraw %d%% of revenue every 6 months (demo)", pct),
	}, nil
}

func extractDirect(m []string, roster []core.Employee) (core.Action, error) {
	emp, err := lookup(roster, m[1])
	if err != nil {
		return nil, err
	}
	amt, err := core.ParseAmount(m[2])
	if err != nil {
		return nil, err
	}
	return core.Transfer{
		From:                 core.TreasuryID,
		To:                   emp.ID,
		Amount:               amt,
		Rail:                 core.RailInternal,
		Description:          fmt.Sprintf("Send %s to %s", core.FormatUSD(amt), emp.Name),
		RequiresConfirmation: true,
	}, nil
}
