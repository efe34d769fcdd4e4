// Package ledger holds the in-memory balances and activity log, and the
// reducer that applies actions to them.
package ledger

import (
	"fmt"
	"strings"
	"sync"

	"runpay/internal/core"

	"github.com/shopspring/decimal"
)

// UnderfundedPolicy decides what happens when a debit exceeds the balance.
type UnderfundedPolicy string

const (
	// PolicyReject leaves every balance untouched and records a rejected entry.
	PolicyReject UnderfundedPolicy = "reject"
	// PolicyClamp floors the debited balance at zero and credits in full.
	PolicyClamp UnderfundedPolicy = "clamp"
)

// ParsePolicy accepts "reject" or "clamp"; empty selects PolicyReject.
func ParsePolicy(s string) (UnderfundedPolicy, error) {
	switch p := UnderfundedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyReject, nil
	case PolicyReject, PolicyClamp:
		return p, nil
	default:
		return "", fmt.Errorf("unknown underfunded policy %q", s)
	}
}

// SummaryFigures are the mock payroll and vendor totals reported by a summary.
type SummaryFigures struct {
	Payroll decimal.Decimal
	Vendors decimal.Decimal
}

// DefaultFigures returns the figures used when none are configured.
func DefaultFigures() SummaryFigures {
	return SummaryFigures{
		Payroll: decimal.NewFromInt(42000),
		Vendors: decimal.NewFromInt(18500),
	}
}

// State is the ledger value threaded through the reducer. Version increases
// every time a balance or the roster changes.
type State struct {
	Treasury  core.Account
	Employees []core.Employee
	Version   int64
	Policy    UnderfundedPolicy
	Figures   SummaryFigures

	log    *activityLog
	logLen int
}

// activityLog is an append-only entry store shared by successive states. A
// state sees entries[:n]. Appending from the newest state extends the store
// in place; appending from an older one copies its prefix first.
type activityLog struct {
	mu      sync.RWMutex
	entries []core.LogEntry
}

func (l *activityLog) appendAt(n int, e core.LogEntry) *activityLog {
	if l == nil {
		return &activityLog{entries: []core.LogEntry{e}}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == n {
		l.entries = append(l.entries, e)
		return l
	}
	entries := make([]core.LogEntry, n, n+1)
	copy(entries, l.entries[:n])
	return &activityLog{entries: append(entries, e)}
}

// record appends e to the log seen by s.
func (s *State) record(e core.LogEntry) {
	s.log = s.log.appendAt(s.logLen, e)
	s.logLen++
}

// LogLen is the number of entries recorded so far.
func (s State) LogLen() int { return s.logLen }

// Entries returns up to limit entries, newest first. limit <= 0 means all.
func (s State) Entries(limit int) []core.LogEntry {
	n := s.logLen
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.LogEntry, 0, n)
	if n == 0 {
		return out
	}
	s.log.mu.RLock()
	defer s.log.mu.RUnlock()
	for i := s.logLen - 1; i >= s.logLen-n; i-- {
		out = append(out, s.log.entries[i])
	}
	return out
}

// NewState seeds a ledger from s with an empty log.
func NewState(s core.Seed, policy UnderfundedPolicy, figures SummaryFigures) State {
	if policy == "" {
		policy = PolicyReject
	}
	employees := make([]core.Employee, len(s.Employees))
	copy(employees, s.Employees)
	return State{
		Treasury:  s.Treasury,
		Employees: employees,
		Policy:    policy,
		Figures:   figures,
	}
}

// Clone returns a copy whose roster shares nothing with s. The activity log
// is append-only and stays shared.
func (s State) Clone() State {
	c := s
	c.Employees = make([]core.Employee, len(s.Employees))
	copy(c.Employees, s.Employees)
	return c
}

// Roster returns a copy of the employee list.
func (s State) Roster() []core.Employee {
	out := make([]core.Employee, len(s.Employees))
	copy(out, s.Employees)
	return out
}

func (s State) employeeIndex(id core.AccountID) int {
	for i, e := range s.Employees {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Employee returns the employee with the given id.
func (s State) Employee(id core.AccountID) (core.Employee, bool) {
	i := s.employeeIndex(id)
	if i < 0 {
		return core.Employee{}, false
	}
	return s.Employees[i], true
}

// Total is the treasury balance plus every employee balance.
func (s State) Total() decimal.Decimal {
	total := s.Treasury.Balance
	for _, e := range s.Employees {
		total = total.Add(e.Balance)
	}
	return total
}

// UpsertEmployee adds e, or updates role and email of the employee whose
// name matches case-insensitively. An empty email keeps the existing one.
// It reports whether a new employee was added. Prompts address people by
// first name, so a new member whose first name is already taken is refused
// with core.ErrDuplicateFirstName and s is returned unchanged.
func (s State) UpsertEmployee(e core.Employee) (State, bool, error) {
	for i, existing := range s.Employees {
		if strings.EqualFold(existing.Name, e.Name) {
			next := s.Clone()
			next.Version++
			next.Employees[i].Role = e.Role
			if e.Email != "" {
				next.Employees[i].Email = e.Email
			}
			return next, false, nil
		}
	}
	for _, existing := range s.Employees {
		if strings.EqualFold(existing.FirstName(), e.FirstName()) {
			return s, false, fmt.Errorf("%w: %s (held by %s)", core.ErrDuplicateFirstName, e.FirstName(), existing.Name)
		}
	}
	next := s.Clone()
	next.Version++
	next.Employees = append(next.Employees, e)
	return next, true, nil
}
