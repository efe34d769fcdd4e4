package ledger

import (
	"fmt"
	"time"

	"runpay/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reducer applies actions to a State. Clock and id source are injectable so
// entries are reproducible in tests.
type Reducer struct {
	now   func() time.Time
	newID func() uuid.UUID
}

type Option func(*Reducer)

func WithClock(now func() time.Time) Option {
	return func(r *Reducer) { r.now = now }
}

func WithIDs(newID func() uuid.UUID) Option {
	return func(r *Reducer) { r.newID = newID }
}

func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{now: time.Now, newID: uuid.New}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultReducer = NewReducer()

// Apply applies a with the default reducer.
func Apply(s State, a core.Action) (State, core.LogEntry) {
	return defaultReducer.Apply(s, a)
}

// Apply returns the next state and the entry describing what happened. It
// never fails: refused actions leave balances untouched and are recorded
// with StatusRejected, and actions that reference no ledger account are
// recorded with StatusIgnored. The entry is also appended to the log of
// the returned state. The balances and log seen through s are not modified.
func (r *Reducer) Apply(s State, a core.Action) (State, core.LogEntry) {
	next := s.Clone()
	entry := core.LogEntry{
		ID:          r.newID(),
		Time:        r.now().UTC(),
		Kind:        a.Kind(),
		Status:      core.StatusApplied,
		Description: a.Describe(),
	}

	var changed bool
	switch act := a.(type) {
	case core.Transfer:
		entry, changed = next.transfer(act, entry)
	case core.LoopBirthdayBonus:
		entry, changed = next.birthday(act, entry)
	case core.WithdrawToBank:
		entry, changed = next.withdraw(act, entry)
	case core.Summary:
		report := Report(next)
		entry.Report = &report
		entry.Amount = report.QuarterYield
		entry.Description = report.String()
	case core.Unknown:
		entry.Status = core.StatusIgnored
		entry.Description = act.RawText
		entry = entry.WithErr(act.Cause)
	default:
		entry.Status = core.StatusIgnored
		entry = entry.WithErr(fmt.Errorf("unsupported action %T", a))
	}

	if changed {
		next.Version++
	}
	next.record(entry)
	return next, entry
}

// Report derives the summary figures from s. It does not touch s.
func Report(s State) core.SummaryReport {
	return core.SummaryReport{
		Payroll:         s.Figures.Payroll,
		Vendors:         s.Figures.Vendors,
		QuarterYield:    core.QuarterYield(s.Treasury.Balance, s.Treasury.YieldRate),
		TreasuryBalance: s.Treasury.Balance,
		YieldRate:       s.Treasury.YieldRate,
		EmployeeCount:   len(s.Employees),
	}
}

func reject(entry core.LogEntry, err error) (core.LogEntry, bool) {
	entry.Status = core.StatusRejected
	return entry.WithErr(err), false
}

// debit returns balance minus amount, honouring the underfunded policy.
func (s *State) debit(owner string, balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if balance.GreaterThanOrEqual(amount) {
		return balance.Sub(amount), nil
	}
	if s.Policy == PolicyClamp {
		return decimal.Zero, nil
	}
	return balance, fmt.Errorf("%w: %s has %s, needs %s",
		core.ErrInsufficientBalance, owner, core.FormatUSD(balance), core.FormatUSD(amount))
}

func (s *State) transfer(t core.Transfer, entry core.LogEntry) (core.LogEntry, bool) {
	entry.From, entry.To, entry.Amount = t.From, t.To, t.Amount
	if t.Amount.IsNegative() {
		return reject(entry, core.ErrInvalidAmount)
	}

	switch {
	case t.From == core.TreasuryID:
		i := s.employeeIndex(t.To)
		if i < 0 {
			entry.Status = core.StatusIgnored
			return entry, false
		}
		bal, err := s.debit(string(core.TreasuryID), s.Treasury.Balance, t.Amount)
		if err != nil {
			return reject(entry, err)
		}
		s.Treasury.Balance = bal
		s.Employees[i].Balance = s.Employees[i].Balance.Add(t.Amount)
	case t.To == core.TreasuryID:
		i := s.employeeIndex(t.From)
		if i < 0 {
			entry.Status = core.StatusIgnored
			return entry, false
		}
		bal, err := s.debit(s.Employees[i].Name, s.Employees[i].Balance, t.Amount)
		if err != nil {
			return reject(entry, err)
		}
		s.Employees[i].Balance = bal
		s.Treasury.Balance = s.Treasury.Balance.Add(t.Amount)
	default:
		entry.Status = core.StatusIgnored
		return entry, false
	}
	return entry, true
}

func (s *State) birthday(b core.LoopBirthdayBonus, entry core.LogEntry) (core.LogEntry, bool) {
	if b.AmountPerEmployee.IsNegative() {
		return reject(entry, core.ErrInvalidAmount)
	}
	total := b.AmountPerEmployee.Mul(decimal.NewFromInt(int64(len(s.Employees))))
	entry.From, entry.Amount = core.TreasuryID, total

	bal, err := s.debit(string(core.TreasuryID), s.Treasury.Balance, total)
	if err != nil {
		return reject(entry, err)
	}
	s.Treasury.Balance = bal
	for i := range s.Employees {
		s.Employees[i].Balance = s.Employees[i].Balance.Add(b.AmountPerEmployee)
	}
	return entry, true
}

func (s *State) withdraw(w core.WithdrawToBank, entry core.LogEntry) (core.LogEntry, bool) {
	entry.Kind = core.KindBankWithdraw
	entry.From = core.TreasuryID
	entry.Percent = w.Percent
	if w.Percent < 0 || w.Percent > 100 {
		return reject(entry, core.ErrInvalidPercent)
	}
	amount := core.Percent(s.Treasury.Balance, w.Percent)
	entry.Amount = amount

	bal, err := s.debit(string(core.TreasuryID), s.Treasury.Balance, amount)
	if err != nil {
		return reject(entry, err)
	}
	s.Treasury.Balance = bal
	return entry, true
}
