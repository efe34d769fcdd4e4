// Package services holds the console controller: the single writer that owns
// the ledger state and runs prompt matching, reduction, guided flows and
// confirmations behind one lock.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"runpay/internal/cache"
	"runpay/internal/core"
	"runpay/internal/flow"
	"runpay/internal/ledger"
	"runpay/internal/log"
	"runpay/internal/prompt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Publisher ships activity entries to the export pipeline.
type Publisher interface {
	PublishActivity(ctx context.Context, e core.LogEntry) error
}

// Observer is told about every recorded entry.
type Observer interface {
	ObserveEntry(e core.LogEntry, treasury float64)
}

type Options struct {
	Reducer   *ledger.Reducer
	Matcher   *prompt.Matcher
	Publisher Publisher
	Observer  Observer
	Logger    *log.Logger
	// Summaries memoizes summary previews by ledger version.
	Summaries *cache.LRUCache[int64, core.SummaryReport]
	Now       func() time.Time
	NewID     func() uuid.UUID
}

type PendingAction struct {
	ID        uuid.UUID     `json:"id"`
	Action    core.Transfer `json:"action"`
	Prompt    string        `json:"prompt"`
	CreatedAt time.Time     `json:"created_at"`

	seq uint64
}

type FlowReply struct {
	Flow        core.IntegrationID `json:"flow"`
	Step        int                `json:"step"`
	Message     string             `json:"message"`
	Configuring bool               `json:"configuring,omitempty"`
	Final       bool               `json:"final,omitempty"`
}

// SubmitResult reports what a submit did. Exactly one of Entry, Pending and
// Flow is set.
type SubmitResult struct {
	Prompt     string           `json:"prompt"`
	Kind       core.Kind        `json:"kind,omitempty"`
	Action     core.Action      `json:"action,omitempty"`
	Entry      *core.LogEntry   `json:"entry,omitempty"`
	Pending    *PendingAction   `json:"pending,omitempty"`
	Flow       *FlowReply       `json:"flow,omitempty"`
	Automation *core.Automation `json:"automation,omitempty"`
}

type Snapshot struct {
	Treasury  core.Account    `json:"treasury"`
	Employees []core.Employee `json:"employees"`
	Version   int64           `json:"version"`
	Policy    string          `json:"policy"`
}

type AutomationUpdate struct {
	Name        *string
	Description *string
	Recipients  []string
	Amount      *decimal.Decimal
	Status      *core.AutomationStatus
}

type Console struct {
	mu           sync.Mutex
	state        ledger.State
	reducer      *ledger.Reducer
	matcher      *prompt.Matcher
	session      *flow.Session
	pending      map[uuid.UUID]PendingAction
	pendingSeq   uint64
	automations  []core.Automation
	integrations []core.Integration

	publisher  Publisher
	observer   Observer
	logger     *log.Logger
	structured *log.StructuredLogger
	summaries  *cache.LRUCache[int64, core.SummaryReport]
	now        func() time.Time
	newID      func() uuid.UUID
}

// NewConsole takes ownership of state. Nil options get defaults.
func NewConsole(state ledger.State, integrations []core.Integration, opts Options) *Console {
	c := &Console{
		state:        state,
		reducer:      opts.Reducer,
		matcher:      opts.Matcher,
		pending:      make(map[uuid.UUID]PendingAction),
		integrations: append([]core.Integration(nil), integrations...),
		publisher:    opts.Publisher,
		observer:     opts.Observer,
		logger:       opts.Logger,
		summaries:    opts.Summaries,
		now:          opts.Now,
		newID:        opts.NewID,
	}
	if c.reducer == nil {
		c.reducer = ledger.NewReducer()
	}
	if c.matcher == nil {
		c.matcher = prompt.NewMatcher()
	}
	if c.logger == nil {
		c.logger = log.New(log.DefaultConfig())
	}
	c.logger = c.logger.WithComponent(log.ComponentConsole)
	c.structured = log.NewStructuredLogger(c.logger)
	if c.summaries == nil {
		c.summaries = cache.NewLRUCache[int64, core.SummaryReport](16, 0)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.New
	}
	return c
}

// Submit handles one line of console input.
func (c *Console) Submit(ctx context.Context, text string) (SubmitResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return SubmitResult{}, core.ErrEmptyPrompt
	}
	res := SubmitResult{Prompt: trimmed}

	c.mu.Lock()
	if c.session != nil {
		defer c.mu.Unlock()
		return c.advanceFlowLocked(ctx, res)
	}
	if def, ok := flow.Lookup(trimmed); ok {
		defer c.mu.Unlock()
		session, step := flow.Start(def)
		c.session = session
		res.Flow = &FlowReply{Flow: def.ID, Step: 0, Message: step.Message, Configuring: step.Configuring}
		c.logger.InfoContext(ctx, "Guided flow started", log.FieldOperation, log.OpFlow, log.FieldFlow, string(def.ID))
		return res, nil
	}

	action, rule := c.matcher.Trace(trimmed, c.state.Employees)
	res.Action, res.Kind = action, action.Kind()
	c.logger.DebugContext(ctx, "Prompt matched", log.FieldRule, rule, log.FieldKind, string(action.Kind()))

	if t, ok := action.(core.Transfer); ok && t.RequiresConfirmation {
		c.pendingSeq++
		p := PendingAction{ID: c.newID(), Action: t, Prompt: trimmed, CreatedAt: c.now().UTC(), seq: c.pendingSeq}
		c.pending[p.ID] = p
		c.mu.Unlock()
		res.Pending = &p
		c.logger.InfoContext(ctx, "Transfer awaiting confirmation",
			log.FieldOperation, log.OpSubmit, log.FieldTo, string(t.To), log.FieldAmount, t.Amount.String())
		return res, nil
	}

	entry := c.applyLocked(ctx, log.OpSubmit, action)
	res.Entry = &entry
	if entry.Applied() {
		if a, ok := c.automationFor(action, entry, trimmed); ok {
			c.automations = append([]core.Automation{a}, c.automations...)
			res.Automation = &a
		}
	}
	c.mu.Unlock()

	c.publish(ctx, entry)
	return res, nil
}

func (c *Console) advanceFlowLocked(ctx context.Context, res SubmitResult) (SubmitResult, error) {
	id := c.session.Flow()
	index := c.session.Step()
	step, done, err := c.session.Advance(res.Prompt)
	if err != nil {
		c.session = nil
		return res, err
	}
	res.Flow = &FlowReply{Flow: id, Step: index, Message: step.Message, Configuring: step.Configuring, Final: step.Final}
	c.logger.InfoContext(ctx, "Guided flow advanced",
		log.FieldOperation, log.OpFlow, log.FieldFlow, string(id), log.FieldStep, index)
	if done == nil {
		return res, nil
	}

	c.session = nil
	for _, m := range done.Members {
		if _, _, err := c.upsertLocked(m); err != nil {
			c.logger.WarnContext(ctx, "Flow member not added",
				log.FieldOperation, log.OpFlow, log.FieldFlow, string(id), log.FieldError, err)
		}
	}
	a := core.Automation{
		ID:          c.newID().String(),
		Name:        done.Automation.Name,
		Description: done.Automation.Description,
		Amount:      done.Automation.Amount,
		Processed:   done.Automation.Processed,
		Status:      core.AutomationActive,
		Prompt:      done.Prompt,
		CreatedAt:   c.now().UTC(),
	}
	for _, m := range done.Members {
		a.Recipients = append(a.Recipients, m.Name)
	}
	c.automations = append([]core.Automation{a}, c.automations...)
	res.Automation = &a
	for i := range c.integrations {
		if c.integrations[i].ID == done.Flow {
			c.integrations[i].Connected = true
		}
	}
	return res, nil
}

// applyLocked runs the reducer and records the result. c.mu must be held.
func (c *Console) applyLocked(ctx context.Context, op string, a core.Action) core.LogEntry {
	next, entry := c.reducer.Apply(c.state, a)
	c.state = next
	c.structured.LogEntryRecorded(ctx, op, entry)
	if c.observer != nil {
		c.observer.ObserveEntry(entry, c.state.Treasury.Balance.InexactFloat64())
	}
	return entry
}

func (c *Console) automationFor(a core.Action, e core.LogEntry, text string) (core.Automation, bool) {
	auto := core.Automation{
		ID:          c.newID().String(),
		Description: e.Description,
		Status:      core.AutomationActive,
		Prompt:      text,
		CreatedAt:   c.now().UTC(),
	}
	switch act := a.(type) {
	case core.LoopBirthdayBonus:
		auto.Name = "Birthday Bonus"
		auto.Amount = act.AmountPerEmployee
		for _, emp := range c.state.Employees {
			auto.Recipients = append(auto.Recipients, emp.FirstName())
		}
	case core.WithdrawToBank:
		auto.Name = "Revenue Withdrawal"
		auto.Amount = e.Amount
		auto.Recipients = []string{"Treasury"}
	default:
		return core.Automation{}, false
	}
	return auto, true
}

func (c *Console) publish(ctx context.Context, e core.LogEntry) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishActivity(ctx, e); err != nil {
		c.structured.LogError(ctx, "Failed to publish activity", err, log.OpPublish,
			log.NewFields().WithEntry(e))
	}
}

// Confirm applies a pending transfer.
func (c *Console) Confirm(ctx context.Context, id uuid.UUID) (core.LogEntry, error) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return core.LogEntry{}, fmt.Errorf("%w: %s", core.ErrNoPendingAction, id)
	}
	delete(c.pending, id)
	t := p.Action
	t.RequiresConfirmation = false
	entry := c.applyLocked(ctx, log.OpConfirm, t)
	c.mu.Unlock()

	c.publish(ctx, entry)
	return entry, nil
}

// Cancel drops a pending transfer without touching the ledger.
func (c *Console) Cancel(ctx context.Context, id uuid.UUID) (PendingAction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	if !ok {
		return PendingAction{}, fmt.Errorf("%w: %s", core.ErrNoPendingAction, id)
	}
	delete(c.pending, id)
	c.logger.InfoContext(ctx, "Pending transfer cancelled", log.FieldOperation, log.OpCancel, log.FieldTo, string(p.Action.To))
	return p, nil
}

// RunSummary records a summary entry in the activity log.
func (c *Console) RunSummary(ctx context.Context) core.LogEntry {
	c.mu.Lock()
	entry := c.applyLocked(ctx, log.OpSummary, core.Summary{})
	c.mu.Unlock()

	c.publish(ctx, entry)
	return entry
}

// PreviewSummary returns the current summary figures without logging.
func (c *Console) PreviewSummary() core.SummaryReport {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	return c.summaries.GetOrCompute(state.Version, func() core.SummaryReport {
		return ledger.Report(state)
	})
}

// AddEmployee adds a team member or updates role and e-mail of the one with
// the same name. It reports whether a new member was created.
func (c *Console) AddEmployee(ctx context.Context, name, role, email string) (core.Employee, bool, error) {
	e := core.Employee{Name: strings.TrimSpace(name), Role: strings.TrimSpace(role), Email: strings.TrimSpace(email)}
	e.Balance = flow.StartingBalance(e.Name)
	if e.Name == "" {
		return core.Employee{}, false, core.ErrEmptyName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out, added, err := c.upsertLocked(e)
	if err != nil {
		return core.Employee{}, false, err
	}
	c.logger.InfoContext(ctx, "Team member saved",
		log.FieldOperation, log.OpUpsert, "employee_id", string(out.ID), "created", added)
	return out, added, nil
}

func (c *Console) upsertLocked(e core.Employee) (core.Employee, bool, error) {
	if e.ID == "" {
		e.ID = c.employeeIDLocked(e.Name)
	}
	next, added, err := c.state.UpsertEmployee(e)
	if err != nil {
		return core.Employee{}, false, err
	}
	c.state = next
	for _, emp := range next.Employees {
		if strings.EqualFold(emp.Name, e.Name) {
			return emp, added, nil
		}
	}
	return e, added, nil
}

func (c *Console) employeeIDLocked(name string) core.AccountID {
	base := "emp-" + strings.Join(strings.Fields(strings.ToLower(name)), "-")
	id := core.AccountID(base)
	for n := 2; ; n++ {
		if _, taken := c.state.Employee(id); !taken {
			return id
		}
		id = core.AccountID(fmt.Sprintf("%s-%d", base, n))
	}
}

// UpdateAutomation applies the non-nil fields of u to automation id.
func (c *Console) UpdateAutomation(ctx context.Context, id string, u AutomationUpdate) (core.Automation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, a := range c.automations {
		if a.ID != id {
			continue
		}
		if u.Name != nil {
			a.Name = strings.TrimSpace(*u.Name)
		}
		if u.Description != nil {
			a.Description = strings.TrimSpace(*u.Description)
		}
		if u.Recipients != nil {
			a.Recipients = append([]string(nil), u.Recipients...)
		}
		if u.Amount != nil {
			a.Amount = *u.Amount
		}
		if u.Status != nil {
			a.Status = *u.Status
		}
		if err := a.Validate(); err != nil {
			return core.Automation{}, err
		}
		c.automations[i] = a
		c.logger.InfoContext(ctx, "Automation updated", log.FieldOperation, log.OpUpdate, "automation_id", id)
		return a, nil
	}
	return core.Automation{}, fmt.Errorf("%w: %s", core.ErrNoSuchAutomation, id)
}

// ConnectIntegration marks an integration connected.
func (c *Console) ConnectIntegration(ctx context.Context, id core.IntegrationID) (core.Integration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.integrations {
		if c.integrations[i].ID == id {
			c.integrations[i].Connected = true
			c.logger.InfoContext(ctx, "Integration connected", log.FieldOperation, log.OpConnect, "integration", string(id))
			return c.integrations[i], nil
		}
	}
	return core.Integration{}, fmt.Errorf("%w: %s", core.ErrNoSuchIntegration, id)
}

func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Treasury:  c.state.Treasury,
		Employees: c.state.Roster(),
		Version:   c.state.Version,
		Policy:    string(c.state.Policy),
	}
}

// Activity returns up to limit entries, newest first. limit <= 0 means all.
func (c *Console) Activity(limit int) []core.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Entries(limit)
}

func (c *Console) Automations() []core.Automation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Automation(nil), c.automations...)
}

// AutomationsFor returns the automations whose recipients include name.
func (c *Console) AutomationsFor(name string) []core.Automation {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.Automation
	for _, a := range c.automations {
		if a.HasRecipient(name) {
			out = append(out, a)
		}
	}
	return out
}

func (c *Console) Integrations() []core.Integration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Integration(nil), c.integrations...)
}

// Pending returns the transfers awaiting confirmation, newest first.
func (c *Console) Pending() []PendingAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PendingAction, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].seq > out[j].seq
	})
	return out
}

// ActiveFlow reports the running guided flow, if any.
func (c *Console) ActiveFlow() (core.IntegrationID, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return "", 0, false
	}
	return c.session.Flow(), c.session.Step(), true
}
