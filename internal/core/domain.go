package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TreasuryID identifies the company account every payroll movement goes through.
const TreasuryID AccountID = "treasury"

const (
	AutomationActive   AutomationStatus = "active"
	AutomationPaused   AutomationStatus = "paused"
	AutomationDisabled AutomationStatus = "disabled"
)

const (
	Intercom IntegrationID = "intercom"
	Linear   IntegrationID = "linear"
	Calendly IntegrationID = "calendly"
)

type (
	AccountID        string
	AutomationStatus string
	IntegrationID    string

	Account struct {
		ID        AccountID       `json:"id" yaml:"id"`
		Name      string          `json:"name" yaml:"name"`
		Balance   decimal.Decimal `json:"balance" yaml:"balance"`
		YieldRate decimal.Decimal `json:"yield_rate" yaml:"yield_rate"`
	}

	Employee struct {
		ID      AccountID       `json:"id" yaml:"id"`
		Name    string          `json:"name" yaml:"name"`
		Role    string          `json:"role" yaml:"role"`
		Email   string          `json:"email" yaml:"email"`
		Balance decimal.Decimal `json:"balance" yaml:"balance"`
	}

	Integration struct {
		ID          IntegrationID `json:"id" yaml:"id"`
		Name        string        `json:"name" yaml:"name"`
		Description string        `json:"description" yaml:"description"`
		Connected   bool          `json:"connected" yaml:"connected"`
	}

	Automation struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		Description string           `json:"description"`
		Recipients  []string         `json:"recipients"`
		Amount      decimal.Decimal  `json:"amount"`
		Processed   decimal.Decimal  `json:"processed"`
		Status      AutomationStatus `json:"status"`
		Prompt      string           `json:"prompt,omitempty"`
		CreatedAt   time.Time        `json:"created_at"`
	}

	// Seed is the starting roster consumed once at process start.
	Seed struct {
		Treasury     Account       `yaml:"treasury"`
		Employees    []Employee    `yaml:"employees"`
		Integrations []Integration `yaml:"integrations"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPercent      = errors.New("percent must be between 0 and 100")
	ErrNoSuchEmployee      = errors.New("no such employee")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEmptyPrompt         = errors.New("empty prompt")
	ErrEmptyName           = errors.New("empty name")
	ErrNoPendingAction     = errors.New("no such pending action")
	ErrUnknownFlow         = errors.New("unknown guided flow")
	ErrNoSuchAutomation    = errors.New("no such automation")
	ErrNoSuchIntegration   = errors.New("no such integration")
	ErrInvalidStatus       = errors.New("invalid automation status")
	ErrDuplicateFirstName  = errors.New("first name already on the roster")
)

// FirstName returns the first whitespace-separated token of the name.
func (e Employee) FirstName() string {
	fields := strings.Fields(e.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (e Employee) Validate() error {
	if strings.TrimSpace(string(e.ID)) == "" {
		return errors.New("empty employee id")
	}
	if e.ID == TreasuryID {
		return fmt.Errorf("employee id %q is reserved", e.ID)
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if e.Balance.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (a Account) Validate() error {
	if a.ID != TreasuryID {
		return fmt.Errorf("treasury account must have id %q, got %q", TreasuryID, a.ID)
	}
	if a.Balance.IsNegative() {
		return ErrInvalidAmount
	}
	if a.YieldRate.IsNegative() || a.YieldRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("yield rate must be between 0 and 1")
	}
	return nil
}

// Label returns the human-readable status.
func (s AutomationStatus) Label() string {
	switch s {
	case AutomationPaused:
		return "Paused"
	case AutomationDisabled:
		return "Disabled"
	default:
		return "Active"
	}
}

func (s AutomationStatus) Valid() bool {
	switch s {
	case AutomationActive, AutomationPaused, AutomationDisabled:
		return true
	default:
		return false
	}
}

// HasRecipient reports whether name is among the recipients, ignoring case.
func (a Automation) HasRecipient(name string) bool {
	for _, r := range a.Recipients {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

func (a Automation) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if len(a.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	if a.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !a.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Validate checks that the seed has a treasury and a roster with unique ids
// and first names.
func (s Seed) Validate() error {
	if err := s.Treasury.Validate(); err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	ids := make(map[AccountID]struct{}, len(s.Employees))
	names := make(map[string]struct{}, len(s.Employees))
	for i, e := range s.Employees {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("employee %d: %w", i, err)
		}
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("employee %d: duplicate id %q", i, e.ID)
		}
		ids[e.ID] = struct{}{}
		first := strings.ToLower(e.FirstName())
		if _, dup := names[first]; dup {
			return fmt.Errorf("employee %d: duplicate first name %q", i, e.FirstName())
		}
		names[first] = struct{}{}
	}
	seen := make(map[IntegrationID]struct{}, len(s.Integrations))
	for _, in := range s.Integrations {
		if _, dup := seen[in.ID]; dup {
			return fmt.Errorf("duplicate integration %q", in.ID)
		}
		seen[in.ID] = struct{}{}
	}
	return nil
}
