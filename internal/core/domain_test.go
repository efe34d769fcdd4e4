package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func seedFixture() Seed {
	return Seed{
		Treasury: Account{ID: TreasuryID, Name: "Treasury", Balance: decimal.NewFromInt(250000), YieldRate: decimal.RequireFromString("0.045")},
		Employees: []Employee{
			{ID: "ben", Name: "Ben Carter", Balance: decimal.NewFromInt(5000)},
			{ID: "sarah", Name: "Sarah Kim", Balance: decimal.NewFromInt(4500)},
		},
		Integrations: []Integration{{ID: Linear, Name: "Linear"}},
	}
}

func TestSeedValidate(t *testing.T) {
	if err := seedFixture().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := map[string]func(*Seed){
		"treasury id":    func(s *Seed) { s.Treasury.ID = "bank" },
		"negative":       func(s *Seed) { s.Treasury.Balance = decimal.NewFromInt(-1) },
		"yield":          func(s *Seed) { s.Treasury.YieldRate = decimal.NewFromInt(2) },
		"empty name":     func(s *Seed) { s.Employees[0].Name = "  " },
		"reserved id":    func(s *Seed) { s.Employees[0].ID = TreasuryID },
		"duplicate id":   func(s *Seed) { s.Employees[1].ID = "ben" },
		"duplicate name": func(s *Seed) { s.Employees[1].Name = "BEN Other" },
		"integration":    func(s *Seed) { s.Integrations = append(s.Integrations, Integration{ID: Linear}) },
	}
	for name, mutate := range bads {
		s := seedFixture()
		mutate(&s)
		if err := s.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEmployeeFirstName(t *testing.T) {
	cases := map[string]string{
		"Ben Carter": "Ben",
		"  Priya  ":  "Priya",
		"":           "",
	}
	for in, want := range cases {
		if got := (Employee{Name: in}).FirstName(); got != want {
			t.Fatalf("FirstName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAutomationValidate(t *testing.T) {
	good := Automation{Name: "Birthday bonus", Amount: decimal.NewFromInt(100), Status: AutomationActive}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Status = "running"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	bad = good
	bad.Amount = decimal.NewFromInt(-5)
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestActionKinds(t *testing.T) {
	cases := []struct {
		a    Action
		want Kind
	}{
		{Transfer{Rail: RailInternal}, KindTransfer},
		{Transfer{Rail: RailUSDC}, KindSendUSDC},
		{WithdrawToBank{Percent: 20}, KindWithdrawToBank},
		{LoopBirthdayBonus{}, KindLoopBirthday},
		{Summary{}, KindSummary},
		{Unknown{RawText: "hello"}, KindUnknown},
	}
	for _, tc := range cases {
		if got := tc.a.Kind(); got != tc.want {
			t.Fatalf("%T kind = %s, want %s", tc.a, got, tc.want)
		}
	}
	if got := (Unknown{RawText: "hello there"}).Describe(); got != "hello there" {
		t.Fatalf("unexpected describe %q", got)
	}
}

func TestQuarterYield(t *testing.T) {
	got := QuarterYield(decimal.NewFromInt(250000), decimal.RequireFromString("0.045"))
	if !got.Equal(decimal.RequireFromString("2812.5")) {
		t.Fatalf("QuarterYield = %s, want 2812.5", got)
	}
}
