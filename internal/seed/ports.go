// Package seed defines where the starting ledger comes from. Seeds are read
// once at process start; nothing writes back to a seed source.
package seed

import (
	"context"

	"runpay/internal/core"

	"github.com/shopspring/decimal"
)

// Reader is the port every seed source implements.
type Reader interface {
	ReadSeed(ctx context.Context) (core.Seed, error)
}

// Default returns the built-in seed used when no seed file exists.
func Default() core.Seed {
	return core.Seed{
		Treasury: core.Account{
			ID:        core.TreasuryID,
			Name:      "Treasury",
			Balance:   decimal.NewFromInt(250000),
			YieldRate: decimal.RequireFromString("0.045"),
		},
		Employees: []core.Employee{
			{ID: "emp-ben", Name: "Ben", Role: "Engineer", Balance: decimal.NewFromInt(5000)},
		},
		Integrations: DefaultIntegrations(),
	}
}

func DefaultIntegrations() []core.Integration {
	return []core.Integration{
		{ID: core.Intercom, Name: "Intercom", Description: "Customer support ratings and payouts"},
		{ID: core.Linear, Name: "Linear", Description: "Sprint completion bonuses"},
		{ID: core.Calendly, Name: "Calendly", Description: "Demo booking incentives"},
	}
}
