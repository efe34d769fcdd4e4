package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rail is the payment rail a Transfer travels on.
type Rail string

const (
	RailInternal Rail = "internal"
	RailUSDC     Rail = "usdc"
)

// Action is a typed intent derived from user text. The set of cases is
// closed: Transfer, WithdrawToBank, LoopBirthdayBonus, Summary and Unknown.
type Action interface {
	Kind() Kind
	Describe() string
	isAction()
}

type (
	Transfer struct {
		From                 AccountID       `json:"from"`
		To                   AccountID       `json:"to"`
		Amount               decimal.Decimal `json:"amount"`
		Rail                 Rail            `json:"rail"`
		Description          string          `json:"description"`
		RequiresConfirmation bool            `json:"requires_confirmation,omitempty"`
	}

	WithdrawToBank struct {
		Percent     int    `json:"percent"`
		Description string `json:"description"`
	}

	LoopBirthdayBonus struct {
		AmountPerEmployee decimal.Decimal `json:"amount_per_employee"`
		Description       string          `json:"description"`
	}

	Summary struct{}

	// Unknown carries the raw input. Cause is set when a phrase was
	// recognized but referenced something that does not resolve.
	Unknown struct {
		RawText string `json:"raw_text"`
		Cause   error  `json:"-"`
	}
)

func (Transfer) isAction()          {}
func (WithdrawToBank) isAction()    {}
func (LoopBirthdayBonus) isAction() {}
func (Summary) isAction()           {}
func (Unknown) isAction()           {}

func (t Transfer) Kind() Kind {
	if t.Rail == RailUSDC {
		return KindSendUSDC
	}
	return KindTransfer
}

func (WithdrawToBank) Kind() Kind    { return KindWithdrawToBank }
func (LoopBirthdayBonus) Kind() Kind { return KindLoopBirthday }
func (Summary) Kind() Kind           { return KindSummary }
func (Unknown) Kind() Kind           { return KindUnknown }

func (t Transfer) Describe() string {
	if t.Description != "" {
		return t.Description
	}
	return fmt.Sprintf("Transfer %s from %s to %s", FormatUSD(t.Amount), t.From, t.To)
}

func (w WithdrawToBank) Describe() string {
	if w.Description != "" {
		return w.Description
	}
	return fmt.Sprintf("Withdraw %d%% of treasury to bank", w.Percent)
}

func (l LoopBirthdayBonus) Describe() string {
	if l.Description != "" {
		return l.Description
	}
	return fmt.Sprintf("Send %s to each employee on birthday", FormatUSD(l.AmountPerEmployee))
}

func (Summary) Describe() string { return "Summary" }

func (u Unknown) Describe() string { return u.RawText }
