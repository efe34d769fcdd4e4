package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags a log entry with the action that produced it.
type Kind string

const (
	KindTransfer       Kind = "transfer"
	KindSendUSDC       Kind = "send-usdc"
	KindLoopBirthday   Kind = "loop-birthday"
	KindWithdrawToBank Kind = "withdraw-to-bank"
	KindBankWithdraw   Kind = "bank-withdraw"
	KindSummary        Kind = "summary"
	KindUnknown        Kind = "unknown"
)

// Status tells whether an entry moved any money.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
	StatusIgnored  Status = "ignored"
)

// LogEntry is one line of the activity log.
type LogEntry struct {
	ID          uuid.UUID       `json:"id"`
	Time        time.Time       `json:"time"`
	Kind        Kind            `json:"kind"`
	Status      Status          `json:"status"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	From        AccountID       `json:"from,omitempty"`
	To          AccountID       `json:"to,omitempty"`
	Percent     int             `json:"percent,omitempty"`
	Report      *SummaryReport  `json:"report,omitempty"`
	Err         error           `json:"-"`
	Reason      string          `json:"reason,omitempty"`
}

// WithErr records err on the entry and mirrors its text into Reason.
func (e LogEntry) WithErr(err error) LogEntry {
	e.Err = err
	if err != nil {
		e.Reason = err.Error()
	}
	return e
}

func (e LogEntry) Applied() bool { return e.Status == StatusApplied }
