package models

import "time"

// AdminUserID is the distinguished ledger account that accrues the
// reservation commission.
const AdminUserID = "admin"

type TransactionType string

const (
	TransactionReservation TransactionType = "reservation"
	TransactionReferral    TransactionType = "referral"
	TransactionCommission  TransactionType = "commission"
	TransactionWin         TransactionType = "win"
	TransactionDeposit     TransactionType = "deposit"
	TransactionWithdrawal  TransactionType = "withdrawal"
)

// Transaction is one append-only ledger entry. The ordered log is
// the audit source of truth; UserFinance.Balance is the cached
// running total.
type Transaction struct {
	Type        TransactionType `json:"type" db:"type"`
	Amount      float64         `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}

// UserFinance is the per-user ledger record, created lazily on first
// financial interaction. RefID points at the user's referrer.
type UserFinance struct {
	UserID       string        `json:"user_id" db:"user_id"`
	Balance      float64       `json:"balance" db:"balance"`
	RefCode      *string       `json:"ref_code,omitempty" db:"ref_code"`
	RefID        *string       `json:"ref_id,omitempty" db:"ref_id"`
	Transactions []Transaction `json:"transactions" db:"-"`
}
