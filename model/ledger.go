package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a batch of purchased credits. Entries only ever shrink after
// creation; a debit that cannot be covered by the account's live entries fails
// instead of driving any entry negative.
type LedgerEntry struct {
	ID        int64      `json:"-"`
	EntryID   string     `json:"entry_id"`
	AccountID string     `json:"account_id"`
	Credits   int64      `json:"credits"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the entry no longer counts toward the available
// balance at the given instant.
func (e *LedgerEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// Package is a purchasable credit bundle.
type Package struct {
	ID          int64           `json:"-"`
	PackageID   string          `json:"package_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Credits     int64           `json:"credits"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Payment records a completed purchase that credited an account's ledger.
// Gateway verification happens upstream; this row is the audit trail.
type Payment struct {
	ID        int64           `json:"-"`
	PaymentID string          `json:"payment_id"`
	AccountID string          `json:"account_id"`
	PackageID string          `json:"package_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Method    string          `json:"method"`
	Status    string          `json:"status"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
