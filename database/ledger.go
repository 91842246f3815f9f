/*
Copyright 2025 Pixloom Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

// CreditLedger inserts a new batch of credits for an account. The entry ID and
// creation timestamp are assigned here.
func (d Datasource) CreditLedger(ctx context.Context, entry model.LedgerEntry) (model.LedgerEntry, error) {
	if entry.Credits <= 0 {
		return model.LedgerEntry{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Credit amount must be positive", nil)
	}

	entry.EntryID = GenerateUUIDWithSuffix("led")
	entry.CreatedAt = time.Now()

	var expiresAt interface{} = entry.ExpiresAt
	if entry.ExpiresAt == nil {
		expiresAt = nil
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO ledger_entries (entry_id, account_id, credits, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.EntryID, entry.AccountID, entry.Credits, expiresAt, entry.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "foreign_key_violation":
				return model.LedgerEntry{}, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid account ID", err)
			default:
				return model.LedgerEntry{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.LedgerEntry{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to credit ledger", err)
	}

	return entry, nil
}

// AvailableBalance sums the live credits of an account. Entries whose expiry
// has passed never count, whatever residual value they still hold.
func (d Datasource) AvailableBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(credits), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND credits > 0 AND (expires_at IS NULL OR expires_at > NOW())
	`, accountID).Scan(&balance)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute balance", err)
	}
	return balance, nil
}

// DebitLedger atomically consumes the given amount of credits from an
// account's live entries and returns the balance left afterwards. The whole
// debit happens inside one transaction: the live entries are locked, checked
// against the amount, and decremented soonest-to-expire first. A balance that
// cannot cover the amount fails the debit without consuming anything.
func (d Datasource) DebitLedger(ctx context.Context, accountID string, amount int64) (int64, error) {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	remaining, err := debitEntriesTx(ctx, tx, accountID, amount)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}
	return remaining, nil
}

// debitEntriesTx performs the aggregate-aware debit inside the caller's
// transaction. Entries are locked with FOR UPDATE so concurrent debits against
// the same account serialize; consumption order is soonest-to-expire first so
// perishable credits are spent before open-ended ones.
func debitEntriesTx(ctx context.Context, tx *sql.Tx, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "Debit amount must be positive", nil)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, credits
		FROM ledger_entries
		WHERE account_id = $1 AND credits > 0 AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY expires_at ASC NULLS LAST, created_at ASC
		FOR UPDATE
	`, accountID)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock ledger entries", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(rows)

	type lockedEntry struct {
		id      int64
		credits int64
	}

	var entries []lockedEntry
	var total int64
	for rows.Next() {
		var e lockedEntry
		if err := rows.Scan(&e.id, &e.credits); err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan ledger entry", err)
		}
		entries = append(entries, e)
		total += e.credits
	}
	if err := rows.Err(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating ledger entries", err)
	}

	if total < amount {
		return 0, apierror.NewAPIError(apierror.ErrInsufficientCredits,
			fmt.Sprintf("Account '%s' has %d credits, needs %d", accountID, total, amount), nil)
	}

	outstanding := amount
	for _, e := range entries {
		if outstanding == 0 {
			break
		}
		consumed := e.credits
		if consumed > outstanding {
			consumed = outstanding
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE ledger_entries SET credits = credits - $2 WHERE id = $1
		`, e.id, consumed)
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to debit ledger entry", err)
		}
		outstanding -= consumed
	}

	return total - amount, nil
}

// GetLedgerEntries retrieves all ledger entries of an account, newest first.
func (d Datasource) GetLedgerEntries(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT entry_id, account_id, credits, expires_at, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ledger entries", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(rows)

	var entries []model.LedgerEntry
	for rows.Next() {
		entry := model.LedgerEntry{}
		var expiresAt sql.NullTime
		err = rows.Scan(&entry.EntryID, &entry.AccountID, &entry.Credits, &expiresAt, &entry.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan ledger entry", err)
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			entry.ExpiresAt = &t
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating ledger entries", err)
	}

	return entries, nil
}
