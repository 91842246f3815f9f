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

package pixloom

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pixloom/pixloom/model"
)

// GetBalance returns the account's live credit balance.
func (p *Pixloom) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return p.datasource.AvailableBalance(ctx, accountID)
}

// TopUpCredits grants credits to an account and records the grant as an admin
// payment for the audit trail.
func (p *Pixloom) TopUpCredits(ctx context.Context, accountID string, credits int64, expiresAt *time.Time, reference string) (*model.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "Topping up credits")
	defer span.End()

	entry, err := p.datasource.CreditLedger(ctx, model.LedgerEntry{
		AccountID: accountID,
		Credits:   credits,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	_, err = p.datasource.RecordPayment(ctx, model.Payment{
		AccountID: accountID,
		Amount:    decimal.Zero,
		Currency:  "USD",
		Method:    "admin",
		Status:    "completed",
		Reference: reference,
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// ListPackages returns the purchasable credit package catalog.
func (p *Pixloom) ListPackages(ctx context.Context) ([]model.Package, error) {
	return p.datasource.GetAllPackages(ctx)
}
