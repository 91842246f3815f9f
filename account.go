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
	"strings"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

// WelcomeCredits is granted to every new account so the first operation works
// out of the box.
const WelcomeCredits int64 = 4

// RegisterAccount creates a new account with a hashed password and seeds its
// ledger with the welcome credits.
func (p *Pixloom) RegisterAccount(ctx context.Context, username, email, password string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "Registering account")
	defer span.End()

	account := model.Account{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Role:     model.RoleUser,
	}
	if err := account.SetPassword(password); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to hash password", err)
	}

	created, err := p.datasource.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	if WelcomeCredits > 0 {
		_, err = p.datasource.CreditLedger(ctx, model.LedgerEntry{
			AccountID: created.AccountID,
			Credits:   WelcomeCredits,
		})
		if err != nil {
			return nil, err
		}
	}

	return &created, nil
}

// Authenticate verifies credentials against the stored hash. The identifier
// may be a username or an email address.
func (p *Pixloom) Authenticate(ctx context.Context, identifier, password string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "Authenticating account")
	defer span.End()

	var account *model.Account
	var err error
	if strings.Contains(identifier, "@") {
		account, err = p.datasource.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(identifier)))
	} else {
		account, err = p.datasource.GetAccountByUsername(ctx, strings.TrimSpace(identifier))
	}
	if err != nil {
		// Same response whether the account is missing or the password is
		// wrong.
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid credentials", err)
	}

	if !account.CheckPassword(password) {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid credentials", nil)
	}
	return account, nil
}

// GetAccount retrieves an account by its ID.
func (p *Pixloom) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return p.datasource.GetAccountByID(ctx, accountID)
}
