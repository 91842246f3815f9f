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

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

// CreateAccount inserts a new account. The account ID and creation timestamp
// are assigned here; the password must already be hashed.
func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	account.AccountID = GenerateUUIDWithSuffix("acc")
	account.CreatedAt = time.Now()
	if account.Role == "" {
		account.Role = model.RoleUser
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO accounts (account_id, username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, account.AccountID, account.Username, account.Email, account.PasswordHash, account.Role, account.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Account{}, apierror.NewAPIError(apierror.ErrConflict, "Account with this username or email already exists", err)
			default:
				return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}

	return account, nil
}

// GetAccountByID retrieves an account by its unique account ID.
func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, username, email, password_hash, role, created_at
		FROM accounts WHERE account_id = $1
	`, id)
	return scanAccount(row, id)
}

// GetAccountByUsername retrieves an account by username.
func (d Datasource) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, username, email, password_hash, role, created_at
		FROM accounts WHERE username = $1
	`, username)
	return scanAccount(row, username)
}

// GetAccountByEmail retrieves an account by email address.
func (d Datasource) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, username, email, password_hash, role, created_at
		FROM accounts WHERE email = $1
	`, email)
	return scanAccount(row, email)
}

func scanAccount(row *sql.Row, ref string) (*model.Account, error) {
	account := &model.Account{}
	err := row.Scan(&account.AccountID, &account.Username, &account.Email, &account.PasswordHash, &account.Role, &account.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account '%s' not found", ref), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}
	return account, nil
}
