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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

func TestCreditLedger_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", int64(50), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry, err := ds.CreditLedger(context.Background(), model.LedgerEntry{
		AccountID: "acc_1",
		Credits:   50,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, entry.EntryID)
	assert.WithinDuration(t, time.Now(), entry.CreatedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditLedger_RejectsNonPositiveAmount(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	_, err = ds.CreditLedger(context.Background(), model.LedgerEntry{AccountID: "acc_1", Credits: 0})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
}

func TestCreditLedger_InvalidAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnError(&pq.Error{Code: "23503", Message: "foreign_key_violation"})

	_, err = ds.CreditLedger(context.Background(), model.LedgerEntry{AccountID: "acc_missing", Credits: 10})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrBadRequest, apiErr.Code)
}

func TestAvailableBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(42)))

	balance, err := ds.AvailableBalance(context.Background(), "acc_1")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), balance)
}

func TestDebitLedger_ConsumesSoonestToExpireFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, credits").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "credits"}).
			AddRow(int64(7), int64(1)).
			AddRow(int64(9), int64(5)))
	// First entry drained fully, second partially.
	mock.ExpectExec("UPDATE ledger_entries").
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE ledger_entries").
		WithArgs(int64(9), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	remaining, err := ds.DebitLedger(context.Background(), "acc_1", 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitLedger_InsufficientRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, credits").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "credits"}).
			AddRow(int64(7), int64(1)))
	mock.ExpectRollback()

	_, err = ds.DebitLedger(context.Background(), "acc_1", 2)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInsufficientCredits, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitLedger_EmptyLedgerIsInsufficient(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, credits").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "credits"}))
	mock.ExpectRollback()

	_, err = ds.DebitLedger(context.Background(), "acc_1", 2)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInsufficientCredits, apiErr.Code)
}

func TestGetLedgerEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	expiry := time.Now().Add(24 * time.Hour)
	mock.ExpectQuery("SELECT entry_id, account_id, credits").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"entry_id", "account_id", "credits", "expires_at", "created_at"}).
			AddRow("led_1", "acc_1", int64(10), expiry, time.Now()).
			AddRow("led_2", "acc_1", int64(5), nil, time.Now()))

	entries, err := ds.GetLedgerEntries(context.Background(), "acc_1")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.NotNil(t, entries[0].ExpiresAt)
	assert.Nil(t, entries[1].ExpiresAt)
}
