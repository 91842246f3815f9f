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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pixloom/pixloom/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

// Ledger methods

func (m *MockDataSource) CreditLedger(ctx context.Context, entry model.LedgerEntry) (model.LedgerEntry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(model.LedgerEntry), args.Error(1)
}

func (m *MockDataSource) DebitLedger(ctx context.Context, accountID string, amount int64) (int64, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) AvailableBalance(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) GetLedgerEntries(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerEntry), args.Error(1)
}

// Record methods

func (m *MockDataSource) CreateRecord(ctx context.Context, record model.AssetRecord) (model.AssetRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(model.AssetRecord), args.Error(1)
}

func (m *MockDataSource) GetRecord(ctx context.Context, id string) (*model.AssetRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AssetRecord), args.Error(1)
}

func (m *MockDataSource) ListRecords(ctx context.Context, accountID, kind string, limit int) ([]model.AssetRecord, error) {
	args := m.Called(ctx, accountID, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AssetRecord), args.Error(1)
}

func (m *MockDataSource) UpdateRecordStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// Job methods

func (m *MockDataSource) CreateJob(ctx context.Context, job model.Job) (model.Job, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(model.Job), args.Error(1)
}

func (m *MockDataSource) GetJob(ctx context.Context, id string) (*model.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *MockDataSource) UpdateJobStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) SetJobProviderRef(ctx context.Context, id string, providerRef string) error {
	args := m.Called(ctx, id, providerRef)
	return args.Error(0)
}

func (m *MockDataSource) SetJobOutput(ctx context.Context, id string, outputURL string) error {
	args := m.Called(ctx, id, outputURL)
	return args.Error(0)
}

func (m *MockDataSource) FailJob(ctx context.Context, id string, status string, errorCode string) error {
	args := m.Called(ctx, id, status, errorCode)
	return args.Error(0)
}

func (m *MockDataSource) CompleteRecordAndDebit(ctx context.Context, job *model.Job) (int64, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) GetStuckJobs(ctx context.Context, cutoff time.Time, limit int) ([]model.Job, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Job), args.Error(1)
}

// Billing methods

func (m *MockDataSource) CreatePackage(ctx context.Context, pkg model.Package) (model.Package, error) {
	args := m.Called(ctx, pkg)
	return args.Get(0).(model.Package), args.Error(1)
}

func (m *MockDataSource) GetAllPackages(ctx context.Context) ([]model.Package, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Package), args.Error(1)
}

func (m *MockDataSource) GetPackageByID(ctx context.Context, id string) (*model.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Package), args.Error(1)
}

func (m *MockDataSource) RecordPayment(ctx context.Context, payment model.Payment) (model.Payment, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(model.Payment), args.Error(1)
}
