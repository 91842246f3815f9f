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
	"time"

	"github.com/pixloom/pixloom/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	account // Interface for account-related operations
	ledger  // Interface for credit-ledger operations
	record  // Interface for asset-record operations
	job     // Interface for job-related operations
	billing // Interface for package and payment operations
}

// account defines methods for handling accounts.
type account interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error) // Creates a new account
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)           // Retrieves an account by ID
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

// ledger defines methods for handling the credit ledger.
type ledger interface {
	CreditLedger(ctx context.Context, entry model.LedgerEntry) (model.LedgerEntry, error) // Adds a batch of credits
	DebitLedger(ctx context.Context, accountID string, amount int64) (int64, error)       // Atomically consumes credits, returns remaining balance
	AvailableBalance(ctx context.Context, accountID string) (int64, error)                // Sums live (non-expired) credits
	GetLedgerEntries(ctx context.Context, accountID string) ([]model.LedgerEntry, error)  // Retrieves an account's entries
}

// record defines methods for handling asset records.
type record interface {
	CreateRecord(ctx context.Context, record model.AssetRecord) (model.AssetRecord, error)        // Creates a new asset record
	GetRecord(ctx context.Context, id string) (*model.AssetRecord, error)                         // Retrieves a record by ID
	ListRecords(ctx context.Context, accountID, kind string, limit int) ([]model.AssetRecord, error) // Lists an account's records, newest first
	UpdateRecordStatus(ctx context.Context, id string, status string) error                       // Updates the status of a record
}

// job defines methods for handling provider jobs.
type job interface {
	CreateJob(ctx context.Context, job model.Job) (model.Job, error)            // Creates a new job row
	GetJob(ctx context.Context, id string) (*model.Job, error)                  // Retrieves a job by ID
	UpdateJobStatus(ctx context.Context, id string, status string) error        // Updates the status of a job
	SetJobProviderRef(ctx context.Context, id string, providerRef string) error // Records the provider-side identifier
	SetJobOutput(ctx context.Context, id string, outputURL string) error        // Persists the durable output URL
	FailJob(ctx context.Context, id string, status string, errorCode string) error
	CompleteRecordAndDebit(ctx context.Context, job *model.Job) (int64, error)              // Settles the job in one transaction
	GetStuckJobs(ctx context.Context, cutoff time.Time, limit int) ([]model.Job, error) // Non-terminal jobs untouched since cutoff
}

// billing defines methods for handling packages and payments.
type billing interface {
	CreatePackage(ctx context.Context, pkg model.Package) (model.Package, error) // Creates a new credit package
	GetAllPackages(ctx context.Context) ([]model.Package, error)                 // Retrieves the package catalog
	GetPackageByID(ctx context.Context, id string) (*model.Package, error)       // Retrieves a package by ID
	RecordPayment(ctx context.Context, payment model.Payment) (model.Payment, error)
}
