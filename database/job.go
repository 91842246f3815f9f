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

// CreateJob inserts a new job row. The job ID and timestamps are assigned
// here; the job starts out QUEUED and undebited.
func (d Datasource) CreateJob(ctx context.Context, job model.Job) (model.Job, error) {
	job.JobID = GenerateUUIDWithSuffix("job")
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO jobs (job_id, record_id, account_id, operation, cost, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, job.JobID, job.RecordID, job.AccountID, job.Operation, job.Cost, job.Status, job.CreatedAt, job.UpdatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Job{}, apierror.NewAPIError(apierror.ErrConflict, "Job with this ID already exists", err)
			case "foreign_key_violation":
				return model.Job{}, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid record or account ID", err)
			default:
				return model.Job{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Job{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create job", err)
	}

	return job, nil
}

// GetJob retrieves a job by its unique job ID.
func (d Datasource) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT job_id, record_id, account_id, operation, cost, status,
		       COALESCE(provider_ref, ''), COALESCE(output_url, ''), COALESCE(error_code, ''),
		       debited, created_at, updated_at
		FROM jobs WHERE job_id = $1
	`, id)

	job := &model.Job{}
	err := row.Scan(&job.JobID, &job.RecordID, &job.AccountID, &job.Operation, &job.Cost, &job.Status,
		&job.ProviderRef, &job.OutputURL, &job.ErrorCode, &job.Debited, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Job with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve job", err)
	}
	return job, nil
}

// UpdateJobStatus updates the status of a job.
func (d Datasource) UpdateJobStatus(ctx context.Context, id string, status string) error {
	return d.updateJobField(ctx, id, `status = $2`, status)
}

// SetJobProviderRef records the provider-side identifier of a submitted job.
func (d Datasource) SetJobProviderRef(ctx context.Context, id string, providerRef string) error {
	return d.updateJobField(ctx, id, `provider_ref = $2`, providerRef)
}

// SetJobOutput persists the durable output URL on the job row. This runs
// before the debit so that a retry after a settlement crash can skip the
// provider entirely.
func (d Datasource) SetJobOutput(ctx context.Context, id string, outputURL string) error {
	return d.updateJobField(ctx, id, `output_url = $2`, outputURL)
}

// FailJob marks a job terminal-failed with an error code. Failed jobs are
// never debited.
func (d Datasource) FailJob(ctx context.Context, id string, status string, errorCode string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE jobs SET status = $2, error_code = $3, updated_at = NOW() WHERE job_id = $1
	`, id, status, errorCode)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update job", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Job with ID '%s' not found", id), nil)
	}
	return nil
}

func (d Datasource) updateJobField(ctx context.Context, id string, setClause string, value interface{}) error {
	query := fmt.Sprintf(`UPDATE jobs SET %s, updated_at = NOW() WHERE job_id = $1`, setClause)
	result, err := d.Conn.ExecContext(ctx, query, id, value)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update job", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Job with ID '%s' not found", id), nil)
	}
	return nil
}

// GetStuckJobs returns non-terminal jobs that have not been touched since the
// cutoff, oldest first.
func (d Datasource) GetStuckJobs(ctx context.Context, cutoff time.Time, limit int) ([]model.Job, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT job_id, record_id, account_id, operation, cost, status,
		       COALESCE(provider_ref, ''), COALESCE(output_url, ''), COALESCE(error_code, ''),
		       debited, created_at, updated_at
		FROM jobs
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4
	`, model.JobStatusQueued, model.JobStatusRunning, cutoff, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve stuck jobs", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var jobs []model.Job
	for rows.Next() {
		job := model.Job{}
		err := rows.Scan(&job.JobID, &job.RecordID, &job.AccountID, &job.Operation, &job.Cost, &job.Status,
			&job.ProviderRef, &job.OutputURL, &job.ErrorCode, &job.Debited, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate stuck jobs", err)
	}
	return jobs, nil
}

// CompleteRecordAndDebit settles a succeeded job in a single transaction: the
// record gets its output URL (exactly once), the account's ledger is debited
// the job's cost, and the job is marked SUCCEEDED and debited. Either all of
// it commits or none of it does.
//
// The job row is locked first and re-checked under the lock, which makes the
// call idempotent: a retry of an already-debited job touches nothing and just
// reports the current balance.
func (d Datasource) CompleteRecordAndDebit(ctx context.Context, job *model.Job) (int64, error) {
	if job.OutputURL == "" {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Job has no durable output to settle", nil)
	}

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	// Lock the job row so concurrent settlements of the same job serialize.
	var debited bool
	err = tx.QueryRowContext(ctx, `
		SELECT debited FROM jobs WHERE job_id = $1 FOR UPDATE
	`, job.JobID).Scan(&debited)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Job with ID '%s' not found", job.JobID), err)
		}
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock job", err)
	}

	if debited {
		var balance int64
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(credits), 0)
			FROM ledger_entries
			WHERE account_id = $1 AND credits > 0 AND (expires_at IS NULL OR expires_at > NOW())
		`, job.AccountID).Scan(&balance)
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute balance", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
		}
		return balance, nil
	}

	// Records complete exactly once; the guard keeps a second settlement from
	// overwriting an output already in place.
	_, err = tx.ExecContext(ctx, `
		UPDATE asset_records
		SET output_url = $2, status = $3, completed_at = NOW()
		WHERE record_id = $1 AND (output_url IS NULL OR output_url = '')
	`, job.RecordID, job.OutputURL, model.RecordStatusCompleted)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to complete record", err)
	}

	remaining, err := debitEntriesTx(ctx, tx, job.AccountID, job.Cost)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs SET status = $2, output_url = $3, debited = TRUE, updated_at = NOW()
		WHERE job_id = $1
	`, job.JobID, model.JobStatusSucceeded, job.OutputURL)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark job settled", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	job.Status = model.JobStatusSucceeded
	job.Debited = true
	return remaining, nil
}
