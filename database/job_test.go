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
	"github.com/stretchr/testify/assert"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

func TestCreateJob_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(sqlmock.AnyArg(), "rec_1", "acc_1", model.OpEnhance, int64(2), model.JobStatusQueued, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job, err := ds.CreateJob(context.Background(), model.Job{
		RecordID:  "rec_1",
		AccountID: "acc_1",
		Operation: model.OpEnhance,
		Cost:      2,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.WithinDuration(t, time.Now(), job.CreatedAt, time.Second)
}

func TestGetJob_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT job_id, record_id").
		WithArgs("job_missing").
		WillReturnRows(sqlmock.NewRows([]string{"job_id"}))

	_, err = ds.GetJob(context.Background(), "job_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestSetJobOutput(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE jobs SET output_url").
		WithArgs("job_1", "https://assets.pixloom.io/out.png").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.SetJobOutput(context.Background(), "job_1", "https://assets.pixloom.io/out.png")
	assert.NoError(t, err)
}

func TestCompleteRecordAndDebit_SettlesInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	job := &model.Job{
		JobID:     "job_1",
		RecordID:  "rec_1",
		AccountID: "acc_1",
		Operation: model.OpEnhance,
		Cost:      2,
		OutputURL: "https://assets.pixloom.io/out.png",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT debited FROM jobs").
		WithArgs("job_1").
		WillReturnRows(sqlmock.NewRows([]string{"debited"}).AddRow(false))
	mock.ExpectExec("UPDATE asset_records").
		WithArgs("rec_1", job.OutputURL, model.RecordStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, credits").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "credits"}).AddRow(int64(3), int64(2)))
	mock.ExpectExec("UPDATE ledger_entries").
		WithArgs(int64(3), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("job_1", model.JobStatusSucceeded, job.OutputURL).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	remaining, err := ds.CompleteRecordAndDebit(context.Background(), job)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
	assert.True(t, job.Debited)
	assert.Equal(t, model.JobStatusSucceeded, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRecordAndDebit_AlreadyDebitedIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	job := &model.Job{
		JobID:     "job_1",
		RecordID:  "rec_1",
		AccountID: "acc_1",
		Cost:      2,
		OutputURL: "https://assets.pixloom.io/out.png",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT debited FROM jobs").
		WithArgs("job_1").
		WillReturnRows(sqlmock.NewRows([]string{"debited"}).AddRow(true))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(8)))
	mock.ExpectCommit()

	remaining, err := ds.CompleteRecordAndDebit(context.Background(), job)
	assert.NoError(t, err)
	assert.Equal(t, int64(8), remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRecordAndDebit_InsufficientRollsEverythingBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	job := &model.Job{
		JobID:     "job_1",
		RecordID:  "rec_1",
		AccountID: "acc_1",
		Cost:      2,
		OutputURL: "https://assets.pixloom.io/out.png",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT debited FROM jobs").
		WithArgs("job_1").
		WillReturnRows(sqlmock.NewRows([]string{"debited"}).AddRow(false))
	mock.ExpectExec("UPDATE asset_records").
		WithArgs("rec_1", job.OutputURL, model.RecordStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, credits").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "credits"}).AddRow(int64(3), int64(1)))
	mock.ExpectRollback()

	_, err = ds.CompleteRecordAndDebit(context.Background(), job)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInsufficientCredits, apiErr.Code)
	assert.False(t, job.Debited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRecordAndDebit_RequiresDurableOutput(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	_, err = ds.CompleteRecordAndDebit(context.Background(), &model.Job{JobID: "job_1"})
	assert.Error(t, err)
}

func TestFailJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("job_1", model.JobStatusTimedOut, string(apierror.ErrProviderTimeout)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.FailJob(context.Background(), "job_1", model.JobStatusTimedOut, string(apierror.ErrProviderTimeout))
	assert.NoError(t, err)
}

func TestGetStuckJobs(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	cutoff := time.Now().Add(-time.Hour)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"job_id", "record_id", "account_id", "operation", "cost", "status",
		"provider_ref", "output_url", "error_code", "debited", "created_at", "updated_at",
	}).
		AddRow("job_old", "rec_1", "acc_1", model.OpEnhance, int64(2), model.JobStatusRunning,
			"pred_1", "", "", false, now.Add(-3*time.Hour), now.Add(-2*time.Hour)).
		AddRow("job_older", "rec_2", "acc_1", model.OpColorize, int64(2), model.JobStatusQueued,
			"", "", "", false, now.Add(-5*time.Hour), now.Add(-4*time.Hour))

	mock.ExpectQuery("SELECT job_id, record_id").
		WithArgs(model.JobStatusQueued, model.JobStatusRunning, cutoff, 100).
		WillReturnRows(rows)

	jobs, err := ds.GetStuckJobs(context.Background(), cutoff, 100)
	assert.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, "job_old", jobs[0].JobID)
	assert.Equal(t, model.JobStatusRunning, jobs[0].Status)
	assert.Equal(t, "job_older", jobs[1].JobID)
}
