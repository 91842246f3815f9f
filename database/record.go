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

// CreateRecord inserts a new asset record. The record ID and creation
// timestamp are assigned here.
func (d Datasource) CreateRecord(ctx context.Context, record model.AssetRecord) (model.AssetRecord, error) {
	record.RecordID = GenerateUUIDWithSuffix("rec")
	record.CreatedAt = time.Now()
	if record.Status == "" {
		record.Status = model.RecordStatusUploaded
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO asset_records (record_id, account_id, kind, original_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.RecordID, record.AccountID, record.Kind, record.OriginalURL, record.Status, record.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "foreign_key_violation":
				return model.AssetRecord{}, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid account ID", err)
			case "check_violation":
				return model.AssetRecord{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid record kind", err)
			default:
				return model.AssetRecord{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.AssetRecord{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create record", err)
	}

	return record, nil
}

// GetRecord retrieves an asset record by its unique record ID.
func (d Datasource) GetRecord(ctx context.Context, id string) (*model.AssetRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT record_id, account_id, kind, original_url, COALESCE(output_url, ''), status, created_at, completed_at
		FROM asset_records WHERE record_id = $1
	`, id)

	record := &model.AssetRecord{}
	var completedAt sql.NullTime
	err := row.Scan(&record.RecordID, &record.AccountID, &record.Kind, &record.OriginalURL, &record.OutputURL, &record.Status, &record.CreatedAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Record with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve record", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}
	return record, nil
}

// ListRecords retrieves an account's records of the given kind, newest first,
// capped at limit.
func (d Datasource) ListRecords(ctx context.Context, accountID, kind string, limit int) ([]model.AssetRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT record_id, account_id, kind, original_url, COALESCE(output_url, ''), status, created_at, completed_at
		FROM asset_records
		WHERE account_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, accountID, kind, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve records", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(rows)

	var records []model.AssetRecord
	for rows.Next() {
		record := model.AssetRecord{}
		var completedAt sql.NullTime
		err = rows.Scan(&record.RecordID, &record.AccountID, &record.Kind, &record.OriginalURL, &record.OutputURL, &record.Status, &record.CreatedAt, &completedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan record data", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			record.CompletedAt = &t
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating records", err)
	}

	return records, nil
}

// UpdateRecordStatus updates the status of a record. Completing a record goes
// through CompleteRecordAndDebit instead, which sets the output exactly once.
func (d Datasource) UpdateRecordStatus(ctx context.Context, id string, status string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE asset_records SET status = $2 WHERE record_id = $1
	`, id, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update record status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Record with ID '%s' not found", id), nil)
	}
	return nil
}
