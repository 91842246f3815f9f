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
	"fmt"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

// Operations that create their output from a prompt instead of an existing
// asset. They get a fresh record at submission time.
func generativeRecordKind(operation string) (string, bool) {
	switch operation {
	case model.OpGenerateImage:
		return model.RecordKindImage, true
	case model.OpGenerateVideo:
		return model.RecordKindVideo, true
	}
	return "", false
}

// StartJob accepts a media operation for asynchronous processing: it verifies
// the operation, the record ownership and the balance, persists a QUEUED job
// and hands it to the queue. The returned job carries the ID the caller polls.
//
// The balance check here is a fast-fail courtesy; the authoritative check is
// the atomic debit at settlement.
func (p *Pixloom) StartJob(ctx context.Context, accountID, operation, recordID string, params map[string]interface{}) (*model.Job, error) {
	ctx, span := tracer.Start(ctx, "Submitting media job")
	defer span.End()

	if !model.KnownOperation(operation) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unknown operation '%s'", operation), nil)
	}
	cost := model.CostFor(operation)

	balance, err := p.datasource.AvailableBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, apierror.NewAPIError(apierror.ErrInsufficientCredits,
			fmt.Sprintf("Account has %d credits, operation costs %d", balance, cost), nil)
	}

	var record *model.AssetRecord
	if kind, generative := generativeRecordKind(operation); generative {
		created, err := p.datasource.CreateRecord(ctx, model.AssetRecord{
			AccountID:   accountID,
			Kind:        kind,
			OriginalURL: "",
		})
		if err != nil {
			return nil, err
		}
		record = &created
	} else {
		record, err = p.GetRecordForAccount(ctx, recordID, accountID)
		if err != nil {
			return nil, err
		}
	}

	spec, err := BuildJobSpec(operation, record, params)
	if err != nil {
		return nil, err
	}

	job, err := p.datasource.CreateJob(ctx, model.Job{
		RecordID:  record.RecordID,
		AccountID: accountID,
		Operation: operation,
		Cost:      cost,
	})
	if err != nil {
		return nil, err
	}

	if err := p.queue.EnqueueJob(ctx, &job, spec); err != nil {
		_ = p.datasource.FailJob(ctx, job.JobID, model.JobStatusFailed, string(apierror.ErrInternalServer))
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to enqueue job", err)
	}

	return &job, nil
}

// GetJobForAccount retrieves a job and enforces ownership.
func (p *Pixloom) GetJobForAccount(ctx context.Context, jobID, accountID string) (*model.Job, error) {
	job, err := p.datasource.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.AccountID != accountID {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, "Job belongs to another account", nil)
	}
	return job, nil
}
