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
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/pixloom/pixloom/config"
	"github.com/pixloom/pixloom/internal/apierror"
	redlock "github.com/pixloom/pixloom/internal/lock"
	"github.com/pixloom/pixloom/internal/notification"
	"github.com/pixloom/pixloom/model"
)

var tracer = otel.Tracer("Media jobs")

// RunJob drives one credit-gated provider run to a terminal state. The
// sequence is: check the account can afford the run, submit to the provider,
// poll until terminal or deadline, copy the output into our own store, persist
// the durable URL on the job, then settle record + debit in one transaction.
//
// The call is idempotent by job ID. A retry of a job whose durable output is
// already persisted skips the provider entirely and goes straight to
// settlement, which itself is a no-op once the job is debited.
func (p *Pixloom) RunJob(ctx context.Context, jobID string, spec model.JobSpec) (*model.JobOutcome, error) {
	ctx, span := tracer.Start(ctx, "Running media job")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	job, err := p.datasource.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// Already settled on a previous delivery of this task.
	if job.Debited && job.Status == model.JobStatusSucceeded {
		balance, err := p.datasource.AvailableBalance(ctx, job.AccountID)
		if err != nil {
			return nil, err
		}
		return &model.JobOutcome{
			JobID:            job.JobID,
			RecordID:         job.RecordID,
			OutputURL:        job.OutputURL,
			RemainingBalance: balance,
		}, nil
	}

	// One worker per record at a time.
	locker := redlock.NewLocker(p.redis, fmt.Sprintf("record:%s", job.RecordID), job.JobID)
	if err := locker.WaitLock(ctx, cfg.Provider.Deadline()+time.Minute, 30*time.Second); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Record is being processed by another job", err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Warnf("unlock record %s: %v", job.RecordID, err)
		}
	}()

	// Durable output already persisted: a prior run crashed between re-host
	// and settlement. Skip the provider, just settle.
	if job.OutputURL == "" {
		if err := p.runProviderPhase(ctx, cfg, job, spec); err != nil {
			return nil, err
		}
	}

	remaining, err := p.datasource.CompleteRecordAndDebit(ctx, job)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrInsufficientCredits {
			p.failJob(ctx, job, model.JobStatusFailed, apierror.ErrInsufficientCredits)
			return nil, err
		}
		notification.NotifyError(err)
		return nil, err
	}

	p.notifyJobEvent(job)

	return &model.JobOutcome{
		JobID:            job.JobID,
		RecordID:         job.RecordID,
		OutputURL:        job.OutputURL,
		RemainingBalance: remaining,
	}, nil
}

// runProviderPhase covers everything up to the durable output URL: balance
// precheck, submit, poll, fetch, re-host, persist. On return job.OutputURL is
// set; any failure has already marked the job terminal-failed.
func (p *Pixloom) runProviderPhase(ctx context.Context, cfg *config.Configuration, job *model.Job, spec model.JobSpec) error {
	// No provider invocation for an account that cannot afford the run. The
	// authoritative check happens again at settlement, atomically.
	balance, err := p.datasource.AvailableBalance(ctx, job.AccountID)
	if err != nil {
		return err
	}
	if balance < job.Cost {
		_ = p.datasource.FailJob(ctx, job.JobID, model.JobStatusFailed, string(apierror.ErrInsufficientCredits))
		return apierror.NewAPIError(apierror.ErrInsufficientCredits,
			fmt.Sprintf("Account has %d credits, operation costs %d", balance, job.Cost), nil)
	}

	if err := p.datasource.UpdateJobStatus(ctx, job.JobID, model.JobStatusRunning); err != nil {
		return err
	}
	if err := p.datasource.UpdateRecordStatus(ctx, job.RecordID, model.RecordStatusProcessing); err != nil {
		return err
	}

	ref := job.ProviderRef
	if ref == "" {
		ref, err = p.provider.Submit(ctx, spec)
		if err != nil {
			p.failJob(ctx, job, model.JobStatusFailed, apierror.ErrProviderFailed)
			return err
		}
		if err := p.datasource.SetJobProviderRef(ctx, job.JobID, ref); err != nil {
			return err
		}
		job.ProviderRef = ref
	}

	providerURL, err := p.pollUntilTerminal(ctx, cfg.Provider, job, ref)
	if err != nil {
		return err
	}

	data, contentType, err := p.fetchOutput(ctx, cfg.Provider, providerURL)
	if err != nil {
		p.failJob(ctx, job, model.JobStatusFailed, apierror.ErrFetchFailed)
		return apierror.NewAPIError(apierror.ErrFetchFailed, "Failed to fetch provider output", err)
	}

	durableURL, err := p.store.Put(ctx, data, contentType)
	if err != nil {
		p.failJob(ctx, job, model.JobStatusFailed, apierror.ErrStoreWriteFailed)
		return apierror.NewAPIError(apierror.ErrStoreWriteFailed, "Failed to write output to asset store", err)
	}

	// Persisted before the debit so a settlement crash is retried without
	// re-invoking the provider.
	if err := p.datasource.SetJobOutput(ctx, job.JobID, durableURL); err != nil {
		return err
	}
	job.OutputURL = durableURL
	return nil
}

// pollUntilTerminal polls the provider at the configured interval until the
// run is terminal or the deadline passes. Jobs that exceed the deadline are
// marked TIMED_OUT; the provider-side run is left to finish on its own.
func (p *Pixloom) pollUntilTerminal(ctx context.Context, cfg config.ProviderConfig, job *model.Job, ref string) (string, error) {
	deadline := time.NewTimer(cfg.Deadline())
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	for {
		status, err := p.provider.Poll(ctx, ref)
		if err != nil {
			p.failJob(ctx, job, model.JobStatusFailed, apierror.ErrProviderFailed)
			return "", err
		}

		if status.Terminal {
			if !status.Succeeded {
				logrus.Warnf("job %s failed at provider: %s", job.JobID, status.Reason)
				p.failJob(ctx, job, model.JobStatusFailed, apierror.ErrProviderFailed)
				return "", apierror.NewAPIError(apierror.ErrProviderFailed, "Provider reported failure", status.Reason)
			}
			if status.OutputURL == "" {
				p.failJob(ctx, job, model.JobStatusFailed, apierror.ErrProviderFailed)
				return "", apierror.NewAPIError(apierror.ErrProviderFailed, "Provider succeeded without output", nil)
			}
			return status.OutputURL, nil
		}

		select {
		case <-ctx.Done():
			p.failJob(ctx, job, model.JobStatusTimedOut, apierror.ErrProviderTimeout)
			return "", apierror.NewAPIError(apierror.ErrProviderTimeout, "Job cancelled while polling", ctx.Err())
		case <-deadline.C:
			p.failJob(ctx, job, model.JobStatusTimedOut, apierror.ErrProviderTimeout)
			return "", apierror.NewAPIError(apierror.ErrProviderTimeout,
				fmt.Sprintf("Provider did not finish within %s", cfg.Deadline()), nil)
		case <-ticker.C:
		}
	}
}

// fetchOutput downloads the provider's output with bounded retries. Provider
// output URLs are short-lived, hence the tight timeout per attempt.
func (p *Pixloom) fetchOutput(ctx context.Context, cfg config.ProviderConfig, url string) ([]byte, string, error) {
	client := &http.Client{Timeout: cfg.FetchTimeout()}

	var data []byte
	var contentType string

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch output returned %d", resp.StatusCode)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(cfg.FetchRetries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// failJob marks the job terminal-failed and returns the record to its
// pre-processing state. Failed jobs never debit.
func (p *Pixloom) failJob(ctx context.Context, job *model.Job, status string, code apierror.ErrorCode) {
	if err := p.datasource.FailJob(ctx, job.JobID, status, string(code)); err != nil {
		logrus.Errorf("mark job %s failed: %v", job.JobID, err)
	}
	if err := p.datasource.UpdateRecordStatus(ctx, job.RecordID, model.RecordStatusUploaded); err != nil {
		logrus.Errorf("reset record %s status: %v", job.RecordID, err)
	}
	job.Status = status
	job.ErrorCode = string(code)
	p.notifyJobEvent(job)
}
