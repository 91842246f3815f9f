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
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/pixloom/pixloom/config"
	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

// StuckJobRecoveryProcessor reaps jobs that are QUEUED or RUNNING in the
// database but whose queue task is gone: a worker crashed mid-run and asynq
// exhausted its retries, or the task was dropped. Such jobs would otherwise
// stay non-terminal forever. Jobs whose task is still in the queue are left
// alone.
type StuckJobRecoveryProcessor struct {
	pixloom        *Pixloom
	batchSize      int
	pollInterval   time.Duration
	stuckThreshold time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
	running        bool
	mu             sync.Mutex
}

func NewStuckJobRecoveryProcessor(p *Pixloom) *StuckJobRecoveryProcessor {
	stuckThreshold := 1 * time.Hour
	cfg, err := config.Fetch()
	if err == nil {
		// A job cannot legitimately stay non-terminal much longer than the
		// provider deadline plus the queue's own retry window.
		stuckThreshold = 2 * cfg.Provider.Deadline()
	}

	return &StuckJobRecoveryProcessor{
		pixloom:        p,
		batchSize:      100,
		pollInterval:   30 * time.Second,
		stuckThreshold: stuckThreshold,
		stopCh:         make(chan struct{}),
	}
}

func (p *StuckJobRecoveryProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()

	logrus.Info("Stuck job recovery processor started")
}

func (p *StuckJobRecoveryProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logrus.Info("Stuck job recovery processor stopped")
}

func (p *StuckJobRecoveryProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *StuckJobRecoveryProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Stuck job recovery processor context cancelled")
			return
		case <-p.stopCh:
			logrus.Info("Stuck job recovery processor stop signal received")
			return
		case <-ticker.C:
			p.recoverWithThreshold(ctx, p.stuckThreshold)
		}
	}
}

// RecoverStuckJobs triggers an immediate sweep with the provided threshold.
func (b *Pixloom) RecoverStuckJobs(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold < 2*time.Minute {
		threshold = 2 * time.Minute
	}

	processor := NewStuckJobRecoveryProcessor(b)
	return processor.recoverWithThreshold(ctx, threshold), nil
}

func (p *StuckJobRecoveryProcessor) recoverWithThreshold(ctx context.Context, threshold time.Duration) int {
	cutoff := time.Now().Add(-threshold)
	stuckJobs, err := p.pixloom.datasource.GetStuckJobs(ctx, cutoff, p.batchSize)
	if err != nil {
		logrus.Errorf("failed to get stuck jobs: %v", err)
		return 0
	}

	if len(stuckJobs) == 0 {
		return 0
	}

	logrus.Infof("Inspecting %d stuck jobs (threshold=%v)", len(stuckJobs), threshold)

	reaped := 0
	for i := range stuckJobs {
		job := &stuckJobs[i]
		ok, err := p.processStuckJob(ctx, job)
		if err != nil {
			logrus.Errorf("failed to process stuck job %s: %v", job.JobID, err)
			continue
		}
		if ok {
			reaped++
		}
	}
	return reaped
}

// processStuckJob marks a stuck job TIMED_OUT when its queue task no longer
// exists. Returns true when the job was reaped.
func (p *StuckJobRecoveryProcessor) processStuckJob(ctx context.Context, job *model.Job) (bool, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return false, err
	}

	inQueue, err := p.pixloom.queue.TaskInQueue(cfg.Queue.JobQueue, job.JobID)
	if err != nil {
		return false, err
	}
	if inQueue {
		// Still owned by the queue; retries will drive it to a terminal state.
		return false, nil
	}

	logrus.Warnf("Job %s stuck in %s with no queue task, marking timed out", job.JobID, job.Status)
	if err := p.pixloom.datasource.FailJob(ctx, job.JobID, model.JobStatusTimedOut, string(apierror.ErrProviderTimeout)); err != nil {
		return false, err
	}
	if err := p.pixloom.datasource.UpdateRecordStatus(ctx, job.RecordID, model.RecordStatusUploaded); err != nil {
		logrus.Errorf("reset record %s status: %v", job.RecordID, err)
	}
	job.Status = model.JobStatusTimedOut
	job.ErrorCode = string(apierror.ErrProviderTimeout)
	p.pixloom.notifyJobEvent(job)
	return true, nil
}

// TaskInQueue reports whether a task with the given ID still exists on the
// queue in any state.
func (q *Queue) TaskInQueue(queue, taskID string) (bool, error) {
	_, err := q.Inspector.GetTaskInfo(queue, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
