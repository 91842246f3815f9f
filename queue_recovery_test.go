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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pixloom/pixloom/config"
	"github.com/pixloom/pixloom/database/mocks"
	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

func newRecoveryFixture(t *testing.T, ds *mocks.MockDataSource) (*Pixloom, *Queue) {
	t.Helper()

	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)

	conf := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
		Queue: config.QueueConfig{
			JobQueue:         "new:job",
			WebhookQueue:     "new:webhook",
			MaxRetryAttempts: 3,
		},
		Provider: config.ProviderConfig{DeadlineSec: 480},
	}
	config.MockConfig(conf)

	queue := NewQueue(conf)
	p := NewPixloomWithDeps(ds, &MockProvider{}, &MockStore{},
		redis.NewClient(&redis.Options{Addr: mr.Addr()}), queue)
	return p, queue
}

func TestRecoverStuckJobs_ReapsJobWithoutQueueTask(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p, _ := newRecoveryFixture(t, ds)

	stuck := model.Job{
		JobID:     "job_gone",
		RecordID:  "rec_1",
		AccountID: "acc_1",
		Operation: model.OpEnhance,
		Cost:      2,
		Status:    model.JobStatusRunning,
	}
	ds.On("GetStuckJobs", mock.Anything, mock.AnythingOfType("time.Time"), 100).
		Return([]model.Job{stuck}, nil)
	ds.On("FailJob", mock.Anything, "job_gone", model.JobStatusTimedOut, string(apierror.ErrProviderTimeout)).
		Return(nil)
	ds.On("UpdateRecordStatus", mock.Anything, "rec_1", model.RecordStatusUploaded).Return(nil)

	reaped, err := p.RecoverStuckJobs(context.Background(), time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, 1, reaped)
	ds.AssertExpectations(t)
}

func TestRecoverStuckJobs_LeavesJobStillInQueue(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p, queue := newRecoveryFixture(t, ds)

	// Enqueue the task so the inspector can still see it.
	job := &model.Job{JobID: "job_pending", RecordID: "rec_1", AccountID: "acc_1", Cost: 2}
	err := queue.EnqueueJob(context.Background(), job, model.JobSpec{Operation: model.OpEnhance})
	assert.NoError(t, err)

	ds.On("GetStuckJobs", mock.Anything, mock.AnythingOfType("time.Time"), 100).
		Return([]model.Job{{
			JobID:     "job_pending",
			RecordID:  "rec_1",
			AccountID: "acc_1",
			Status:    model.JobStatusQueued,
		}}, nil)

	reaped, err := p.RecoverStuckJobs(context.Background(), time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, 0, reaped)
	ds.AssertNotCalled(t, "FailJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskInQueue_MissingTask(t *testing.T) {
	ds := &mocks.MockDataSource{}
	_, queue := newRecoveryFixture(t, ds)

	inQueue, err := queue.TaskInQueue("new:job", "no-such-task")
	assert.NoError(t, err)
	assert.False(t, inQueue)
}

func TestStuckJobRecoveryProcessorStartStop(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p, _ := newRecoveryFixture(t, ds)

	processor := NewStuckJobRecoveryProcessor(p)
	processor.Start(context.Background())
	assert.True(t, processor.IsRunning())

	processor.Stop()
	assert.False(t, processor.IsRunning())
}
