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
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/pixloom/pixloom/config"
	redis_db "github.com/pixloom/pixloom/internal/redis-db"
	"github.com/pixloom/pixloom/model"
)

// Queue represents a queue for handling media job tasks.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// JobTaskPayload is the task body delivered to workers. The job spec rides in
// the payload, not the database; retries redeliver the same payload.
type JobTaskPayload struct {
	JobID string        `json:"job_id"`
	Spec  model.JobSpec `json:"spec"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueJob enqueues a media job for a worker to run. The task ID is the job
// ID, so a job enqueued twice is deduplicated by the queue.
func (q *Queue) EnqueueJob(ctx context.Context, job *model.Job, spec model.JobSpec) error {
	ctx, span := tracer.Start(ctx, "Adding job to queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(JobTaskPayload{JobID: job.JobID, Spec: spec})
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(job.JobID),
		asynq.Queue(cfg.Queue.JobQueue),
		asynq.MaxRetry(cfg.Queue.MaxRetryAttempts),
	}
	task := asynq.NewTask(cfg.Queue.JobQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued job: %+v", job.JobID)
	return nil
}
