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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/pixloom/pixloom"
	"github.com/pixloom/pixloom/config"
	"github.com/pixloom/pixloom/internal/apierror"
	redis_db "github.com/pixloom/pixloom/internal/redis-db"
)

// processJob runs a queued media job to a terminal state. Infrastructure
// faults are returned so asynq redelivers the task; policy faults such as
// insufficient credits are already terminal on the job row and must not
// retry.
func (b *pixloomInstance) processJob(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("pixloom.jobs.worker").Start(ctx, "Process Media Job From Queue")
	defer span.End()

	var payload pixloom.JobTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	outcome, err := b.pixloom.RunJob(ctx, payload.JobID, payload.Spec)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && !apiErr.Retryable() {
			logrus.Warnf("Job %s rejected: %v", payload.JobID, err)
			return nil
		}

		retryCount, _ := asynq.GetRetryCount(ctx)
		cfg, cfgErr := config.Fetch()
		if cfgErr == nil && retryCount >= cfg.Queue.MaxRetryAttempts {
			logrus.Errorf("Job %s abandoned after %d attempts: %v", payload.JobID, retryCount, err)
			return nil
		}

		logrus.Infof("Job %s pushed back for retry due to error: %v", payload.JobID, err)
		return err
	}

	log.Println(" [*] Job Processed", outcome.JobID)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.JobQueue] = 1
	queues[cfg.Queue.WebhookQueue] = 3

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.JobQueue, i)
		queues[queueName] = 1
	}
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(b *pixloomInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.JobQueue, b.processJob)
	mux.HandleFunc(cfg.Queue.WebhookQueue, pixloom.ProcessWebhook)
	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.JobQueue, i)
		mux.HandleFunc(queueName, b.processJob)
	}
}

// workerCommands defines the "workers" command that consumes the media job
// queue.
func workerCommands(b *pixloomInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start pixloom workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeTracing(ctx)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			// Reap jobs whose queue task is gone
			recovery := pixloom.NewStuckJobRecoveryProcessor(b.pixloom)
			recovery.Start(ctx)
			defer recovery.Stop()

			// asynqmon for health checks and queue monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
