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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pixloom/pixloom/config"
	"github.com/pixloom/pixloom/database"
	redis_db "github.com/pixloom/pixloom/internal/redis-db"
	"github.com/pixloom/pixloom/internal/replicate"
	"github.com/pixloom/pixloom/internal/storage"
)

// Pixloom represents the main struct for the Pixloom application.
type Pixloom struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	store      storage.AssetStore
	provider   JobProvider
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewPixloom initializes a new instance of Pixloom with the provided database
// datasource. It fetches the configuration and initializes the Redis client,
// queue, asset store, and job provider.
func NewPixloom(db database.IDataSource) (*Pixloom, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	store, err := storage.NewS3Store(context.Background(), configuration.Storage)
	if err != nil {
		return nil, err
	}

	provider := NewReplicateProvider(replicate.NewClient(configuration.Provider))

	newPixloom := &Pixloom{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		store:      store,
		provider:   provider,
	}
	return newPixloom, nil
}

// NewPixloomWithDeps wires explicit collaborators. Used by tests and by
// callers that manage their own clients.
func NewPixloomWithDeps(db database.IDataSource, provider JobProvider, store storage.AssetStore, redisClient redis.UniversalClient, queue *Queue) *Pixloom {
	return &Pixloom{
		datasource: db,
		provider:   provider,
		store:      store,
		redis:      redisClient,
		queue:      queue,
	}
}
