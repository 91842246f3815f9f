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
	"sync/atomic"

	"github.com/pixloom/pixloom/model"
)

// MockProvider is a configurable JobProvider double. Call counts are tracked
// so tests can assert the provider was, or was not, invoked.
type MockProvider struct {
	SubmitFunc  func(ctx context.Context, spec model.JobSpec) (string, error)
	PollFunc    func(ctx context.Context, ref string) (*ProviderStatus, error)
	SubmitCalls int64
	PollCalls   int64
}

func (m *MockProvider) Submit(ctx context.Context, spec model.JobSpec) (string, error) {
	atomic.AddInt64(&m.SubmitCalls, 1)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, spec)
	}
	return "mock-ref", nil
}

func (m *MockProvider) Poll(ctx context.Context, ref string) (*ProviderStatus, error) {
	atomic.AddInt64(&m.PollCalls, 1)
	if m.PollFunc != nil {
		return m.PollFunc(ctx, ref)
	}
	return &ProviderStatus{Terminal: true, Succeeded: true, OutputURL: "https://provider.example/out"}, nil
}

// MockStore is an in-memory AssetStore double.
type MockStore struct {
	PutFunc  func(ctx context.Context, data []byte, contentType string) (string, error)
	PutCalls int64
}

func (m *MockStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	atomic.AddInt64(&m.PutCalls, 1)
	if m.PutFunc != nil {
		return m.PutFunc(ctx, data, contentType)
	}
	return "https://assets.pixloom.io/mock-object", nil
}
