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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pixloom/pixloom/database/mocks"
	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

func TestStartJob_UnknownOperation(t *testing.T) {
	p := &Pixloom{datasource: &mocks.MockDataSource{}}

	_, err := p.StartJob(context.Background(), "acc_1", "sharpen", "rec_1", nil)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
}

func TestStartJob_InsufficientCreditsFailsFast(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p := &Pixloom{datasource: ds}

	ds.On("AvailableBalance", mock.Anything, "acc_1").Return(int64(1), nil)

	_, err := p.StartJob(context.Background(), "acc_1", model.OpEnhance, "rec_1", nil)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInsufficientCredits, apiErr.Code)

	ds.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
}

func TestStartJob_ForeignRecordIsForbidden(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p := &Pixloom{datasource: ds}

	ds.On("AvailableBalance", mock.Anything, "acc_1").Return(int64(10), nil)
	ds.On("GetRecord", mock.Anything, "rec_1").Return(&model.AssetRecord{
		RecordID:  "rec_1",
		AccountID: "acc_other",
	}, nil)

	_, err := p.StartJob(context.Background(), "acc_1", model.OpEnhance, "rec_1", nil)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrForbidden, apiErr.Code)
}

func TestGetJobForAccount_EnforcesOwnership(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p := &Pixloom{datasource: ds}

	ds.On("GetJob", mock.Anything, "job_1").Return(&model.Job{
		JobID:     "job_1",
		AccountID: "acc_other",
	}, nil)

	_, err := p.GetJobForAccount(context.Background(), "job_1", "acc_1")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrForbidden, apiErr.Code)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p := &Pixloom{datasource: ds}

	account := &model.Account{AccountID: "acc_1", Username: "ada"}
	assert.NoError(t, account.SetPassword("correct-horse"))

	ds.On("GetAccountByUsername", mock.Anything, "ada").Return(account, nil)

	_, err := p.Authenticate(context.Background(), "ada", "wrong")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrUnauthorized, apiErr.Code)
}

func TestAuthenticate_ByEmail(t *testing.T) {
	ds := &mocks.MockDataSource{}
	p := &Pixloom{datasource: ds}

	account := &model.Account{AccountID: "acc_1", Username: "ada", Email: "ada@example.com"}
	assert.NoError(t, account.SetPassword("correct-horse"))

	ds.On("GetAccountByEmail", mock.Anything, "ada@example.com").Return(account, nil)

	got, err := p.Authenticate(context.Background(), "Ada@Example.com", "correct-horse")
	assert.NoError(t, err)
	assert.Equal(t, "acc_1", got.AccountID)
}
