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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

func TestCreatePackage_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO packages").
		WithArgs(sqlmock.AnyArg(), "Starter", sqlmock.AnyArg(), int64(20), "20 credits", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pkg, err := ds.CreatePackage(context.Background(), model.Package{
		Name:        "Starter",
		Price:       decimal.NewFromFloat(4.99),
		Credits:     20,
		Description: "20 credits",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, pkg.PackageID)
	assert.WithinDuration(t, time.Now(), pkg.CreatedAt, time.Second)
}

func TestGetAllPackages(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT package_id, name, price").
		WillReturnRows(sqlmock.NewRows([]string{"package_id", "name", "price", "credits", "description", "created_at"}).
			AddRow("pkg_1", "Starter", decimal.NewFromFloat(4.99), int64(20), "20 credits", time.Now()).
			AddRow("pkg_2", "Studio", decimal.NewFromFloat(19.99), int64(100), "100 credits", time.Now()))

	packages, err := ds.GetAllPackages(context.Background())
	assert.NoError(t, err)
	assert.Len(t, packages, 2)
	assert.Equal(t, int64(100), packages[1].Credits)
}

func TestGetPackageByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT package_id, name, price").
		WithArgs("pkg_missing").
		WillReturnRows(sqlmock.NewRows([]string{"package_id"}))

	_, err = ds.GetPackageByID(context.Background(), "pkg_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestRecordPayment_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), "acc_1", "pkg_1", sqlmock.AnyArg(), "USD", "admin", "completed", "manual top-up", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment, err := ds.RecordPayment(context.Background(), model.Payment{
		AccountID: "acc_1",
		PackageID: "pkg_1",
		Amount:    decimal.NewFromFloat(4.99),
		Currency:  "USD",
		Method:    "admin",
		Status:    "completed",
		Reference: "manual top-up",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, payment.PaymentID)
}
