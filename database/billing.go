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
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

// CreatePackage inserts a new credit package into the catalog.
func (d Datasource) CreatePackage(ctx context.Context, pkg model.Package) (model.Package, error) {
	pkg.PackageID = GenerateUUIDWithSuffix("pkg")
	pkg.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO packages (package_id, name, price, credits, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pkg.PackageID, pkg.Name, pkg.Price, pkg.Credits, pkg.Description, pkg.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return model.Package{}, apierror.NewAPIError(apierror.ErrConflict, "Package with this ID already exists", err)
		}
		return model.Package{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create package", err)
	}

	if d.Cache != nil {
		if err := d.Cache.Delete(ctx, packageCatalogCacheKey); err != nil {
			logrus.Warnf("invalidate package catalog cache: %v", err)
		}
	}

	return pkg, nil
}

const packageCatalogCacheKey = "packages:catalog"

// GetAllPackages retrieves the full package catalog, cheapest first. The
// catalog changes rarely, so it is served from cache when one is wired.
func (d Datasource) GetAllPackages(ctx context.Context) ([]model.Package, error) {
	var packages []model.Package
	if d.Cache != nil {
		if err := d.Cache.Get(ctx, packageCatalogCacheKey, &packages); err == nil && len(packages) > 0 {
			return packages, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT package_id, name, price, credits, COALESCE(description, ''), created_at
		FROM packages
		ORDER BY price ASC
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve packages", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(rows)

	packages = packages[:0]
	for rows.Next() {
		pkg := model.Package{}
		err = rows.Scan(&pkg.PackageID, &pkg.Name, &pkg.Price, &pkg.Credits, &pkg.Description, &pkg.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan package data", err)
		}
		packages = append(packages, pkg)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating packages", err)
	}

	if d.Cache != nil && len(packages) > 0 {
		if err := d.Cache.Set(ctx, packageCatalogCacheKey, packages, 5*time.Minute); err != nil {
			logrus.Warnf("cache package catalog: %v", err)
		}
	}

	return packages, nil
}

// GetPackageByID retrieves a package by its unique package ID.
func (d Datasource) GetPackageByID(ctx context.Context, id string) (*model.Package, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT package_id, name, price, credits, COALESCE(description, ''), created_at
		FROM packages WHERE package_id = $1
	`, id)

	pkg := &model.Package{}
	err := row.Scan(&pkg.PackageID, &pkg.Name, &pkg.Price, &pkg.Credits, &pkg.Description, &pkg.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Package with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve package", err)
	}
	return pkg, nil
}

// RecordPayment stores a completed purchase for the audit trail.
func (d Datasource) RecordPayment(ctx context.Context, payment model.Payment) (model.Payment, error) {
	payment.PaymentID = GenerateUUIDWithSuffix("pay")
	payment.CreatedAt = time.Now()

	var packageID interface{} = payment.PackageID
	if payment.PackageID == "" {
		packageID = nil
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO payments (payment_id, account_id, package_id, amount, currency, method, status, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, payment.PaymentID, payment.AccountID, packageID, payment.Amount, payment.Currency, payment.Method, payment.Status, payment.Reference, payment.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Payment{}, apierror.NewAPIError(apierror.ErrConflict, "Payment with this ID already exists", err)
			case "foreign_key_violation":
				return model.Payment{}, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid account or package ID", err)
			default:
				return model.Payment{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Payment{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payment", err)
	}

	return payment, nil
}
