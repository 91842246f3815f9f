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
	"bytes"
	"context"
	"image"
	"image/jpeg"

	// Registered for image.Decode; uploads arrive in any of these formats.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/model"
)

const (
	// Uploaded images are downscaled to this bound before provider runs; the
	// engines neither need nor reward more pixels.
	maxImageDimension = 1024

	jpegQuality = 90

	defaultListLimit = 50
)

// UploadImage normalizes an uploaded image (bounded dimensions, JPEG), writes
// it to the asset store and creates its record.
func (p *Pixloom) UploadImage(ctx context.Context, accountID string, data []byte) (*model.AssetRecord, error) {
	ctx, span := tracer.Start(ctx, "Uploading image")
	defer span.End()

	normalized, err := normalizeImage(data)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Unsupported or corrupt image", err)
	}

	url, err := p.store.Put(ctx, normalized, "image/jpeg")
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreWriteFailed, "Failed to store upload", err)
	}

	record, err := p.datasource.CreateRecord(ctx, model.AssetRecord{
		AccountID:   accountID,
		Kind:        model.RecordKindImage,
		OriginalURL: url,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UploadVideo writes an uploaded video to the asset store as-is and creates
// its record.
func (p *Pixloom) UploadVideo(ctx context.Context, accountID string, data []byte, contentType string) (*model.AssetRecord, error) {
	ctx, span := tracer.Start(ctx, "Uploading video")
	defer span.End()

	if contentType == "" {
		contentType = "video/mp4"
	}

	url, err := p.store.Put(ctx, data, contentType)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreWriteFailed, "Failed to store upload", err)
	}

	record, err := p.datasource.CreateRecord(ctx, model.AssetRecord{
		AccountID:   accountID,
		Kind:        model.RecordKindVideo,
		OriginalURL: url,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecords returns an account's records of one kind, newest first.
func (p *Pixloom) ListRecords(ctx context.Context, accountID, kind string) ([]model.AssetRecord, error) {
	return p.datasource.ListRecords(ctx, accountID, kind, defaultListLimit)
}

// GetRecordForAccount retrieves a record and enforces ownership.
func (p *Pixloom) GetRecordForAccount(ctx context.Context, recordID, accountID string) (*model.AssetRecord, error) {
	record, err := p.datasource.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !record.OwnedBy(accountID) {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, "Record belongs to another account", nil)
	}
	return record, nil
}

// normalizeImage decodes the upload, scales it down to fit within
// maxImageDimension when needed and re-encodes it as JPEG.
func normalizeImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxImageDimension || height > maxImageDimension {
		scale := float64(maxImageDimension) / float64(width)
		if height > width {
			scale = float64(maxImageDimension) / float64(height)
		}
		newWidth := int(float64(width) * scale)
		newHeight := int(float64(height) * scale)

		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
