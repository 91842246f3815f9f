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
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height)))
	assert.NoError(t, err)
	return buf.Bytes()
}

func TestNormalizeImage_DownscalesLargeImages(t *testing.T) {
	data, err := normalizeImage(encodePNG(t, 2048, 1024))
	assert.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())
}

func TestNormalizeImage_TallImagesScaleByHeight(t *testing.T) {
	data, err := normalizeImage(encodePNG(t, 500, 2000))
	assert.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dy())
	assert.Equal(t, 125, img.Bounds().Dx())
}

func TestNormalizeImage_SmallImagesKeepDimensions(t *testing.T) {
	data, err := normalizeImage(encodePNG(t, 640, 480))
	assert.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestNormalizeImage_RejectsGarbage(t *testing.T) {
	_, err := normalizeImage([]byte("not an image"))
	assert.Error(t, err)
}
