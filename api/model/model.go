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
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Register is the sign-up request body.
type Register struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Register) ValidateRegister() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 64)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

// Login is the sign-in request body. Identifier takes a username or email.
type Login struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (l *Login) ValidateLogin() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Identifier, validation.Required),
		validation.Field(&l.Password, validation.Required),
	)
}

// RemoveObject carries the mask for object removal.
type RemoveObject struct {
	Mask string `json:"mask"`
}

func (r *RemoveObject) ValidateRemoveObject() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Mask, validation.Required, is.URL),
	)
}

// Generate carries the prompt for image and video generation. Image is an
// optional first-frame URL for video generation.
type Generate struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image,omitempty"`
}

func (g *Generate) ValidateGenerate() error {
	return validation.ValidateStruct(g,
		validation.Field(&g.Prompt, validation.Required, validation.Length(1, 2000)),
		validation.Field(&g.Image, is.URL),
	)
}

// GenerateAudio carries the optional prompt for soundtrack generation.
type GenerateAudio struct {
	Prompt string `json:"prompt"`
}

func (g *GenerateAudio) ValidateGenerateAudio() error {
	return validation.ValidateStruct(g,
		validation.Field(&g.Prompt, validation.Length(0, 2000)),
	)
}

// TopUpCredits is the admin grant request body.
type TopUpCredits struct {
	AccountID string     `json:"account_id"`
	Credits   int64      `json:"credits"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reference string     `json:"reference"`
}

func (t *TopUpCredits) ValidateTopUpCredits() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.AccountID, validation.Required),
		validation.Field(&t.Credits, validation.Required, validation.Min(1)),
	)
}
