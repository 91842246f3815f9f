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

	"github.com/pixloom/pixloom/internal/apierror"
	"github.com/pixloom/pixloom/internal/replicate"
	"github.com/pixloom/pixloom/model"
)

// ProviderStatus is one poll observation of a submitted job.
type ProviderStatus struct {
	Terminal  bool
	Succeeded bool
	OutputURL string
	Reason    string
}

// JobProvider abstracts the external media engine: submit an opaque job spec,
// then poll the returned reference until the run is terminal.
type JobProvider interface {
	Submit(ctx context.Context, spec model.JobSpec) (string, error)
	Poll(ctx context.Context, ref string) (*ProviderStatus, error)
}

// Model per operation. Object removal is pinned by a bare version hash, the
// way the provider's generic predictions endpoint addresses it.
var defaultModels = map[string]string{
	model.OpEnhance:       "nightmareai/real-esrgan:f121d640bd286e1fdc67f9799164c1d5be36ff74576ee11c803ae5b665dd46aa",
	model.OpRestore:       "tencentarc/gfpgan:0fbacf7afc6c144e5be9767cff80f25aff23e52b0708f17e20f9879b2f21516c",
	model.OpColorize:      "arielreplicate/deoldify_image:0da600fab0c45a66211339f1c16b71345d22f26ef5fea3dca1bb90bb5711e950",
	model.OpRemoveObject:  "cdac78a1bec5b23c07fd29692fb70baa513ea403a39e643c48ec5edadb15fe72",
	model.OpGenerateImage: "stability-ai/stable-diffusion-3.5-large",
	model.OpGenerateVideo: "minimax/video-01",
	model.OpGenerateAudio: "zsxkib/mmaudio:4b9f801a167b1f6cc2db6ba7ffdeb307630bf411841d4e8300e63ca992de0be9",
}

// BuildJobSpec assembles the provider payload for an operation. Enhancement
// operations reference the record's original asset; generation operations run
// from the caller's prompt alone.
func BuildJobSpec(operation string, record *model.AssetRecord, params map[string]interface{}) (model.JobSpec, error) {
	if !model.KnownOperation(operation) {
		return model.JobSpec{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Unknown operation", operation)
	}

	spec := model.JobSpec{
		Operation: operation,
		Model:     defaultModels[operation],
		Input:     map[string]interface{}{},
	}

	switch operation {
	case model.OpEnhance:
		spec.Input["image"] = record.OriginalURL
		spec.Input["scale"] = 2
	case model.OpRestore:
		spec.Input["img"] = record.OriginalURL
		spec.Input["version"] = "v1.4"
		spec.Input["scale"] = 2
	case model.OpColorize:
		spec.Input["image"] = record.OriginalURL
	case model.OpRemoveObject:
		mask, ok := params["mask"].(string)
		if !ok || mask == "" {
			return model.JobSpec{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Object removal requires a mask", nil)
		}
		spec.Input["image"] = record.OriginalURL
		spec.Input["mask"] = mask
	case model.OpGenerateImage, model.OpGenerateVideo:
		prompt, ok := params["prompt"].(string)
		if !ok || prompt == "" {
			return model.JobSpec{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Generation requires a prompt", nil)
		}
		spec.Input["prompt"] = prompt
		if operation == model.OpGenerateVideo {
			if image, ok := params["first_frame_image"].(string); ok && image != "" {
				spec.Input["first_frame_image"] = image
			}
		}
	case model.OpGenerateAudio:
		spec.Input["video"] = record.OriginalURL
		if prompt, ok := params["prompt"].(string); ok && prompt != "" {
			spec.Input["prompt"] = prompt
		}
	}

	return spec, nil
}

// ReplicateProvider adapts the prediction client to the JobProvider interface.
type ReplicateProvider struct {
	client *replicate.Client
}

func NewReplicateProvider(client *replicate.Client) *ReplicateProvider {
	return &ReplicateProvider{client: client}
}

func (r *ReplicateProvider) Submit(ctx context.Context, spec model.JobSpec) (string, error) {
	prediction, err := r.client.CreatePrediction(ctx, spec.Model, spec.Input)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrProviderFailed, "Provider rejected the job", err)
	}
	return prediction.ID, nil
}

func (r *ReplicateProvider) Poll(ctx context.Context, ref string) (*ProviderStatus, error) {
	prediction, err := r.client.GetPrediction(ctx, ref)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrProviderFailed, "Provider poll failed", err)
	}

	status := &ProviderStatus{
		Terminal:  prediction.Terminal(),
		Succeeded: prediction.Status == replicate.StatusSucceeded,
		Reason:    prediction.FailureReason(),
	}
	if url, ok := prediction.OutputURL(); ok {
		status.OutputURL = url
	}
	return status, nil
}
