package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/pixloom/pixloom/config"
	"github.com/pixloom/pixloom/internal/request"
)

// Prediction statuses reported by the predictions API. succeeded, failed and
// canceled are terminal.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Client talks to the Replicate predictions API. The token comes in through
// the constructor, never from process-wide state.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cnf config.ProviderConfig) *Client {
	return &Client{
		baseURL: cnf.BaseURL,
		token:   cnf.Token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Prediction is the subset of the predictions API response we consume.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Terminal reports whether polling can stop.
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// OutputURL extracts the output URI. The API returns either a bare string or
// an array of strings depending on the model; the first element wins.
func (p *Prediction) OutputURL() (string, bool) {
	if len(p.Output) == 0 {
		return "", false
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil && single != "" {
		return single, true
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil && len(many) > 0 {
		return many[0], true
	}
	return "", false
}

// FailureReason renders the provider-reported error, if any.
func (p *Prediction) FailureReason() string {
	if p.Error == nil {
		return ""
	}
	return fmt.Sprintf("%v", p.Error)
}

type createPredictionRequest struct {
	Version string                 `json:"version,omitempty"`
	Input   map[string]interface{} `json:"input"`
}

// CreatePrediction submits a new prediction. Version-pinned identifiers
// ("owner/name:version" or a bare version hash) go through the generic
// predictions endpoint; bare "owner/name" identifiers go through the models
// endpoint.
func (c *Client) CreatePrediction(ctx context.Context, model string, input map[string]interface{}) (*Prediction, error) {
	endpoint := fmt.Sprintf("%s/v1/predictions", c.baseURL)
	body := createPredictionRequest{Input: input}

	if version, ok := modelVersion(model); ok {
		body.Version = version
	} else {
		endpoint = fmt.Sprintf("%s/v1/models/%s/predictions", c.baseURL, model)
	}

	payload, err := request.ToJsonReq(&body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "replicate: create prediction")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("replicate: create prediction returned %d: %s", resp.StatusCode, string(raw))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, errors.Wrap(err, "replicate: decode prediction")
	}
	return &prediction, nil
}

// GetPrediction fetches the current state of a prediction by id.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	endpoint := fmt.Sprintf("%s/v1/predictions/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "replicate: get prediction")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("replicate: get prediction returned %d: %s", resp.StatusCode, string(raw))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, errors.Wrap(err, "replicate: decode prediction")
	}
	return &prediction, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

// modelVersion extracts the version hash from a pinned model identifier.
func modelVersion(model string) (string, bool) {
	for i := len(model) - 1; i >= 0; i-- {
		if model[i] == ':' {
			return model[i+1:], true
		}
	}
	if isVersionHash(model) {
		return model, true
	}
	return "", false
}

func isVersionHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
