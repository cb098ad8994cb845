// Package openaiclient is the low-level HTTP client shared by the
// generator, judge, planner, and refiner adapters. It carries the retry
// loop, error classification, and JSON-schema plumbing; each adapter owns
// its own prompts, schemas, and deterministic fallback behavior.
package openaiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/choiwab/promptsmith/internal/pkg/httpx"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// FailureCategory classifies an adapter-facing error the way §2.4 of the
// eval orchestrator expects: timeout, upstream-error, safety-rejection, or
// malformed-output.
type FailureCategory string

const (
	FailureTimeout          FailureCategory = "timeout"
	FailureUpstreamError    FailureCategory = "upstream_error"
	FailureSafetyRejection  FailureCategory = "safety_rejection"
	FailureMalformedOutput  FailureCategory = "malformed_output"
)

// Error wraps an adapter failure with its category so callers can decide
// whether to retry, degrade, or terminalize.
type Error struct {
	Category FailureCategory
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("openai: %s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the category is a timeout or an upstream error.
func (e *Error) Retryable() bool {
	return e.Category == FailureTimeout || e.Category == FailureUpstreamError
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

// Config carries the subset of app.Config the client needs, kept separate
// so adapter packages don't import internal/app (which would cycle back
// through the wiring layer).
type Config struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	VisionModel string
	TimeoutSecs int
	MaxRetries  int
}

type Client struct {
	cfg        Config
	log        *logger.Logger
	httpClient *http.Client
}

// Enabled reports whether an API key is configured. When false, every
// adapter must use its deterministic fallback per §6's
// openai_api_key configuration note.
func (c *Client) Enabled() bool {
	return c != nil && strings.TrimSpace(c.cfg.APIKey) != ""
}

func New(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.TimeoutSecs
	if timeout <= 0 {
		timeout = 60
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	cfg.BaseURL = baseURL
	return &Client{
		cfg:        cfg,
		log:        log.With("service", "openaiclient"),
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return classify(ctx.Err())
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out != nil {
				if uErr := json.Unmarshal(raw, out); uErr != nil {
					return &Error{Category: FailureMalformedOutput, Err: fmt.Errorf("decode response: %w; raw=%s", uErr, string(raw))}
				}
			}
			return nil
		}
		lastErr = err

		if !httpx.IsRetryableError(err) {
			return classify(err)
		}
		if attempt == maxRetries {
			break
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("openai request retrying", "path", path, "attempt", attempt+1, "max_retries", maxRetries, "sleep", sleepFor.String(), "error", err.Error())
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return classify(lastErr)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: FailureTimeout, Err: err}
	}
	var he *httpError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == 400 && strings.Contains(strings.ToLower(he.Body), "safety"):
			return &Error{Category: FailureSafetyRejection, Err: err}
		case he.StatusCode == 408 || he.StatusCode == 429 || he.StatusCode >= 500:
			return &Error{Category: FailureTimeout, Err: err}
		default:
			return &Error{Category: FailureUpstreamError, Err: err}
		}
	}
	var adapterErr *Error
	if errors.As(err, &adapterErr) {
		return adapterErr
	}
	return &Error{Category: FailureUpstreamError, Err: err}
}

// -------------------- Images --------------------

type imagesGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imagesEditRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Image          string `json:"image"`
	N              int    `json:"n,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imagesResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage is the text-to-image operation.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	req := imagesGenerationRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         prompt,
		N:              1,
		ResponseFormat: "b64_json",
	}
	var resp imagesResponse
	if err := c.do(ctx, "POST", "/v1/images/generations", req, &resp); err != nil {
		return nil, err
	}
	return decodeFirstImage(resp)
}

// EditImage is the image-edit operation: base bytes + prompt -> new bytes.
func (c *Client) EditImage(ctx context.Context, prompt string, baseImage []byte) ([]byte, error) {
	req := imagesEditRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         prompt,
		Image:          base64.StdEncoding.EncodeToString(baseImage),
		N:              1,
		ResponseFormat: "b64_json",
	}
	var resp imagesResponse
	if err := c.do(ctx, "POST", "/v1/images/edits", req, &resp); err != nil {
		return nil, err
	}
	return decodeFirstImage(resp)
}

func decodeFirstImage(resp imagesResponse) ([]byte, error) {
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].B64JSON) == "" {
		return nil, &Error{Category: FailureMalformedOutput, Err: errors.New("no image data returned")}
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &Error{Category: FailureMalformedOutput, Err: fmt.Errorf("decode image base64: %w", err)}
	}
	return raw, nil
}

// -------------------- Structured JSON (Responses API) --------------------

type responsesRequest struct {
	Model        string  `json:"model"`
	Instructions string  `json:"instructions,omitempty"`
	Input        []input `json:"input"`
	Text         struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type input struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

// GenerateJSON performs a strict json_schema Responses API call and parses
// the result into a generic map. model selects which configured model is
// used (text or vision) so judge calls can route to the vision model.
func (c *Client) GenerateJSON(ctx context.Context, model, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	req := responsesRequest{
		Model: model,
		Input: []input{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}
	return c.callJSON(ctx, req)
}

// GenerateJSONWithImage is GenerateJSON plus a single base64-encoded image
// attached to the user turn, used by the judge's vision-score call.
func (c *Client) GenerateJSONWithImage(ctx context.Context, model, system, user, schemaName string, schema map[string]any, imageBytes []byte, mimeType string) (map[string]any, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageBytes))
	content := []map[string]any{
		{"type": "input_text", "text": user},
		{"type": "input_image", "image_url": dataURL},
	}
	req := responsesRequest{
		Model: model,
		Input: []input{
			{Role: "system", Content: system},
			{Role: "user", Content: content},
		},
		Temperature: 0.2,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}
	return c.callJSON(ctx, req)
}

// ImageInput is one image attachment for a multi-image structured call.
type ImageInput struct {
	Bytes    []byte
	MimeType string
}

// GenerateJSONWithImages is GenerateJSONWithImage generalized to N images in
// a fixed order, used by the compare orchestrator's signal calls which need
// to show the model both the baseline and the candidate.
func (c *Client) GenerateJSONWithImages(ctx context.Context, model, system, user, schemaName string, schema map[string]any, images []ImageInput) (map[string]any, error) {
	content := []map[string]any{
		{"type": "input_text", "text": user},
	}
	for _, img := range images {
		mimeType := img.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img.Bytes))
		content = append(content, map[string]any{"type": "input_image", "image_url": dataURL})
	}
	req := responsesRequest{
		Model: model,
		Input: []input{
			{Role: "system", Content: system},
			{Role: "user", Content: content},
		},
		Temperature: 0.2,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}
	return c.callJSON(ctx, req)
}

func (c *Client) callJSON(ctx context.Context, req responsesRequest) (map[string]any, error) {
	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, &Error{Category: FailureSafetyRejection, Err: fmt.Errorf("model refused: %s", resp.Refusal)}
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, &Error{Category: FailureMalformedOutput, Err: errors.New("no output_text in response")}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, &Error{Category: FailureMalformedOutput, Err: fmt.Errorf("parse model json: %w; text=%s", err, text)}
	}
	return obj, nil
}
