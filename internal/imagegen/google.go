package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const imagenModel = "imagen-3.0-fast-generate-001"

type GoogleOptions struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Google calls the Imagen predict endpoint.
type Google struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGoogle(opts GoogleOptions) *Google {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = imagenModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Google{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (g *Google) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Result{}, errors.New("prompt is empty")
	}

	sampleCount := req.SampleCount
	if sampleCount <= 0 {
		sampleCount = 1
	}
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	payload := predictRequest{
		Instances: []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{
			SampleCount:       sampleCount,
			AspectRatio:       aspectRatio,
			SafetyFilterLevel: "block_some",
			PersonGeneration:  "allow_adult",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:predict?key=%s", g.baseURL, g.apiVersion, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		g.logger.Warn("imagen request failed",
			"status", httpResp.StatusCode,
			"model", g.model,
		)
		return Result{}, Classify(ProviderGoogle, httpResp.StatusCode, strings.TrimSpace(string(rawBody)))
	}

	var decoded predictResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	var images []string
	for _, p := range decoded.Predictions {
		if p.BytesBase64Encoded != "" {
			images = append(images, ToDataURI(p.BytesBase64Encoded, p.MimeType))
		}
	}
	if len(images) == 0 {
		return Result{}, &Error{
			Category: CategoryService,
			Provider: ProviderGoogle,
			Detail:   "response contained no images",
		}
	}

	return Result{Images: images}, nil
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount       int    `json:"sampleCount"`
	AspectRatio       string `json:"aspectRatio"`
	SafetyFilterLevel string `json:"safetyFilterLevel"`
	PersonGeneration  string `json:"personGeneration"`
}

type predictResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}
