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

const stabilityEngine = "stable-diffusion-xl-1024-v1-0"

type StabilityOptions struct {
	APIKey     string
	BaseURL    string
	Engine     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Stability calls the Stability AI text-to-image endpoint.
type Stability struct {
	apiKey     string
	baseURL    string
	engine     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewStability(opts StabilityOptions) *Stability {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stability.ai"
	}

	engine := strings.TrimSpace(opts.Engine)
	if engine == "" {
		engine = stabilityEngine
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Stability{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		engine:     engine,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (s *Stability) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Result{}, errors.New("prompt is empty")
	}

	samples := req.SampleCount
	if samples <= 0 {
		samples = 1
	}
	width, height := stabilityDimensions(req.AspectRatio)

	payload := textToImageRequest{
		TextPrompts: []textPrompt{{Text: prompt, Weight: 1}},
		CfgScale:    7,
		Width:       width,
		Height:      height,
		Steps:       30,
		Samples:     samples,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", s.baseURL, s.engine)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("accept", "application/json")
	httpReq.Header.Set("authorization", "Bearer "+s.apiKey)

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		s.logger.Warn("stability request failed",
			"status", httpResp.StatusCode,
			"engine", s.engine,
		)
		return Result{}, Classify(ProviderStability, httpResp.StatusCode, strings.TrimSpace(string(rawBody)))
	}

	var decoded textToImageResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	var images []string
	for _, a := range decoded.Artifacts {
		if a.FinishReason == "CONTENT_FILTERED" {
			continue
		}
		if a.Base64 != "" {
			images = append(images, ToDataURI(a.Base64, "image/png"))
		}
	}
	if len(images) == 0 {
		return Result{}, &Error{
			Category: CategoryInvalidPrompt,
			Provider: ProviderStability,
			Detail:   "all artifacts were filtered or empty",
		}
	}

	return Result{Images: images}, nil
}

// stabilityDimensions maps an aspect ratio onto the engine's allowed
// SDXL resolutions.
func stabilityDimensions(aspectRatio string) (width, height int) {
	switch aspectRatio {
	case "16:9":
		return 1344, 768
	case "4:5":
		return 896, 1152
	case "21:9":
		return 1536, 640
	default:
		return 1024, 1024
	}
}

type textToImageRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    int          `json:"cfg_scale"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Steps       int          `json:"steps"`
	Samples     int          `json:"samples"`
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type textToImageResponse struct {
	Artifacts []artifact `json:"artifacts"`
}

type artifact struct {
	Base64       string `json:"base64"`
	FinishReason string `json:"finishReason"`
}
