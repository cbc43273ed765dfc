package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleGenerate(t *testing.T) {
	var gotPath string
	var gotBody predictRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(predictResponse{
			Predictions: []prediction{{BytesBase64Encoded: "Zm9v", MimeType: "image/png"}},
		})
	}))
	defer srv.Close()

	client := NewGoogle(GoogleOptions{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})

	result, err := client.Generate(context.Background(), Request{
		Prompt:      "subject: cat.",
		AspectRatio: "16:9",
	})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	assert.Equal(t, "data:image/png;base64,Zm9v", result.Images[0])

	assert.Equal(t, "/v1beta/models/imagen-3.0-fast-generate-001:predict", gotPath)
	require.Len(t, gotBody.Instances, 1)
	assert.Equal(t, "subject: cat.", gotBody.Instances[0].Prompt)
	assert.Equal(t, 1, gotBody.Parameters.SampleCount)
	assert.Equal(t, "16:9", gotBody.Parameters.AspectRatio)
	assert.Equal(t, "block_some", gotBody.Parameters.SafetyFilterLevel)
	assert.Equal(t, "allow_adult", gotBody.Parameters.PersonGeneration)
}

func TestGoogleGenerateEmptyPrompt(t *testing.T) {
	client := NewGoogle(GoogleOptions{APIKey: "k"})
	_, err := client.Generate(context.Background(), Request{Prompt: "   "})
	assert.Error(t, err)
}

func TestGoogleStatusClassification(t *testing.T) {
	cases := []struct {
		status   int
		category Category
	}{
		{http.StatusBadRequest, CategoryInvalidPrompt},
		{http.StatusUnauthorized, CategoryAuth},
		{http.StatusForbidden, CategoryAuth},
		{http.StatusTooManyRequests, CategoryRateLimit},
		{http.StatusInternalServerError, CategoryService},
		{http.StatusServiceUnavailable, CategoryService},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "provider said no", tc.status)
		}))

		client := NewGoogle(GoogleOptions{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
		_, err := client.Generate(context.Background(), Request{Prompt: "x"})
		srv.Close()

		genErr, ok := AsError(err)
		require.True(t, ok, "status %d", tc.status)
		assert.Equal(t, tc.category, genErr.Category, "status %d", tc.status)
		assert.Equal(t, tc.status, genErr.Status)
		assert.NotEmpty(t, genErr.Message())
	}
}

func TestGoogleEmptyPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResponse{})
	}))
	defer srv.Close()

	client := NewGoogle(GoogleOptions{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})

	genErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CategoryService, genErr.Category)
}
