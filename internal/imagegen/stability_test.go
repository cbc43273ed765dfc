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

func TestStabilityGenerate(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody textToImageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(textToImageResponse{
			Artifacts: []artifact{{Base64: "YmFy", FinishReason: "SUCCESS"}},
		})
	}))
	defer srv.Close()

	client := NewStability(StabilityOptions{
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})

	result, err := client.Generate(context.Background(), Request{
		Prompt:      "subject: cat.",
		AspectRatio: "21:9",
	})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	assert.Equal(t, "data:image/png;base64,YmFy", result.Images[0])

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image", gotPath)
	require.Len(t, gotBody.TextPrompts, 1)
	assert.Equal(t, "subject: cat.", gotBody.TextPrompts[0].Text)
	assert.Equal(t, 1536, gotBody.Width)
	assert.Equal(t, 640, gotBody.Height)
	assert.Equal(t, 1, gotBody.Samples)
}

func TestStabilityFilteredArtifacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(textToImageResponse{
			Artifacts: []artifact{{Base64: "YmFy", FinishReason: "CONTENT_FILTERED"}},
		})
	}))
	defer srv.Close()

	client := NewStability(StabilityOptions{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := client.Generate(context.Background(), Request{Prompt: "x"})

	genErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CategoryInvalidPrompt, genErr.Category)
}

func TestStabilityDimensions(t *testing.T) {
	cases := map[string][2]int{
		"1:1":   {1024, 1024},
		"16:9":  {1344, 768},
		"4:5":   {896, 1152},
		"21:9":  {1536, 640},
		"other": {1024, 1024},
	}
	for ratio, want := range cases {
		w, h := stabilityDimensions(ratio)
		assert.Equal(t, want[0], w, ratio)
		assert.Equal(t, want[1], h, ratio)
	}
}

func TestDataURIHelpers(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,abc", ToDataURI("abc", ""))
	assert.Equal(t, "data:image/jpeg;base64,abc", ToDataURI("abc", "image/jpeg"))
	assert.Equal(t, "data:image/png;base64,xyz", ToDataURI("data:image/png;base64,xyz", "image/jpeg"))
	assert.Equal(t, "https://example.com/x.png", ToDataURI("https://example.com/x.png", ""))

	mime, data := SplitDataURI("data:image/webp;base64,abc", "image/png")
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, "abc", data)

	mime, data = SplitDataURI("abc", "image/png")
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "abc", data)
}
