package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxborland/cutroom/internal/module/catalog"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
)

func testReplicateClient(srv *httptest.Server) *ReplicateClient {
	return &ReplicateClient{
		baseURL: srv.URL,
		token:   "test-token",
		client:  srv.Client(),
		policy:  fastPolicy(),
		log:     testLogger(),
	}
}

func decodePredictionInput(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var req struct {
		Input map[string]any `json:"input"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req.Input
}

func TestReplicateClient_GenerateVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models/wan-video/wan-2.2-i2v-fast/predictions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "wait", r.Header.Get("Prefer"))

		input := decodePredictionInput(t, r)
		assert.Equal(t, "slow pan right", input["prompt"])
		assert.Equal(t, "https://cdn.example/frame.png", input["image"])
		assert.Equal(t, "720p", input["resolution"])

		w.Write([]byte(`{"output":"https://replicate.delivery/out.mp4"}`))
	}))
	defer srv.Close()

	m, ok := catalog.NewRegistry().ResolveVideo("wan-i2v")
	require.True(t, ok)

	out, err := testReplicateClient(srv).GenerateVideo(context.Background(), m, &VideoCall{
		Prompt:         "slow pan right",
		SourceImageURL: "https://cdn.example/frame.png",
		QualityInput:   map[string]any{"resolution": "720p"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/out.mp4", out)
}

func TestReplicateClient_OptionalFieldFallback(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		input := decodePredictionInput(t, r)
		if calls.Add(1) == 1 {
			require.Contains(t, input, "resolution")
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail":"unexpected input field: resolution"}`))
			return
		}
		// Retry carries only the required fields.
		assert.NotContains(t, input, "resolution")
		assert.Contains(t, input, "prompt")
		assert.Contains(t, input, "image")
		w.Write([]byte(`{"output":"https://replicate.delivery/out.mp4"}`))
	}))
	defer srv.Close()

	m, ok := catalog.NewRegistry().ResolveVideo("wan-i2v")
	require.True(t, ok)

	out, err := testReplicateClient(srv).GenerateVideo(context.Background(), m, &VideoCall{
		Prompt:         "p",
		SourceImageURL: "https://cdn.example/frame.png",
		QualityInput:   map[string]any{"resolution": "480p"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/out.mp4", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReplicateClient_FallbackOnlyOnOptionalFieldRejection(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"prompt must not be empty"}`))
	}))
	defer srv.Close()

	m, ok := catalog.NewRegistry().ResolveVideo("wan-i2v")
	require.True(t, ok)

	_, err := testReplicateClient(srv).GenerateVideo(context.Background(), m, &VideoCall{
		Prompt:         "",
		SourceImageURL: "https://cdn.example/frame.png",
		QualityInput:   map[string]any{"resolution": "480p"},
	})
	require.Error(t, err)
	// The body rejects a required field, so no second attempt happens.
	assert.Equal(t, int32(1), calls.Load())
}

func TestReplicateClient_PredictionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"NSFW content detected"}`))
	}))
	defer srv.Close()

	m, ok := catalog.NewRegistry().ResolveImage("seedream")
	require.True(t, ok)

	_, err := testReplicateClient(srv).GenerateImage(context.Background(), m, &ImageCall{
		Prompt:          "p",
		ReferenceImages: []string{"https://cdn.example/ref.png"},
	})
	require.ErrorIs(t, err, apperrors.ErrProvider)
	assert.Contains(t, err.Error(), "NSFW content detected")
}

func TestImagePayload(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	assert.Equal(t, raw, imagePayload(dataURL))
	assert.Equal(t, "https://cdn.example/ref.png", imagePayload("https://cdn.example/ref.png"))
	// Malformed data-URLs pass through untouched.
	assert.Equal(t, "data:image/png;base64,%%%", imagePayload("data:image/png;base64,%%%"))
}

func TestExtractReplicateOutput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare string", `"https://a/out.mp4"`, "https://a/out.mp4", true},
		{"string list", `["https://a/first.png","https://a/second.png"]`, "https://a/first.png", true},
		{"object list", `[{"url":"https://a/out.png"}]`, "https://a/out.png", true},
		{"url object", `{"url":"https://a/out.png"}`, "https://a/out.png", true},
		{"empty list", `[]`, "", false},
		{"empty string", `""`, "", false},
		{"null", `null`, "", false},
		{"number", `42`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractReplicateOutput(json.RawMessage(tc.raw))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsOptionalFieldRejection(t *testing.T) {
	optional := map[string]any{"resolution": "720p"}

	reject := &statusError{status: http.StatusBadRequest, body: `{"detail":"unknown field resolution"}`}
	assert.True(t, isOptionalFieldRejection(reject, optional))

	wrongStatus := &statusError{status: http.StatusInternalServerError, body: `unknown field resolution`}
	assert.False(t, isOptionalFieldRejection(wrongStatus, optional))

	noKeyword := &statusError{status: http.StatusUnprocessableEntity, body: `resolution is too low`}
	assert.False(t, isOptionalFieldRejection(noKeyword, optional))

	noField := &statusError{status: http.StatusUnprocessableEntity, body: `unknown field seed`}
	assert.False(t, isOptionalFieldRejection(noField, optional))

	assert.False(t, isOptionalFieldRejection(apperrors.Transient("net", nil), optional))
}
