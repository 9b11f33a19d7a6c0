package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReplicateServer emulates the subset of the Replicate API the client
// exercises: prediction creation returns a completed prediction immediately,
// and polling (if the SDK issues it) echoes the same completed state.
type mockReplicateServer struct {
	server     *httptest.Server
	output     any
	lastInput  map[string]any
	statusCode int
}

func newMockReplicateServer(output any) *mockReplicateServer {
	m := &mockReplicateServer{output: output, statusCode: http.StatusOK}
	m.server = httptest.NewServer(http.HandlerFunc(m.handler))
	return m
}

func (m *mockReplicateServer) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if strings.Contains(r.URL.Path, "/predictions") && r.Method == http.MethodPost {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if input, ok := req["input"].(map[string]any); ok {
			m.lastInput = input
		}

		if m.statusCode != http.StatusOK {
			w.WriteHeader(m.statusCode)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"detail": "mock error",
			})
			return
		}

		resp := map[string]any{
			"id":      "prediction-1",
			"version": "test-version-id",
			"status":  "succeeded",
			"output":  m.output,
			"urls": map[string]string{
				"get":    m.server.URL + "/predictions/prediction-1",
				"cancel": m.server.URL + "/predictions/prediction-1/cancel",
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if strings.Contains(r.URL.Path, "/predictions/") && r.Method == http.MethodGet {
		resp := map[string]any{
			"id":      "prediction-1",
			"version": "test-version-id",
			"status":  "succeeded",
			"output":  m.output,
		}
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	http.Error(w, "not found", http.StatusNotFound)
}

func (m *mockReplicateServer) Close() { m.server.Close() }

func TestNew_RequiresAPIKey(t *testing.T) {
	orig := os.Getenv("MODEL_API_KEY")
	os.Unsetenv("MODEL_API_KEY")
	defer func() {
		if orig != "" {
			os.Setenv("MODEL_API_KEY", orig)
		}
	}()

	_, err := New(registry.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestComplete_StringOutput(t *testing.T) {
	m := newMockReplicateServer("hello from replicate")
	defer m.Close()

	client, err := New(registry.Config{"api_key": "test-key", "base_url": m.server.URL})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "meta/llama-2-7b-chat", "be terse", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello from replicate", text)
	assert.Equal(t, "be terse", m.lastInput["system_prompt"])
}

func TestComplete_SliceOutput(t *testing.T) {
	m := newMockReplicateServer([]any{"hel", "lo ", "there"})
	defer m.Close()

	client, err := New(registry.Config{"api_key": "test-key", "base_url": m.server.URL})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "meta/llama-2-7b-chat", "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hel lo there", text)
}

func TestComplete_ServerErrorIsTransient(t *testing.T) {
	m := newMockReplicateServer("unused")
	m.statusCode = http.StatusServiceUnavailable
	defer m.Close()

	client, err := New(registry.Config{"api_key": "test-key", "base_url": m.server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "meta/llama-2-7b-chat", "", "hi")
	require.Error(t, err)
	assert.True(t, clienterrors.IsRetryable(err))
}

func TestComplete_BadRequestIsPermanent(t *testing.T) {
	m := newMockReplicateServer("unused")
	m.statusCode = http.StatusUnprocessableEntity
	defer m.Close()

	client, err := New(registry.Config{"api_key": "test-key", "base_url": m.server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "meta/llama-2-7b-chat", "", "hi")
	require.Error(t, err)
	assert.False(t, clienterrors.IsRetryable(err))
}

func TestExtractText_DefaultFormatsNonStringOutput(t *testing.T) {
	text := extractText(42.0)
	assert.Equal(t, fmt.Sprintf("%v", 42.0), text)
}

func TestName(t *testing.T) {
	client, err := New(registry.Config{"api_key": "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "replicate.Prediction", client.Name())
}

func TestRegistration(t *testing.T) {
	_, ok := modelclient.Registry.Get("replicate.Prediction")
	require.True(t, ok)
}
