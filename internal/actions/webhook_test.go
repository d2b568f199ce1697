package actions

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/actions/internal/domain"
)

func TestWebhookType_ValidateConfig(t *testing.T) {
	wt := NewWebhookType(nil)

	tests := []struct {
		name    string
		config  map[string]any
		secrets map[string]any
		wantErr bool
	}{
		{name: "valid", config: map[string]any{"url": "https://example.com/hook"}},
		{name: "put", config: map[string]any{"url": "http://example.com", "method": "PUT"}},
		{name: "missing url", config: map[string]any{}, wantErr: true},
		{name: "relative url", config: map[string]any{"url": "/hook"}, wantErr: true},
		{name: "bad method", config: map[string]any{"url": "http://example.com", "method": "get"}, wantErr: true},
		{
			name:    "basic auth",
			config:  map[string]any{"url": "http://example.com"},
			secrets: map[string]any{"user": "u", "password": "p"},
		},
		{
			name:    "user without password",
			config:  map[string]any{"url": "http://example.com"},
			secrets: map[string]any{"user": "u"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wt.ValidateConfig(tt.config, tt.secrets)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWebhookType_ValidateParams(t *testing.T) {
	wt := NewWebhookType(nil)

	require.NoError(t, wt.ValidateParams(map[string]any{}))
	require.NoError(t, wt.ValidateParams(map[string]any{"body": `{"a":1}`}))
	require.ErrorIs(t, wt.ValidateParams(map[string]any{"body": 42}), ErrInvalidParams)
}

func TestWebhookType_Execute_Success(t *testing.T) {
	var gotMethod, gotBody, gotAuthUser, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotAuthUser, _, _ = r.BasicAuth()
		gotHeader = r.Header.Get("X-Custom")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	wt := NewWebhookType(server.Client())
	result, err := wt.Execute(context.Background(), TypeExecutorOptions{
		ActionID: "a1",
		Config: map[string]any{
			"url":     server.URL,
			"method":  "put",
			"headers": map[string]any{"X-Custom": "yes"},
		},
		Secrets: map[string]any{"user": "u", "password": "p"},
		Params:  map[string]any{"body": `{"text":"hi"}`},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ExecutorStatusOK, result.Status)
	assert.Equal(t, "a1", result.ActionID)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, `{"text":"hi"}`, gotBody)
	assert.Equal(t, "u", gotAuthUser)
	assert.Equal(t, "yes", gotHeader)

	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, data["status_code"])
	assert.Equal(t, map[string]any{"ok": true}, data["body"])
}

func TestWebhookType_Execute_StatusMapping(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name        string
		status      int
		retryAfter  string
		wantRetry   bool
		wantRetryAt *time.Time
	}{
		{name: "server error", status: http.StatusBadGateway, wantRetry: true},
		{name: "client error", status: http.StatusBadRequest, wantRetry: false},
		{name: "too many requests", status: http.StatusTooManyRequests, wantRetry: true},
		{
			name:        "too many requests with seconds",
			status:      http.StatusTooManyRequests,
			retryAfter:  "30",
			wantRetry:   true,
			wantRetryAt: ptr(now.Add(30 * time.Second)),
		},
		{
			name:        "too many requests with date",
			status:      http.StatusTooManyRequests,
			retryAfter:  "Fri, 02 Jan 2026 04:00:00 GMT",
			wantRetry:   true,
			wantRetryAt: ptr(time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer server.Close()

			wt := NewWebhookType(server.Client())
			wt.now = func() time.Time { return now }

			result, err := wt.Execute(context.Background(), TypeExecutorOptions{
				ActionID: "a1",
				Config:   map[string]any{"url": server.URL},
			})
			require.NoError(t, err)

			assert.Equal(t, domain.ExecutorStatusError, result.Status)
			assert.Equal(t, tt.wantRetry, result.Retry.ShouldRetry())
			if tt.wantRetryAt != nil {
				require.NotNil(t, result.Retry.RetryAt)
				assert.True(t, tt.wantRetryAt.Equal(*result.Retry.RetryAt))
			}
		})
	}
}

func TestWebhookType_Execute_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	wt := NewWebhookType(nil)
	result, err := wt.Execute(context.Background(), TypeExecutorOptions{
		ActionID: "a1",
		Config:   map[string]any{"url": url},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ExecutorStatusError, result.Status)
	assert.True(t, result.Retry.ShouldRetry())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

func ptr[T any](v T) *T { return &v }
