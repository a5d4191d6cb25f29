package httpexec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// TestExecute_SucceedsOn200 tests that a 200 response reports success
// and carries the configured User-Agent
func TestExecute_SucceedsOn200(t *testing.T) {
	// Arrange
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	executor := NewExecutor(5*time.Second, "test-agent/1.0", zap.NewNop())

	// Act
	ok := executor.Execute(context.Background(), server.URL)

	// Assert
	assert.True(t, ok)
	assert.Equal(t, "test-agent/1.0", gotUA)
}

// TestExecute_FailsOnNon200 tests that any non-200 status is a failure
func TestExecute_FailsOnNon200(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"accepted", http.StatusAccepted},
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()
			executor := NewExecutor(5*time.Second, "", zap.NewNop())

			assert.False(t, executor.Execute(context.Background(), server.URL))
		})
	}
}

// TestExecute_FollowsRedirects tests that a redirect chain ending in 200
// reports success
func TestExecute_FollowsRedirects(t *testing.T) {
	// Arrange
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/go", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	executor := NewExecutor(5*time.Second, "", zap.NewNop())

	// Act + Assert
	assert.True(t, executor.Execute(context.Background(), server.URL+"/go"))
}

// TestExecute_FailsOnUnreachableHost tests that transport errors degrade
// to failure instead of propagating
func TestExecute_FailsOnUnreachableHost(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := server.URL
	server.Close()
	executor := NewExecutor(time.Second, "", zap.NewNop())

	// Act + Assert
	assert.False(t, executor.Execute(context.Background(), url))
}

// TestExecute_FailsOnInvalidURL tests the malformed URL path
func TestExecute_FailsOnInvalidURL(t *testing.T) {
	executor := NewExecutor(time.Second, "", zap.NewNop())
	assert.False(t, executor.Execute(context.Background(), "://not-a-url"))
}

// TestExecute_RespectsContextCancellation tests that a cancelled context
// aborts the request as a failure
func TestExecute_RespectsContextCancellation(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	executor := NewExecutor(5*time.Second, "", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act + Assert
	assert.False(t, executor.Execute(ctx, server.URL))
}

// TestNoopExecutor_AlwaysSucceeds tests the dry-run executor
func TestNoopExecutor_AlwaysSucceeds(t *testing.T) {
	executor := NewNoopExecutor(zap.NewNop())
	assert.True(t, executor.Execute(context.Background(), "https://x.com/unsub"))
}
