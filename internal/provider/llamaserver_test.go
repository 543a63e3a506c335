package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/castor-ai/castor/internal/config"
	"github.com/castor-ai/castor/internal/core"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *LlamaServer) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider := NewLlamaServer(config.LlamaServerConfig{Endpoint: srv.URL})
	return srv, provider
}

func TestLlamaServerGenerate(t *testing.T) {
	var gotBody map[string]any

	_, provider := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/completion":
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"content": "paris"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	opts := core.DefaultSampling()
	opts.MaxTokens = 64

	out, err := provider.Generate(context.Background(), "capital of france?", opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "paris" {
		t.Errorf("content = %q, want %q", out, "paris")
	}

	if gotBody["prompt"] != "capital of france?" {
		t.Errorf("prompt = %v", gotBody["prompt"])
	}
	if gotBody["n_predict"] != float64(64) {
		t.Errorf("n_predict = %v, want 64", gotBody["n_predict"])
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
}

func TestLlamaServerGenerateServerError(t *testing.T) {
	_, provider := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := provider.Generate(context.Background(), "hi", core.DefaultSampling())
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error should carry server body, got %v", err)
	}
}

func TestLlamaServerUnreachableWithoutAutoStart(t *testing.T) {
	provider := NewLlamaServer(config.LlamaServerConfig{Endpoint: "http://127.0.0.1:1"})

	_, err := provider.Generate(context.Background(), "hi", core.DefaultSampling())
	if err == nil {
		t.Fatal("expected error when server is down and auto_start is off")
	}
}

func TestLlamaServerCountTokens(t *testing.T) {
	_, provider := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/tokenize":
			json.NewEncoder(w).Encode(map[string]any{"tokens": []int{1, 2, 3, 4, 5}})
		}
	})

	n, err := provider.CountTokens("hello world")
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if n != 5 {
		t.Errorf("tokens = %d, want 5", n)
	}
}

func TestLlamaServerCountTokensFallback(t *testing.T) {
	provider := NewLlamaServer(config.LlamaServerConfig{Endpoint: "http://127.0.0.1:1"})

	n, err := provider.CountTokens("abcdefgh")
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if n != 2 {
		t.Errorf("estimate = %d, want 2", n)
	}
}

func TestLlamaServerStatus(t *testing.T) {
	_, provider := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	status := provider.Status()
	if !status.Healthy {
		t.Error("expected healthy status")
	}
	if status.Running {
		t.Error("no supervised process should be running")
	}
}
