package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/castor-ai/castor/internal/agent"
	"github.com/castor-ai/castor/internal/core"
)

type stubRunner struct {
	result agent.Result
	err    error

	gotInput   string
	gotHistory []core.Turn
}

func (r *stubRunner) Run(_ context.Context, input string, history []core.Turn) (agent.Result, error) {
	r.gotInput = input
	r.gotHistory = history

	return r.result, r.err
}

func TestRespond(t *testing.T) {
	runner := &stubRunner{result: agent.Result{
		Response:      "It is 14:32.",
		State:         agent.StateCompleted,
		Tier:          "local",
		TurnsUsed:     2,
		ToolCallsMade: 1,
	}}

	srv := httptest.NewServer(New(runner, nil).Router())
	defer srv.Close()

	body := `{"input": "what time is it?", "history": [{"role": "user", "content": "hi"}]}`

	resp, err := http.Post(srv.URL+"/v1/respond", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var payload respondResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if payload.Response != "It is 14:32." {
		t.Errorf("response = %q", payload.Response)
	}
	if payload.TurnsUsed != 2 || payload.ToolCallsMade != 1 {
		t.Errorf("turns = %d, calls = %d", payload.TurnsUsed, payload.ToolCallsMade)
	}
	if runner.gotInput != "what time is it?" {
		t.Errorf("input = %q", runner.gotInput)
	}
	if len(runner.gotHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(runner.gotHistory))
	}
}

func TestRespondRejectsEmptyInput(t *testing.T) {
	srv := httptest.NewServer(New(&stubRunner{}, nil).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/respond", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRespondRejectsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(New(&stubRunner{}, nil).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/respond", "application/json", strings.NewReader(`{nope`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRespondLoopError(t *testing.T) {
	runner := &stubRunner{err: errors.New("boom")}

	srv := httptest.NewServer(New(runner, nil).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/respond", "application/json", strings.NewReader(`{"input": "x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(New(&stubRunner{}, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
