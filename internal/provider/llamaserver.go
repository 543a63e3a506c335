package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/castor-ai/castor/internal/config"
	"github.com/castor-ai/castor/internal/conversation"
	"github.com/castor-ai/castor/internal/core"
)

// LlamaServer generates completions through a local llama-server process,
// optionally supervising its lifecycle. It serves the local tier on hosts
// where no in-process backend is linked in.
type LlamaServer struct {
	cfg    config.LlamaServerConfig
	client *http.Client

	mu    sync.Mutex
	cmd   *exec.Cmd
	start time.Time
}

func NewLlamaServer(cfg config.LlamaServerConfig) *LlamaServer {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &LlamaServer{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Status describes the supervised process and endpoint health.
type Status struct {
	Endpoint  string
	AutoStart bool
	Healthy   bool
	Running   bool
	PID       int
	StartedAt time.Time
}

func (p *LlamaServer) Status() Status {
	p.mu.Lock()
	pid := 0
	if p.cmd != nil && p.cmd.Process != nil {
		pid = p.cmd.Process.Pid
	}
	started := p.start
	p.mu.Unlock()

	return Status{
		Endpoint:  p.cfg.Endpoint,
		AutoStart: p.cfg.AutoStart,
		Healthy:   p.isHealthy(),
		Running:   pid != 0,
		PID:       pid,
		StartedAt: started,
	}
}

// Generate posts the rendered prompt to llama-server's raw completion
// endpoint with the requested sampling parameters.
func (p *LlamaServer) Generate(ctx context.Context, prompt string, opts core.Sampling) (string, error) {
	if err := p.ensureRunning(); err != nil {
		return "", err
	}

	payload := map[string]any{
		"prompt":         prompt,
		"n_predict":      opts.MaxTokens,
		"temperature":    opts.Temperature,
		"top_p":          opts.TopP,
		"top_k":          opts.TopK,
		"repeat_penalty": opts.RepeatPenalty,
		"stream":         false,
		"stop":           []string{"<|im_end|>"},
	}

	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(httpResp.Body)
		if len(bodyBytes) > 0 {
			return "", errors.New(httpResp.Status + ": " + strings.TrimSpace(string(bodyBytes)))
		}
		return "", errors.New(httpResp.Status)
	}

	var responsePayload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&responsePayload); err != nil {
		return "", err
	}

	return responsePayload.Content, nil
}

// CountTokens asks the server's tokenizer, falling back to the local
// estimate when the server is unreachable.
func (p *LlamaServer) CountTokens(text string) (int, error) {
	if err := p.ensureRunning(); err != nil {
		return conversation.EstimateTokens(text), nil
	}

	requestBody, _ := json.Marshal(map[string]any{"content": text})
	httpResp, err := p.client.Post(p.cfg.Endpoint+"/tokenize", "application/json", bytes.NewReader(requestBody))
	if err != nil {
		return conversation.EstimateTokens(text), nil
	}
	defer httpResp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(httpResp.Body).Decode(&payload); err != nil {
		return conversation.EstimateTokens(text), nil
	}

	if tokens, ok := payload["tokens"].([]any); ok {
		return len(tokens), nil
	}

	return conversation.EstimateTokens(text), nil
}

// Start launches the supervised process, replacing any previous one.
func (p *LlamaServer) Start() error {
	if !p.cfg.AutoStart {
		return errors.New("auto_start disabled")
	}

	if p.cfg.ModelPath == "" {
		return errors.New("model_path required")
	}

	if _, err := os.Stat(p.cfg.ModelPath); err != nil {
		return err
	}

	p.stopProcess()
	return p.spawnProcess()
}

// Stop kills the supervised process if one is running.
func (p *LlamaServer) Stop() {
	p.stopProcess()
}

func (p *LlamaServer) ensureRunning() error {
	if p.isHealthy() {
		return nil
	}

	if !p.cfg.AutoStart {
		return errors.New("llama-server not reachable")
	}

	if err := p.Start(); err != nil {
		return err
	}

	return p.waitReady()
}

func (p *LlamaServer) isHealthy() bool {
	resp, err := p.client.Get(p.cfg.Endpoint + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *LlamaServer) spawnProcess() error {
	parsed, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return err
	}

	host := parsed.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}

	port := parsed.Port()
	if port == "" {
		port = "8080"
	}

	bin := p.cfg.BinPath
	if bin == "" {
		bin = "llama-server"
	}

	args := []string{
		"--host", host,
		"--port", port,
		"--model", p.cfg.ModelPath,
		"--ctx-size", strconv.Itoa(p.cfg.ContextSize),
		"--n-gpu-layers", strconv.Itoa(p.cfg.GPULayers),
	}

	cmd := exec.Command(bin, args...)
	if p.cfg.InheritStdio {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	p.mu.Lock()
	p.cmd = cmd
	p.start = time.Now()
	p.mu.Unlock()

	return nil
}

func (p *LlamaServer) stopProcess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return
	}

	_ = p.cmd.Process.Kill()
	p.cmd = nil
}

func (p *LlamaServer) waitReady() error {
	wait := p.cfg.StartupWait
	if wait == 0 {
		wait = 10 * time.Second
	}

	deadline := time.Now().Add(wait)

	for time.Now().Before(deadline) {
		if p.isHealthy() {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("llama-server did not become ready within %s", wait)
}
