package builtin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/castor-ai/castor/internal/memory"
	"github.com/castor-ai/castor/internal/tool"
)

func newStore(t *testing.T) memory.Store {
	t.Helper()

	store, err := memory.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	return store
}

func TestRegisterAll(t *testing.T) {
	registry := tool.NewRegistry()
	RegisterAll(registry, newStore(t))

	available := registry.Available()
	if len(available) != 4 {
		t.Fatalf("available tools = %d, want 4", len(available))
	}

	want := []string{"get_current_time", "get_device_info", "recall_memory", "save_memory"}
	for i, h := range available {
		if h.Name() != want[i] {
			t.Errorf("tool %d = %q, want %q", i, h.Name(), want[i])
		}
	}
}

func TestSaveThenRecall(t *testing.T) {
	store := newStore(t)
	save := &SaveMemory{store: store}
	recall := &RecallMemory{store: store}

	result := save.Execute(context.Background(), map[string]string{
		"category": "preference",
		"key":      "coffee",
		"value":    "oat milk latte",
	})
	if !result.Success {
		t.Fatalf("save failed: %s", result.Error)
	}

	result = recall.Execute(context.Background(), map[string]string{"search": "coffee"})
	if !result.Success {
		t.Fatalf("recall failed: %s", result.Error)
	}
	if !strings.Contains(result.Output, "oat milk latte") {
		t.Errorf("recall output = %q", result.Output)
	}
}

func TestSaveMemoryRejectsMissingKey(t *testing.T) {
	save := &SaveMemory{store: newStore(t)}

	result := save.Execute(context.Background(), map[string]string{"value": "something"})
	if result.Success {
		t.Fatal("expected failure for missing key")
	}
}

func TestRecallMemoryEmpty(t *testing.T) {
	recall := &RecallMemory{store: newStore(t)}

	result := recall.Execute(context.Background(), nil)
	if !result.Success {
		t.Fatalf("recall failed: %s", result.Error)
	}
	if result.Output != "No matching memories." {
		t.Errorf("output = %q", result.Output)
	}
}

func TestMemoryToolsUnavailableWithoutStore(t *testing.T) {
	save := &SaveMemory{}
	if save.IsAvailable() {
		t.Error("save_memory should be unavailable without a store")
	}

	recall := &RecallMemory{}
	if recall.IsAvailable() {
		t.Error("recall_memory should be unavailable without a store")
	}
}

func TestDeviceInfo(t *testing.T) {
	info := &DeviceInfo{}

	result := info.Execute(context.Background(), nil)
	if !result.Success {
		t.Fatalf("execute failed: %s", result.Error)
	}
	if !strings.Contains(result.Output, "os: ") || !strings.Contains(result.Output, "cpus: ") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestCurrentTimeFormats(t *testing.T) {
	fixed := time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)
	clock := &CurrentTime{now: func() time.Time { return fixed }}

	tests := []struct {
		format string
		want   string
	}{
		{"time", "09:26"},
		{"date", "Friday, March 14, 2025"},
		{"full", "Friday, March 14, 2025 09:26:53 UTC"},
		{"", "Friday, March 14, 2025 09:26:53 UTC"},
	}

	for _, tc := range tests {
		result := clock.Execute(context.Background(), map[string]string{"format": tc.format})
		if !result.Success {
			t.Fatalf("execute failed: %s", result.Error)
		}
		if result.Output != tc.want {
			t.Errorf("format %q = %q, want %q", tc.format, result.Output, tc.want)
		}
	}
}
