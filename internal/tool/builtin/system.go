package builtin

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/castor-ai/castor/internal/core"
)

// DeviceInfo reports basic facts about the host the runtime is on.
type DeviceInfo struct{}

func (t *DeviceInfo) Name() string    { return "get_device_info" }
func (t *DeviceInfo) Toolset() string { return toolsetSystem }

func (t *DeviceInfo) Definition() core.ToolDef {
	return core.ToolDef{
		Name:        t.Name(),
		Description: "Get information about the device: OS, architecture, CPU count, hostname",
		Parameters: core.Parameters{
			Type:       "object",
			Properties: map[string]core.Property{},
		},
	}
}

func (t *DeviceInfo) IsAvailable() bool { return true }

func (t *DeviceInfo) Execute(_ context.Context, _ map[string]string) core.ToolResult {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	out := fmt.Sprintf("os: %s\narch: %s\ncpus: %d\nhostname: %s",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), hostname)

	return core.ToolResult{Success: true, Output: out}
}

// CurrentTime reports the current local time.
type CurrentTime struct {
	// now is overridable for tests.
	now func() time.Time
}

func (t *CurrentTime) Name() string    { return "get_current_time" }
func (t *CurrentTime) Toolset() string { return toolsetSystem }

func (t *CurrentTime) Definition() core.ToolDef {
	return core.ToolDef{
		Name:        t.Name(),
		Description: "Get the current date and time",
		Parameters: core.Parameters{
			Type: "object",
			Properties: map[string]core.Property{
				"format": {
					Type:        "string",
					Description: "Output granularity",
					Enum:        []string{"time", "date", "full"},
				},
			},
		},
	}
}

func (t *CurrentTime) IsAvailable() bool { return true }

func (t *CurrentTime) Execute(_ context.Context, args map[string]string) core.ToolResult {
	clock := t.now
	if clock == nil {
		clock = time.Now
	}

	now := clock()

	var out string
	switch args["format"] {
	case "time":
		out = now.Format("15:04")
	case "date":
		out = now.Format("Monday, January 2, 2006")
	default:
		out = now.Format("Monday, January 2, 2006 15:04:05 MST")
	}

	return core.ToolResult{Success: true, Output: out}
}
