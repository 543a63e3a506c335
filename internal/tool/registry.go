// Package tool maps names to callable capabilities, advertises them to the
// model, and dispatches parsed tool calls. Dispatch never raises: every
// failure is captured into a ToolResult the model can react to.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/castor-ai/castor/internal/core"
)

// Handler is the capability interface concrete tools implement. The
// registry owns handlers; callers only reach them through Dispatch.
type Handler interface {
	Name() string
	Toolset() string
	Definition() core.ToolDef

	// IsAvailable is checked per dispatch; handlers may become unavailable
	// at runtime (missing permission, absent hardware).
	IsAvailable() bool

	Execute(ctx context.Context, args map[string]string) core.ToolResult
}

// Registry is a thread-safe name-to-handler map. Registration may race with
// in-flight dispatches during startup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler, replacing any existing handler with the same
// name.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[h.Name()] = h
}

// Unregister removes the named handler if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers, name)
}

// Get looks up a handler by name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	return h, ok
}

// Available returns the handlers whose availability check passes, sorted by
// name so prompt rendering is stable. A handler whose check panics is
// excluded rather than propagated.
func (r *Registry) Available() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handler, 0, len(r.handlers))

	for _, h := range r.handlers {
		if safeIsAvailable(h) {
			out = append(out, h)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })

	return out
}

// Dispatch resolves and executes a call. Unknown names, unavailable
// handlers, and handler panics all come back as failed results, never as
// errors or panics to the caller.
func (r *Registry) Dispatch(ctx context.Context, call core.ToolCall) core.ToolResult {
	h, ok := r.Get(call.Name)
	if !ok {
		return core.ToolResult{
			ToolName: call.Name,
			CallID:   call.ID,
			Success:  false,
			Error:    fmt.Sprintf("unknown tool %q", call.Name),
		}
	}

	if !safeIsAvailable(h) {
		return core.ToolResult{
			ToolName: call.Name,
			CallID:   call.ID,
			Success:  false,
			Error:    fmt.Sprintf("tool %q is not available", call.Name),
		}
	}

	return safeExecute(ctx, h, call)
}

func safeIsAvailable(h Handler) (available bool) {
	defer func() {
		if recover() != nil {
			available = false
		}
	}()

	return h.IsAvailable()
}

func safeExecute(ctx context.Context, h Handler, call core.ToolCall) (result core.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = core.ToolResult{
				ToolName: call.Name,
				CallID:   call.ID,
				Success:  false,
				Error:    fmt.Sprintf("tool %q panicked: %v", call.Name, r),
			}
		}
	}()

	result = h.Execute(ctx, UnwrapArguments(call.Arguments))
	result.ToolName = call.Name
	result.CallID = call.ID

	return result
}

// promptSchema is the wire shape of one tool inside the <tools> block.
type promptSchema struct {
	Type     string       `json:"type"`
	Function core.ToolDef `json:"function"`
}

const promptInstructions = "For each function call, return a json object with function name and arguments within <tool_call></tool_call> XML tags:\n" +
	"<tool_call>\n{\"name\": <function-name>, \"arguments\": <args-json-object>}\n</tool_call>"

// PromptBlock renders the available tools into the prompt section the model
// consumes. It returns the empty string when no tool is available.
func (r *Registry) PromptBlock() string {
	available := r.Available()
	if len(available) == 0 {
		return ""
	}

	schemas := make([]promptSchema, 0, len(available))
	for _, h := range available {
		schemas = append(schemas, promptSchema{Type: "function", Function: h.Definition()})
	}

	encoded, err := json.Marshal(schemas)
	if err != nil {
		return ""
	}

	return "# Tools\n\n" +
		"You may call one or more functions to assist with the user query.\n\n" +
		"You are provided with function signatures within a tools XML block:\n" +
		"<tools>\n" + string(encoded) + "\n</tools>\n\n" +
		promptInstructions
}
