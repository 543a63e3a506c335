package core

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in a conversation history. Insertion order is the
// dialogue order; the agent loop owns the sequence, not the engine.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Property describes a single tool parameter in the JSON schema advertised
// to the model.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Parameters is the parameter schema of a tool definition.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// ToolDef is the immutable, LLM-facing definition of a registered tool.
type ToolDef struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// ToolCall is a structured invocation request parsed out of raw model output.
type ToolCall struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// ToolResult is the outcome of dispatching a ToolCall. It is always
// well-formed: execution failures land in Error, never in a panic.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
}

// Sampling carries the token sampling parameters for one generation.
type Sampling struct {
	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64
	MaxTokens     int
}

// DefaultSampling returns the baseline sampling configuration used when the
// caller does not override individual knobs.
func DefaultSampling() Sampling {
	return Sampling{
		Temperature:   0.7,
		TopP:          0.95,
		TopK:          40,
		RepeatPenalty: 1.1,
		MaxTokens:     1024,
	}
}
