package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

type Message struct {
	Role       MessageRole
	Content    string
	Images     []ImagePart
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
	Thinking   string
}

// ImagePart is an inline image attached to a user message.
type ImagePart struct {
	Data   []byte
	Format string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}
