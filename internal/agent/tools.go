package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/soyeahso/twin/internal/llm"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/tracer"
)

// ToolName identifies one of the twin's tools.
type ToolName string

const (
	ToolRecordUserDetails     ToolName = "record_user_details"
	ToolRecordUnknownQuestion ToolName = "record_unknown_question"
)

// ParseToolName maps a model-supplied name onto a known tool.
func ParseToolName(s string) (ToolName, bool) {
	switch ToolName(s) {
	case ToolRecordUserDetails:
		return ToolRecordUserDetails, true
	case ToolRecordUnknownQuestion:
		return ToolRecordUnknownQuestion, true
	default:
		return "", false
	}
}

// Tool is a capability the model can invoke during a turn.
type Tool interface {
	// Name returns the tool's identifier.
	Name() ToolName

	// Description returns a human-readable description for the model.
	Description() string

	// Parameters returns the JSON Schema for the tool's arguments.
	Parameters() json.RawMessage

	// Execute runs the tool with validated JSON arguments and returns JSON output.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// DispatchResult is the outcome of one tool invocation, ready to be sent
// back to the model as a tool message.
type DispatchResult struct {
	CallID  string
	Tool    ToolName
	Content string // JSON
	Err     error  // argument or execution failure, already encoded in Content
}

// Message converts the result into the correlated tool-result message.
func (d DispatchResult) Message() llm.Message {
	return llm.Message{Role: llm.RoleTool, ToolCallID: d.CallID, Content: d.Content}
}

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

// ToolRegistry holds available tools in registration order.
type ToolRegistry struct {
	order []ToolName
	tools map[ToolName]registeredTool
	log   *logging.Logger
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry(log *logging.Logger) *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[ToolName]registeredTool),
		log:   log.Sub("agent.tools"),
	}
}

// Register adds a tool after compiling its parameter schema.
func (r *ToolRegistry) Register(t Tool) error {
	if _, dup := r.tools[t.Name()]; dup {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	schema, err := compileSchema(string(t.Name()), t.Parameters())
	if err != nil {
		return err
	}
	r.order = append(r.order, t.Name())
	r.tools[t.Name()] = registeredTool{tool: t, schema: schema}
	return nil
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name ToolName) (Tool, bool) {
	rt, ok := r.tools[name]
	return rt.tool, ok
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int { return len(r.order) }

// Definitions returns model-facing tool definitions in registration order.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].tool
		defs = append(defs, llm.ToolDefinition{
			Name:        string(t.Name()),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Dispatch resolves and runs a tool call. The bool is false when the name
// does not match a registered tool; no result exists for such calls.
// Argument and execution failures produce an error-bearing result instead
// of an error return.
func (r *ToolRegistry) Dispatch(ctx context.Context, call llm.ToolCall) (DispatchResult, bool) {
	name, known := ParseToolName(call.Name)
	if !known {
		r.log.Warn().Str("tool", call.Name).Str("callId", call.ID).Msg("ignoring call to unknown tool")
		return DispatchResult{}, false
	}
	rt, ok := r.tools[name]
	if !ok {
		r.log.Warn().Str("tool", call.Name).Str("callId", call.ID).Msg("tool not registered")
		return DispatchResult{}, false
	}

	ctx, span := tracer.StartSpan(ctx, "agent.tool")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("tool.name", string(name)), tracer.StringAttr("tool.call_id", call.ID))

	res := DispatchResult{CallID: call.ID, Tool: name}

	args, err := r.validate(rt, call.Arguments)
	if err != nil {
		res.Err = err
		res.Content = errorContent(err)
		r.log.Warn().Err(err).Str("tool", string(name)).Msg("rejected tool arguments")
		tracer.RecordError(span, err)
		return res, true
	}

	r.log.Debug().Str("tool", string(name)).Str("callId", call.ID).Msg("executing tool")
	out, err := rt.tool.Execute(ctx, args)
	if err != nil {
		res.Err = err
		res.Content = errorContent(err)
		r.log.Warn().Err(err).Str("tool", string(name)).Msg("tool execution failed")
		tracer.RecordError(span, err)
		return res, true
	}

	res.Content = out
	tracer.SetOK(span)
	return res, true
}

// validate parses the serialized arguments and checks them against the
// tool's schema. An empty argument string is treated as an empty object.
func (r *ToolRegistry) validate(rt registeredTool, raw string) (json.RawMessage, error) {
	if raw == "" {
		raw = "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := rt.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return json.RawMessage(raw), nil
}

func errorContent(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}

func statusContent(status string) string {
	data, _ := json.Marshal(map[string]string{"status": status})
	return string(data)
}
