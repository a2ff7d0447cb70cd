package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/llm"
	"github.com/soyeahso/twin/internal/questions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolName(t *testing.T) {
	name, ok := ParseToolName("record_user_details")
	assert.True(t, ok)
	assert.Equal(t, ToolRecordUserDetails, name)

	name, ok = ParseToolName("record_unknown_question")
	assert.True(t, ok)
	assert.Equal(t, ToolRecordUnknownQuestion, name)

	_, ok = ParseToolName("delete_everything")
	assert.False(t, ok)
}

func TestDefinitionsOrderAndSchema(t *testing.T) {
	f := newFixture()
	defs := f.tools.Definitions()

	require.Len(t, defs, 2)
	assert.Equal(t, "record_user_details", defs[0].Name)
	assert.Equal(t, "record_unknown_question", defs[1].Name)

	var schema struct {
		Type       string                    `json:"type"`
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	}
	require.NoError(t, json.Unmarshal(defs[0].Parameters, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"email"}, schema.Required)
	assert.Contains(t, schema.Properties, "name")
	assert.Contains(t, schema.Properties, "notes")

	require.NoError(t, json.Unmarshal(defs[1].Parameters, &schema))
	assert.Equal(t, []string{"question"}, schema.Required)

	assert.Equal(t, defs, f.tools.Definitions(), "order is stable")
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewToolRegistry(silentLog())
	require.NoError(t, reg.Register(NewRecordUserDetails(nil, nil, silentLog())))
	assert.Error(t, reg.Register(NewRecordUserDetails(nil, nil, silentLog())))
	assert.Equal(t, 1, reg.Len())
}

func TestDispatchUnknownTool(t *testing.T) {
	f := newFixture()
	res, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{ID: "c1", Name: "send_money", Arguments: "{}"})
	assert.False(t, ok)
	assert.Equal(t, DispatchResult{}, res)
	assert.Empty(t, f.notifier.Messages())
}

func TestDispatchKnownNameNotRegistered(t *testing.T) {
	reg := NewToolRegistry(silentLog())
	_, ok := reg.Dispatch(context.Background(), llm.ToolCall{ID: "c1", Name: "record_user_details", Arguments: `{"email":"a@b.com"}`})
	assert.False(t, ok)
}

func TestDispatchMalformedArguments(t *testing.T) {
	f := newFixture()
	res, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{ID: "c1", Name: "record_user_details", Arguments: `{"email": `})
	require.True(t, ok)
	assert.Equal(t, "c1", res.CallID)
	assert.Error(t, res.Err)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Content), &body))
	assert.Contains(t, body["error"], "invalid arguments")
	assert.Empty(t, f.notifier.Messages(), "tool does not run on bad arguments")
}

func TestDispatchSchemaViolation(t *testing.T) {
	f := newFixture()

	cases := map[string]llm.ToolCall{
		"missing required": {ID: "c1", Name: "record_user_details", Arguments: `{"name":"Ada"}`},
		"wrong type":       {ID: "c2", Name: "record_unknown_question", Arguments: `{"question": 42}`},
		"not an object":    {ID: "c3", Name: "record_unknown_question", Arguments: `"why?"`},
		"empty arguments":  {ID: "c4", Name: "record_unknown_question", Arguments: ``},
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			res, ok := f.tools.Dispatch(context.Background(), call)
			require.True(t, ok)
			assert.Equal(t, call.ID, res.CallID)
			assert.Error(t, res.Err)
			assert.Contains(t, res.Content, `"error"`)
		})
	}
	assert.Empty(t, f.notifier.Messages())
	assert.Empty(t, f.questions.rows)
}

func TestRecordUserDetailsDefaults(t *testing.T) {
	f := newFixture()

	res, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{
		ID: "call_1", Name: "record_user_details", Arguments: `{"email":"a@b.com"}`,
	})
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.JSONEq(t, `{"status":"User details recorded successfully"}`, res.Content)

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "🎯 LEAD: Name not provided (a@b.com) - not provided", msgs[0])
	assert.Contains(t, msgs[0], "Name not provided")
	assert.Contains(t, msgs[0], "not provided")
}

func TestRecordUserDetailsAllFields(t *testing.T) {
	f := newFixture()

	res, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{
		ID: "c", Name: "record_user_details",
		Arguments: `{"email":"ada@example.com","name":"Ada","notes":"Hiring for a quant role"}`,
	})
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"🎯 LEAD: Ada (ada@example.com) - Hiring for a quant role"}, f.notifier.Messages())
}

func TestRecordUserDetailsNotificationFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	f.notifier.fail = true

	res, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{
		ID: "c", Name: "record_user_details", Arguments: `{"email":"a@b.com"}`,
	})
	require.True(t, ok)
	assert.NoError(t, res.Err)
	assert.JSONEq(t, `{"status":"User details recorded successfully"}`, res.Content)
}

func TestRecordUserDetailsEmitsHook(t *testing.T) {
	f := newFixture()

	var mu sync.Mutex
	var got hooks.Payload
	f.hooks.On(hooks.EventLeadRecorded, "test", func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		got = p
		return nil
	})

	_, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{
		ID: "c", Name: "record_user_details", Arguments: `{"email":"a@b.com","name":"Ada"}`,
	})
	require.True(t, ok)
	f.hooks.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "a@b.com", got.Data["email"])
	assert.Equal(t, "Ada", got.Data["name"])
	assert.Equal(t, "not provided", got.Data["notes"])
}

func TestRecordUnknownQuestion(t *testing.T) {
	f := newFixture()

	res, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{
		ID: "c", Name: "record_unknown_question", Arguments: `{"question":"What is X?"}`,
	})
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.JSONEq(t, `{"status":"Question logged for review"}`, res.Content)

	assert.Equal(t, []string{"❓ UNKNOWN QUESTION: What is X?"}, f.notifier.Messages())
	require.Len(t, f.questions.rows, 1)
	assert.Equal(t, "What is X?", f.questions.rows[0].Question)
	assert.False(t, f.questions.rows[0].Timestamp.IsZero())
}

func TestRecordUnknownQuestionSideEffectsIndependent(t *testing.T) {
	f := newFixture()
	f.notifier.fail = true

	res, ok := f.tools.Dispatch(context.Background(), llm.ToolCall{
		ID: "c", Name: "record_unknown_question", Arguments: `{"question":"q1"}`,
	})
	require.True(t, ok)
	assert.NoError(t, res.Err)
	assert.Len(t, f.questions.rows, 1, "log write happens even when the notification fails")

	f.notifier.fail = false
	f.questions.fail = true
	res, ok = f.tools.Dispatch(context.Background(), llm.ToolCall{
		ID: "c2", Name: "record_unknown_question", Arguments: `{"question":"q2"}`,
	})
	require.True(t, ok)
	assert.NoError(t, res.Err)
	assert.Len(t, f.notifier.Messages(), 2, "notification goes out even when the log write fails")
}

func TestRecordUnknownQuestionCSVTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unknown_questions.csv")
	csvLog := questions.NewCSVLog(path, silentLog())
	tool := NewRecordUnknownQuestion(nil, csvLog, nil, silentLog())

	reg := NewToolRegistry(silentLog())
	require.NoError(t, reg.Register(tool))

	for i, id := range []string{"c1", "c2"} {
		_, ok := reg.Dispatch(context.Background(), llm.ToolCall{ID: id, Name: "record_unknown_question", Arguments: `{"question":"What is X?"}`})
		require.True(t, ok, "call %d", i)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,question", lines[0])

	rows, err := csvLog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "What is X?", rows[0].Question)
	assert.False(t, rows[1].Timestamp.Before(rows[0].Timestamp))
}

func TestRecordUnknownQuestionUsesClock(t *testing.T) {
	q := &memQuestions{}
	tool := NewRecordUnknownQuestion(nil, q, nil, silentLog())
	fixed := time.Date(2026, 10, 1, 8, 0, 0, 0, time.Local)
	tool.now = func() time.Time { return fixed }

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"question":"q"}`))
	require.NoError(t, err)
	require.Len(t, q.rows, 1)
	assert.Equal(t, domain.UnknownQuestion{Timestamp: fixed, Question: "q"}, q.rows[0])
}
