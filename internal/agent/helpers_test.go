package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// recordingNotifier captures notifications; fail makes every call error.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (n *recordingNotifier) Notify(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	if n.fail {
		return errors.New("push service unavailable")
	}
	return nil
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// memQuestions is an in-memory question log.
type memQuestions struct {
	mu   sync.Mutex
	rows []domain.UnknownQuestion
	fail bool
}

func (m *memQuestions) Append(_ context.Context, q domain.UnknownQuestion) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, q)
	return nil
}

func (m *memQuestions) List(context.Context) ([]domain.UnknownQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.UnknownQuestion(nil), m.rows...), nil
}

func (m *memQuestions) Close() error { return nil }

type fixture struct {
	notifier  *recordingNotifier
	questions *memQuestions
	hooks     *hooks.Manager
	tools     *ToolRegistry
}

func newFixture() *fixture {
	f := &fixture{
		notifier:  &recordingNotifier{},
		questions: &memQuestions{},
		hooks:     hooks.NewManager(silentLog()),
	}
	reg, err := NewDefaultToolRegistry(ToolDeps{
		Notifier:  f.notifier,
		Questions: f.questions,
		Hooks:     f.hooks,
	}, silentLog())
	if err != nil {
		panic(err)
	}
	f.tools = reg
	return f
}

func testPersona() domain.PersonaContext {
	return domain.PersonaContext{
		Name:      "Reid Caulder",
		Knowledge: "Invests in durable moats.",
		Profile:   "Audit Intern at Big Four firm, 2023.",
	}
}
