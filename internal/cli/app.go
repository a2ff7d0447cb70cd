package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/twin/internal/agent"
	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/llm"
	"github.com/soyeahso/twin/internal/notify"
	"github.com/soyeahso/twin/internal/persona"
	"github.com/soyeahso/twin/internal/questions"
	"github.com/soyeahso/twin/internal/tracer"
)

// app holds everything a turn needs, built once per process.
type app struct {
	cfg       config.Config
	runner    *agent.Runner
	hooks     *hooks.Manager
	questions questions.Log
	shutdown  tracer.ShutdownFunc
}

// buildApp validates cfg and wires persona, side-effect sinks, tracing and
// the completion client into a runner. A missing profile is fatal.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return nil, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}

	p, err := persona.Load(cfg.Persona, log)
	if err != nil {
		return nil, err
	}

	notifier := notify.New(cfg.Notify, log)

	qlog, err := questions.Open(cfg.Questions, paths, log)
	if err != nil {
		return nil, err
	}

	hookMgr := hooks.NewManager(log)
	if n := hookMgr.RegisterCommands(cfg.Hooks); n > 0 {
		log.Info().Int("hooks", n).Msg("command hooks registered")
	}

	shutdown, err := tracer.Setup(ctx, cfg.Tracing, log)
	if err != nil {
		qlog.Close()
		return nil, err
	}

	registry, err := llm.NewRegistryFromConfig(cfg.Model, log)
	if err != nil {
		shutdown(ctx)
		qlog.Close()
		return nil, err
	}
	client, err := registry.Resolve(cfg.Model.Model)
	if err != nil {
		shutdown(ctx)
		qlog.Close()
		return nil, err
	}

	tools, err := agent.NewDefaultToolRegistry(agent.ToolDeps{
		Notifier:  notifier,
		Questions: qlog,
		Hooks:     hookMgr,
	}, log)
	if err != nil {
		shutdown(ctx)
		qlog.Close()
		return nil, err
	}

	runner := agent.NewRunner(
		agent.RunnerConfig{
			Model:       cfg.Model.Model,
			MaxTokens:   cfg.Model.MaxTokens,
			Temperature: cfg.Model.Temperature,
		},
		client,
		p,
		tools,
		hookMgr,
		log,
	)

	log.Info().
		Str("persona", p.Name).
		Str("provider", client.Name()).
		Str("model", cfg.Model.Model).
		Str("notifier", notifier.Name()).
		Str("questions", cfg.Questions.Store).
		Msg("twin ready")

	return &app{
		cfg:       cfg,
		runner:    runner,
		hooks:     hookMgr,
		questions: qlog,
		shutdown:  shutdown,
	}, nil
}

// Close waits for in-flight hooks, then flushes traces and closes the
// question log.
func (a *app) Close(ctx context.Context) error {
	a.hooks.Wait()
	return errors.Join(a.shutdown(ctx), a.questions.Close())
}
