package di

import (
	"context"
	"fmt"
	"time"

	"webpilot/internal/application/port/input"
	"webpilot/internal/application/port/output"
	"webpilot/internal/application/service"
	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/browser/rod"
	"webpilot/internal/infrastructure/historystore"
	"webpilot/internal/infrastructure/llm/openrouter"
	"webpilot/internal/infrastructure/logger"
	"webpilot/internal/infrastructure/prompts"
	"webpilot/internal/infrastructure/tokenizer"
	"webpilot/internal/infrastructure/userinteraction"
	"webpilot/internal/usecase/actions"
	"webpilot/internal/usecase/addressing"
	"webpilot/internal/usecase/capture"
	"webpilot/internal/usecase/controller"
	"webpilot/internal/usecase/decision"
	"webpilot/internal/usecase/policy"
)

var _ input.AgentRunner = (*controller.Controller)(nil)

type Container struct {
	Browser  output.BrowserPort
	LLM      output.LLMPort
	Logger   output.LoggerPort
	UI       output.UserInteractionPort
	Registry output.ActionRegistry
	Sink     output.HistorySink
	Runner   input.AgentRunner
}

// NewContainer launches the browser and wires one agent for task. The history sink
// is opened only when cfg.HistoryFile is set.
func NewContainer(ctx context.Context, cfg Config, task string) (*Container, error) {
	log, err := logger.NewLoggerAdapter(cfg.Log, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	browser, err := rod.NewBrowserAdapter(ctx, cfg.Browser)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	c := &Container{
		Browser: browser,
		Logger:  log,
		UI:      userinteraction.NewConsoleUserInteraction(),
	}

	if cfg.HistoryFile != "" {
		sink, err := historystore.OpenSink(cfg.HistoryFile, task)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Sink = sink
	}

	llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	if cfg.OpenRouterBaseURL != "" {
		llmCfg.BaseURL = cfg.OpenRouterBaseURL
	}
	llmCfg.RequestsPerMinute = cfg.RequestsPerMinute
	llmCfg.Logger = log.WithField("component", "llm")
	c.LLM = openrouter.NewBreakerClient(openrouter.NewOpenRouterAdapter(llmCfg), openrouter.BreakerConfig{}, log)

	registry := service.NewActionRegistry()
	registry.Register(actions.NewAskUser(c.UI))
	registry.Register(actions.NewWaitForUser(c.UI))
	c.Registry = registry

	runner, err := c.newController(cfg, browser.Page(), task)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Runner = runner
	return c, nil
}

func (c *Container) newController(cfg Config, page output.PagePort, task string) (*controller.Controller, error) {
	allow := policy.NewAllowList(cfg.AllowedDomains)
	c.Logger.Info("navigation policy", "allowed_domains", allow.Domains())
	resolver := addressing.NewResolver(addressing.DefaultResolveTimeout, cfg.IncludeDynamicAttributes, c.Logger)

	definitions := append(actions.BuiltinDefinitions(), c.Registry.Definitions()...)
	systemPrompt, err := prompts.GenerateSystemPrompt(prompts.SystemPromptTemplate, definitions, cfg.Control.MaxActionsPerStep, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to build system prompt: %w", err)
	}

	deps := controller.Deps{
		Page:         page,
		Capturer:     capture.NewCapturer(page, allow, cfg.Capture, c.Logger.WithField("component", "capture")),
		Engine:       decision.NewLLMEngine(c.LLM, cfg.LLMMode, definitions, c.Logger.WithField("component", "decision")),
		Executor:     actions.NewExecutor(page, resolver, c.Registry, allow, c.Logger.WithField("component", "executor")),
		Counter:      tokenizer.New(),
		Sink:         c.Sink,
		Logger:       c.Logger,
		SystemPrompt: systemPrompt,
		Messages:     cfg.Messages,
	}

	ui := c.UI
	hooks := controller.Hooks{
		OnNewStep: func(state *entity.PageState, d *entity.Decision, step int) {
			ui.ShowStep(context.Background(), step, cfg.Control.MaxSteps, state)
			ui.ShowDecision(context.Background(), d)
		},
		OnDone: func(h *entity.History) {
			ui.ShowDone(context.Background(), h)
		},
	}
	return controller.New(deps, cfg.Control, hooks), nil
}

func (c *Container) Close() {
	if c.Sink != nil {
		if err := c.Sink.Close(); err != nil {
			c.Logger.Warn("failed to close history sink", "error", err)
		}
	}
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
