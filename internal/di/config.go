package di

import (
	"webpilot/internal/application/port/output"
	"webpilot/internal/infrastructure/browser/rod"
	"webpilot/internal/infrastructure/logger"
	"webpilot/internal/usecase/capture"
	"webpilot/internal/usecase/controller"
	"webpilot/internal/usecase/decision"
)

const defaultHistoryFile = "history/history.jsonl"

// Config is everything the container needs, resolved from the environment once.
type Config struct {
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	LLMMode           decision.Mode
	RequestsPerMinute int

	Browser  rod.BrowserConfig
	Capture  capture.Settings
	Control  controller.Settings
	Messages decision.ManagerSettings
	Log      logger.Config

	AllowedDomains           []string
	IncludeDynamicAttributes bool
	HistoryFile              string
}

// LoadConfig reads the known keys from cfg, falling back to component defaults.
func LoadConfig(cfg output.ConfigPort) Config {
	browser := rod.DefaultConfig()
	browser.Headless = cfg.GetBool("BROWSER_HEADLESS", browser.Headless)

	capt := capture.DefaultSettings()
	capt.Mode = capture.Mode(cfg.GetWithDefault("CAPTURE_MODE", string(capt.Mode)))
	capt.ViewportExpansion = cfg.GetInt("VIEWPORT_EXPANSION", capt.ViewportExpansion)
	capt.Highlight = cfg.GetBool("HIGHLIGHT_ELEMENTS", capt.Highlight)
	capt.Vision = cfg.GetBool("USE_VISION", capt.Vision)

	ctrl := controller.DefaultSettings()
	ctrl.MaxSteps = cfg.GetInt("MAX_STEPS", ctrl.MaxSteps)
	ctrl.MaxFailures = cfg.GetInt("MAX_FAILURES", ctrl.MaxFailures)
	ctrl.MaxNetworkFailures = cfg.GetInt("MAX_NETWORK_FAILURES", ctrl.MaxNetworkFailures)
	ctrl.MaxActionsPerStep = cfg.GetInt("MAX_ACTIONS_PER_STEP", ctrl.MaxActionsPerStep)
	ctrl.RetryDelay = cfg.GetDuration("RETRY_DELAY", ctrl.RetryDelay)
	ctrl.WaitBetweenActions = cfg.GetDuration("WAIT_BETWEEN_ACTIONS", ctrl.WaitBetweenActions)

	msgs := decision.DefaultManagerSettings()
	msgs.MaxInputTokens = cfg.GetInt("MAX_INPUT_TOKENS", msgs.MaxInputTokens)
	msgs.Vision = capt.Vision

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.GetWithDefault("LOG_LEVEL", logCfg.Level)

	return Config{
		OpenRouterAPIKey:         cfg.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:          cfg.Get("OPENROUTER_MODEL_NAME"),
		OpenRouterBaseURL:        cfg.Get("OPENROUTER_BASE_URL"),
		LLMMode:                  decision.Mode(cfg.GetWithDefault("LLM_MODE", string(decision.ModeTools))),
		RequestsPerMinute:        cfg.GetInt("LLM_RPM", 0),
		Browser:                  browser,
		Capture:                  capt,
		Control:                  ctrl,
		Messages:                 msgs,
		Log:                      logCfg,
		AllowedDomains:           cfg.GetList("ALLOWED_DOMAINS"),
		IncludeDynamicAttributes: cfg.GetBool("INCLUDE_DYNAMIC_ATTRIBUTES", false),
		HistoryFile:              cfg.GetWithDefault("HISTORY_FILE", defaultHistoryFile),
	}
}
