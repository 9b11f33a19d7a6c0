package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcouncil/council/internal/orchestrator"
	"github.com/modelcouncil/council/internal/store"
	"github.com/modelcouncil/council/pkg/config"
	"github.com/modelcouncil/council/pkg/logging"
	"github.com/modelcouncil/council/pkg/metrics"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/ratelimit"
	"github.com/modelcouncil/council/pkg/trace"
)

// app bundles everything a subcommand needs to run a deliberation: the
// wired Router, the persisted store, the loaded CouncilConfig, and a shared
// Counters instance exposed through /metrics in serve mode.
type app struct {
	cfg      *config.Config
	council  trace.CouncilConfig
	store    *store.Store
	counters *metrics.Counters
	orch     *orchestrator.Orchestrator
}

// buildApp loads configuration, wires every configured ModelClient adapter
// behind a Router, opens the conversation store, and constructs the
// Orchestrator. Mirrors the teacher's runScan: load config, create the
// generator(s), create the harness, run.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfigKoanf(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logging.Configure(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, os.Stderr)

	councilCfg, err := cfg.ToTraceConfig()
	if err != nil {
		return nil, fmt.Errorf("council config: %w", err)
	}

	router := modelclient.NewRouter()
	for provider, ref := range cfg.ModelClients {
		client, err := modelclient.Create(ref.Adapter, ref.Params)
		if err != nil {
			return nil, fmt.Errorf("create model client %q (adapter %q): %w", provider, ref.Adapter, err)
		}
		if limiter := rateLimiterFromParams(ref.Params); limiter != nil {
			client = modelclient.NewRateLimited(client, limiter)
		}
		router.Register(provider, client)
	}

	st := store.New(cfg.Store.Path)
	if err := st.Load(); err != nil {
		return nil, fmt.Errorf("load conversation store: %w", err)
	}

	counters := &metrics.Counters{}
	orch := orchestrator.New(router, councilCfg, st)
	orch.Metrics = counters

	slog.Info("council wired", "providers", router.Providers(), "members", len(councilCfg.Members))

	return &app{cfg: cfg, council: councilCfg, store: st, counters: counters, orch: orch}, nil
}

// rateLimiterFromParams builds a token-bucket limiter from the
// "rate_limit_max_tokens"/"rate_limit_refill_per_sec" keys in a model
// client's params map, if present. Absent either key disables rate
// limiting for that adapter, matching the teacher's opt-in RateLimit field.
func rateLimiterFromParams(params map[string]any) *ratelimit.Limiter {
	maxTokens, okMax := asFloat(params["rate_limit_max_tokens"])
	refill, okRefill := asFloat(params["rate_limit_refill_per_sec"])
	if !okMax || !okRefill || maxTokens <= 0 || refill <= 0 {
		return nil
	}
	return ratelimit.NewLimiter(maxTokens, refill)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
