package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/internal/providers/llm"
	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/command"
	"github.com/sandevgo/docportal/internal/service/conversation"
	"github.com/sandevgo/docportal/internal/service/metrics"
	"github.com/sandevgo/docportal/internal/service/rules"
	"github.com/sandevgo/docportal/internal/service/session"
	"github.com/sandevgo/docportal/internal/service/state"
	"github.com/sandevgo/docportal/internal/storage/sqlite"
	"github.com/sandevgo/docportal/internal/transport/httpapi"
	"github.com/sandevgo/docportal/internal/transport/telegram"
	"github.com/sandevgo/docportal/pkg/log"
	"github.com/sandevgo/docportal/pkg/srv"
)

const closeTimeout = 10 * time.Second

// app holds the transport-independent core shared by every entrypoint.
type app struct {
	cfg     *config.AppConfig
	orch    *conversation.Orchestrator
	metrics *metrics.Recorder
	limits  rag.Limits

	retriever   *rag.Retriever
	matcher     *rules.Matcher
	provider    *llm.DynamicProvider
	providerCfg *config.ProviderConfig
	state       *state.GlobalState

	// channels holds one session store per transport.
	channels []*channel

	// background holds cleanup and worker services owned by the core.
	background []srv.Service
}

// channel is the session store and command router of a single transport.
// Sessions are never shared between channels.
type channel struct {
	sessions *session.Manager
	router   *command.Router
}

// newChannel creates an isolated session store for one transport.
// Only trusted channels may switch the shared model.
func (a *app) newChannel(trusted bool) (*channel, error) {
	sessions := session.NewManager(a.retriever, a.cfg.SessionIdleTTL)
	sweeper, err := session.NewSweeper(sessions, a.cfg.SessionSweepCron)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session sweeper: %w", err)
	}
	a.background = append(a.background, sweeper)

	commands := command.NewCommands(sessions, a.matcher, a.state)
	var router *command.Router
	if trusted {
		router = command.New(command.WithModelControl(commands, a.providerCfg, a.state, a.provider))
	} else {
		router = command.New(commands, command.WithRefused("model"))
	}

	ch := &channel{sessions: sessions, router: router}
	a.channels = append(a.channels, ch)
	return ch, nil
}

func (a *app) sessionCount() int {
	n := 0
	for _, ch := range a.channels {
		n += ch.sessions.Len()
	}
	return n
}

func newApp(ctx context.Context) (*app, error) {
	logger := log.FromCtx(ctx)

	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	providerCfg := config.NewProviderConfig(ctx)
	ragCfg := config.NewRAGConfig(ctx)

	a := &app{
		cfg:    appCfg,
		limits: rag.LimitsFromConfig(appCfg),
	}

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.background = append(a.background, srv.NewCleanup(db.Close))

	repo := sqlite.NewChunkRepo(db)
	if !appCfg.IsInMemoryDatabase() {
		// Sessions live in memory, so contexts left by a previous run are orphaned.
		n, err := repo.Purge(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to purge stale contexts: %w", err)
		}
		if n > 0 {
			logger.Info().Int64("contexts", n).Msg("purged stale retrieval contexts")
		}
	}

	// 3. Retrieval
	retriever, err := rag.NewFromConfig(ctx, ragCfg, repo, providerCfg.GetAPIKey(), providerCfg.GetMaxRetries())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retrieval: %w", err)
	}

	// 4. AI Provider
	provider, err := llm.NewDynamicProvider(ctx, providerCfg, appCfg.StreamBuffer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	if err := provider.CheckCredentials(ctx); err != nil {
		logger.Warn().Err(err).Str("provider", providerCfg.GetProvider()).Msg("provider credentials look invalid")
	}

	// 5. Rules
	ruleSet, err := rules.Load(appCfg.GetRulesPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	matcher := rules.NewMatcher(ruleSet)
	logger.Debug().Int("rules", matcher.Len()).Msg("loaded rules")

	a.retriever = retriever
	a.matcher = matcher
	a.provider = provider
	a.providerCfg = providerCfg
	a.state = state.NewGlobalState(provider)

	// 6. Metrics
	a.metrics = metrics.New()
	a.metrics.TrackSessions(a.sessionCount)

	// 7. Conversation
	a.orch = conversation.New(matcher, provider, retriever, conversation.Config{
		SystemPrompt:  appCfg.SystemPrompt,
		TopK:          appCfg.RetrievalTopK,
		ContextWindow: appCfg.ContextWindowSize,
		Stream:        appCfg.Stream,
	}, conversation.WithMetrics(a.metrics))

	return a, nil
}

// NewServices builds the long-running server: the core plus the enabled transports.
func NewServices(ctx context.Context) ([]srv.Service, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}

	transports, err := initTransports(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transports: %w", err)
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("no transport enabled: set PORTAL_ENABLE_HTTP or PORTAL_ENABLE_TELEGRAM")
	}

	// Transports register their sweepers, so background is complete only now.
	services := append([]srv.Service{}, a.background...)
	return append(services, transports...), nil
}

func initTransports(ctx context.Context, a *app) ([]srv.Service, error) {
	var services []srv.Service

	if a.cfg.IsHTTPSelected() {
		httpCfg := config.NewHTTPConfig(ctx)
		ch, err := a.newChannel(false)
		if err != nil {
			return nil, err
		}
		services = append(services, httpapi.NewServer(
			httpCfg,
			a.orch,
			ch.sessions,
			a.limits,
			httpapi.WithCommands(ch.router),
			httpapi.WithMetrics(a.metrics.Handler()),
		))
	}

	// Telegram Bot
	if a.cfg.IsTelegramSelected() {
		tgCfg := config.NewTelegramConfig(ctx)
		// Without an owner anyone can message the bot.
		ch, err := a.newChannel(tgCfg.OwnerID != 0)
		if err != nil {
			return nil, err
		}
		bot, err := telegram.NewBot(ctx, tgCfg, a.orch, ch.sessions, ch.router, a.limits)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}

// close stops the core's own services in reverse order.
func (a *app) close(ctx context.Context) {
	logger := log.FromCtx(ctx)
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	for i := len(a.background) - 1; i >= 0; i-- {
		if err := a.background[i].Shutdown(sctx); err != nil {
			logger.Error().Err(err).Msgf("%T failed to shutdown", a.background[i])
		}
	}
}
