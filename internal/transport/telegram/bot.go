package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/session"
	"github.com/sandevgo/docportal/pkg/log"
)

const baseContextKey = "base_context"

const welcomeText = `👋 Hi! Send me a document (plain text, Markdown or HTML) and ask questions about it.

Type /help to see the commands.`

type orchestrator interface {
	Handle(ctx context.Context, s *session.Session, text string, sink core.Sink) error
	Ingest(ctx context.Context, s *session.Session, doc core.Document, sink core.Sink) error
}

type sessionStore interface {
	GetOrCreate(id string) *session.Session
}

type Bot struct {
	bot      *tele.Bot
	cfg      *config.TelegramConfig
	orch     orchestrator
	sessions sessionStore
	router   core.CmdRouter
	limits   rag.Limits
	sender   *sender
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	orch orchestrator,
	sessions sessionStore,
	router core.CmdRouter,
	limits rag.Limits,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.FromCtx(ctx).Error().Err(err).Msg("telegram handler failed")
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		cfg:      cfg,
		orch:     orch,
		sessions: sessions,
		router:   router,
		limits:   limits,
		sender:   newSender(b),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, log.WithFields(ctx, "chat", strconv.FormatInt(c.Chat().ID, 10)))
			return next(c)
		}
	})

	// Middleware: Only allow the owner when one is configured
	if cfg.OwnerID != 0 {
		b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
			return func(c tele.Context) error {
				if c.Sender() == nil || c.Sender().ID != cfg.OwnerID {
					return nil // Ignore unauthorized users
				}
				return next(c)
			}
		})
	}

	b.Handle("/start", bot.handleStart)
	b.Handle(tele.OnText, bot.handleMessage)
	b.Handle(tele.OnDocument, bot.handleDocument)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("bot", b.bot.Me.Username).Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func sessionID(c tele.Context) string {
	return "telegram-" + strconv.FormatInt(c.Chat().ID, 10)
}

func requestContext(c tele.Context) context.Context {
	ctx, ok := c.Get(baseContextKey).(context.Context)
	if !ok {
		return context.Background()
	}
	return ctx
}

func (b *Bot) handleStart(c tele.Context) error {
	b.sessions.GetOrCreate(sessionID(c))
	return c.Send(welcomeText)
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := requestContext(c)
	s := b.sessions.GetOrCreate(sessionID(c))

	if out, ok := b.router.Execute(ctx, s.ID, c.Text()); ok {
		return b.sender.sendMarkdown(ctx, c.Chat(), out)
	}

	_ = c.Notify(tele.Typing)

	// The orchestrator reports failures through the sink.
	if err := b.orch.Handle(ctx, s, c.Text(), newStreamSink(b.sender, c.Chat(), b.cfg.EditInterval)); err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("message not answered")
	}
	return nil
}

func (b *Bot) handleDocument(c tele.Context) error {
	ctx := requestContext(c)
	s := b.sessions.GetOrCreate(sessionID(c))
	sink := newStreamSink(b.sender, c.Chat(), b.cfg.EditInterval)
	doc := c.Message().Document

	ctx = log.WithFields(ctx, "document", doc.FileName)

	// Skip the download when Telegram already tells us it is too big.
	if b.limits.Policy != rag.PolicyTruncate && doc.FileSize > b.limits.MaxBytes {
		return sink.Fail(ctx, core.ErrDocumentTooLarge)
	}

	_ = c.Notify(tele.Typing)

	rc, err := b.bot.File(&doc.File)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to download document")
		return sink.Fail(ctx, fmt.Errorf("%w: download: %w", core.ErrIngestion, err))
	}
	defer rc.Close()

	loaded, err := rag.LoadDocument(ctx, doc.FileName, doc.MIME, rc, b.limits)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("document rejected")
		return sink.Fail(ctx, err)
	}

	if err := b.orch.Ingest(ctx, s, loaded, sink); err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("document not ingested")
	}
	return nil
}
