package telegram

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/docportal/internal/service/conversation"
	"github.com/sandevgo/docportal/pkg/log"
)

const streamCursor = " ▍"

// streamSink renders one orchestrator turn into a chat. Deltas go into a
// placeholder message that is edited at most once per interval; Done replaces
// it with the rendered HTML answer.
type streamSink struct {
	sender   *sender
	chat     tele.Recipient
	interval time.Duration
	now      func() time.Time

	placeholder *tele.Message
	buf         strings.Builder
	lastEdit    time.Time
}

func newStreamSink(s *sender, chat tele.Recipient, interval time.Duration) *streamSink {
	return &streamSink{
		sender:   s,
		chat:     chat,
		interval: interval,
		now:      time.Now,
	}
}

func (s *streamSink) Reply(ctx context.Context, text string) error {
	return s.sender.sendMarkdown(ctx, s.chat, text)
}

func (s *streamSink) Delta(ctx context.Context, text string) error {
	s.buf.WriteString(text)

	if s.placeholder == nil {
		msg, err := s.sender.bot.Send(s.chat, preview(s.buf.String()))
		if err != nil {
			return err
		}
		s.placeholder = msg
		s.lastEdit = s.now()
		return nil
	}

	if s.now().Sub(s.lastEdit) < s.interval {
		return nil
	}
	s.lastEdit = s.now()
	if _, err := s.sender.bot.Edit(s.placeholder, preview(s.buf.String())); err != nil {
		// A failed intermediate edit is cosmetic, Done still delivers the answer.
		log.FromCtx(ctx).Debug().Err(err).Msg("failed to edit streaming placeholder")
	}
	return nil
}

func (s *streamSink) Done(ctx context.Context, text string) error {
	if s.placeholder == nil {
		return s.sender.sendMarkdown(ctx, s.chat, text)
	}

	html := renderHTML(text)
	if len(html) <= maxTelegramMsgLen {
		_, err := s.sender.bot.Edit(s.placeholder, html, tele.ModeHTML)
		return err
	}

	if err := s.sender.bot.Delete(s.placeholder); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to delete streaming placeholder")
	}
	s.placeholder = nil
	return s.sender.sendMarkdown(ctx, s.chat, text)
}

func (s *streamSink) Fail(ctx context.Context, err error) error {
	if s.placeholder != nil {
		// Drop the cursor so the partial answer does not look alive.
		if _, editErr := s.sender.bot.Edit(s.placeholder, clip(s.buf.String())); editErr != nil {
			log.FromCtx(ctx).Debug().Err(editErr).Msg("failed to close streaming placeholder")
		}
	}
	_, sendErr := s.sender.bot.Send(s.chat, "⚠️ "+conversation.Describe(err))
	return sendErr
}

// preview is the plain-text form shown while streaming. Partial Markdown
// is not rendered since half-open tags would be rejected by Telegram.
func preview(text string) string {
	return clip(text + streamCursor)
}

// clip keeps the tail of text within the message limit.
func clip(text string) string {
	if len(text) <= maxTelegramMsgLen {
		return text
	}
	start := len(text) - maxTelegramMsgLen + len("…")
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	return "…" + text[start:]
}
