package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/tiersync/internal/adapters/chat"
	"github.com/okian/tiersync/internal/adapters/rating"
	"github.com/okian/tiersync/internal/domain/model"
	"github.com/okian/tiersync/internal/registry"
	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// Command names. verifyAlias is accepted as a synonym for verifyCommand.
const (
	verifyCommand = "verificar"
	verifyAlias   = "verify"
	statsCommand  = "stats"
)

// parseCommand splits a prefixed message into a command name and its
// argument. ok is false for anything that is not a command.
func parseCommand(prefix, content string) (name, arg string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(content, prefix)
	if rest == "" {
		return "", "", false
	}

	fields := strings.Fields(rest)
	name = strings.ToLower(fields[0])
	if len(fields) > 1 {
		arg = fields[1]
	}
	return name, arg, true
}

func (s *Service) handleEvent(ctx context.Context, ev chat.MessageEvent) {
	if ev.Bot {
		return
	}

	name, arg, ok := parseCommand(s.prefix, ev.Content)
	if !ok {
		return
	}

	switch name {
	case verifyCommand, verifyAlias:
		s.handleVerify(ctx, ev, arg)
	case statsCommand:
		s.handleStats(ctx, ev, arg)
	}
}

// handleVerify registers (or refreshes) the caller's rating-service handle,
// drives their tier label to the current rating, and re-aggregates the
// leaderboard.
func (s *Service) handleVerify(ctx context.Context, ev chat.MessageEvent, handle string) {
	if handle == "" {
		s.reply(ctx, ev, fmt.Sprintf("Uso: %s%s <nick_faceit>", s.prefix, verifyCommand))
		metrics.RecordCommandHandled(verifyCommand, "usage")
		return
	}

	rec, ok := s.fetchWithReply(ctx, ev, verifyCommand, handle)
	if !ok {
		return
	}

	first, err := s.registry.Register(ctx, ev.UserID, rec.Handle)
	if err != nil {
		if errors.Is(err, registry.ErrHandleMismatch) {
			existing, _ := s.registry.Handle(ev.UserID)
			s.reply(ctx, ev, fmt.Sprintf("Você já está verificado com a conta **%s**. Não é possível registrar outra.", existing))
			metrics.RecordCommandHandled(verifyCommand, "mismatch")
			return
		}
		s.log.Error(ctx, "registration failed",
			logger.String("userID", ev.UserID),
			logger.Error(err),
		)
		s.reply(ctx, ev, "Não consegui salvar seu registro agora. Tente novamente em instantes.")
		metrics.RecordCommandHandled(verifyCommand, "error")
		return
	}
	metrics.UpdateRegisteredUsers(s.registry.Count())

	target := s.table.Resolve(rec.Rating)
	res, err := s.reconciler.Reconcile(ctx, ev.UserID, rec.DisplayName, target, first)
	if err != nil {
		s.log.Error(ctx, "reconciliation failed",
			logger.String("userID", ev.UserID),
			logger.String("target", target),
			logger.Error(err),
		)
		s.reply(ctx, ev, "Não consegui atualizar seus cargos agora. Tente novamente em instantes.")
		metrics.RecordCommandHandled(verifyCommand, "error")
		return
	}

	if first {
		text := fmt.Sprintf("Verificado! Bem-vindo, **%s**! Você recebeu o cargo **%s** (%d ELO).", rec.DisplayName, target, rec.Rating)
		if res.RenameFailed != nil {
			text += " Não consegui atualizar seu apelido no servidor."
		}
		s.reply(ctx, ev, text)
	} else {
		s.reply(ctx, ev, fmt.Sprintf("Dados atualizados, **%s**! Cargo atual: **%s** (%d ELO).", rec.DisplayName, target, rec.Rating))
	}
	metrics.RecordCommandHandled(verifyCommand, "ok")

	if _, err := s.aggregator.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "post-verification aggregation failed", logger.Error(err))
	}
}

// handleStats looks up an arbitrary handle and replies with its current
// profile summary. No registration side effects.
func (s *Service) handleStats(ctx context.Context, ev chat.MessageEvent, handle string) {
	if handle == "" {
		s.reply(ctx, ev, fmt.Sprintf("Uso: %s%s <nick_faceit>", s.prefix, statsCommand))
		metrics.RecordCommandHandled(statsCommand, "usage")
		return
	}

	rec, ok := s.fetchWithReply(ctx, ev, statsCommand, handle)
	if !ok {
		return
	}

	text := fmt.Sprintf("📊 **Stats de %s**\n🌍 Região: %s\n🎯 Nível: %d\n💪 ELO: %d\n🔗 %s",
		rec.DisplayName,
		strings.ToUpper(rec.Region),
		rec.TierLevel,
		rec.Rating,
		s.ratings.ProfileURL(rec.Handle),
	)
	s.reply(ctx, ev, text)
	metrics.RecordCommandHandled(statsCommand, "ok")
}

// fetchWithReply performs a bounded rating lookup and translates every
// failure kind into the user-facing reply. ok is false when the caller
// should stop.
func (s *Service) fetchWithReply(ctx context.Context, ev chat.MessageEvent, command, handle string) (model.RatingRecord, bool) {
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	record, err := s.ratings.Fetch(fctx, handle)
	if err == nil {
		return record, true
	}

	switch {
	case errors.Is(err, rating.ErrNotFound):
		s.reply(ctx, ev, fmt.Sprintf("Jogador **%s** não encontrado na FACEIT. Verifique o nick e tente novamente.", handle))
		metrics.RecordCommandHandled(command, "not_found")
	case errors.Is(err, rating.ErrNoGameStats):
		s.reply(ctx, ev, fmt.Sprintf("O jogador **%s** não possui estatísticas de CS2 na FACEIT.", handle))
		metrics.RecordCommandHandled(command, "no_stats")
	case errors.Is(err, rating.ErrUnauthorized):
		s.log.Error(ctx, "rating credential rejected", logger.Error(err))
		s.reply(ctx, ev, "Não foi possível consultar a FACEIT no momento. Avise um administrador.")
		metrics.RecordCommandHandled(command, "unauthorized")
	default:
		s.log.Warn(ctx, "rating lookup failed",
			logger.String("handle", handle),
			logger.Error(err),
		)
		s.reply(ctx, ev, "A FACEIT está instável no momento. Tente novamente em instantes.")
		metrics.RecordCommandHandled(command, "transient")
	}
	return record, false
}

func (s *Service) reply(ctx context.Context, ev chat.MessageEvent, text string) {
	if err := s.messenger.Reply(ctx, ev, text); err != nil {
		s.log.Warn(ctx, "reply failed",
			logger.String("channelID", ev.ChannelID),
			logger.Error(err),
		)
	}
}
