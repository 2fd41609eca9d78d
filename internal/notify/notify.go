// Package notify pushes refresh-failure alerts to Telegram. The daemon is
// headless; without this, a panel that silently stopped updating looks
// exactly like a panel showing fresh content.
package notify

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"inkd/internal/config"
	"inkd/internal/refresh"
	logx "inkd/pkg/logx"
)

type Service struct {
	log     logx.Logger
	bot     *tele.Bot
	chat    tele.ChatID
	limiter *rate.Limiter
}

// New builds the alert service, or (nil, nil) when the notify block is
// absent/disabled. Manual callers already receive errors synchronously,
// so only periodic failures alert.
func New(cfg *config.NotifyConfig, log logx.Logger) (*Service, error) {
	if cfg == nil || !cfg.Enabled || cfg.Token == "" || cfg.ChatID == 0 {
		return nil, nil
	}
	minInterval, err := config.ParseDurationOrDefault("notify.min_interval", cfg.MinInterval, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	return &Service{
		log:     log,
		bot:     bot,
		chat:    tele.ChatID(cfg.ChatID),
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}, nil
}

// CycleDone implements refresh.CycleObserver.
func (s *Service) CycleDone(stats refresh.CycleStats) {
	if s == nil || stats.Err == nil || stats.Trigger != refresh.TriggerPeriodic {
		return
	}
	if !s.limiter.Allow() {
		s.log.Debug("alert suppressed (rate limited)", logx.Err(stats.Err))
		return
	}
	msg := fmt.Sprintf("inkd: periodic refresh failed at %s\n%v",
		stats.At.Format(time.RFC3339), stats.Err)
	if _, err := s.bot.Send(s.chat, msg); err != nil {
		s.log.Warn("sending failure alert failed", logx.Err(err))
	}
}
