// Package maintenance schedules periodic full panel clears. E-paper
// panels accumulate ghosting; a daily white flood keeps them healthy.
package maintenance

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"inkd/internal/refresh"
	logx "inkd/pkg/logx"
)

// clearTimeout bounds one clear: rate-limiter wait plus a slow full
// refresh.
const clearTimeout = 2 * time.Minute

// Service runs the clear job through Task.ManualUpdate so it serializes
// with normal refreshes and can never overlap a render.
type Service struct {
	log  logx.Logger
	task *refresh.Task

	mu   sync.Mutex
	c    *cron.Cron
	spec string
	loc  *time.Location
}

func New(task *refresh.Task, log logx.Logger) *Service {
	return &Service{log: log, task: task}
}

// Apply (re)schedules the clear job. An empty spec disables it. Safe to
// call on every config reload; the cron is only restarted when the spec or
// timezone actually changed.
func (s *Service) Apply(spec string, loc *time.Location) error {
	spec = strings.TrimSpace(spec)
	if spec != "" {
		// Validate before touching the running schedule, so a bad spec
		// cannot disable an existing one.
		if _, err := cron.ParseStandard(spec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec && locEqual(loc, s.loc) {
		return nil
	}
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
	s.spec = spec
	s.loc = loc
	if spec == "" {
		s.log.Info("panel clear schedule disabled")
		return nil
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, s.clear); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("panel clear scheduled", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Service) clear() {
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()
	s.log.Info("running scheduled panel clear")
	if err := s.task.ManualUpdate(ctx, refresh.ClearAction{}); err != nil {
		s.log.Error("scheduled panel clear failed", logx.Err(err))
	}
}

func locEqual(a, b *time.Location) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
