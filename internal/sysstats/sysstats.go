// Package sysstats logs periodic system metrics. On a fanless Pi wedged
// behind a picture frame, these log lines are often the only health signal
// available.
package sysstats

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"inkd/internal/config"
	logx "inkd/pkg/logx"
)

const defaultInterval = 5 * time.Minute

type Service struct {
	log      logx.Logger
	interval time.Duration
}

// New builds the stats logger, or nil when disabled.
func New(cfg *config.SysStatsConfig, log logx.Logger) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	interval, err := config.ParseDurationOrDefault("sysstats.interval", cfg.Interval, defaultInterval)
	if err != nil {
		return nil, err
	}
	return &Service{log: log, interval: interval}, nil
}

// Run logs one sample per interval until ctx is canceled.
func (s *Service) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.logOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.logOnce(ctx)
		}
	}
}

func (s *Service) logOnce(ctx context.Context) {
	fields := make([]logx.Field, 0, 8)

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		fields = append(fields, logx.Float64("cpu_percent", pcts[0]))
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields = append(fields, logx.Float64("memory_percent", vm.UsedPercent))
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		fields = append(fields, logx.Float64("disk_percent", du.UsedPercent))
	}
	if la, err := load.AvgWithContext(ctx); err == nil {
		fields = append(fields,
			logx.Float64("load_1", la.Load1),
			logx.Float64("load_5", la.Load5),
			logx.Float64("load_15", la.Load15))
	}
	if io, err := net.IOCountersWithContext(ctx, false); err == nil && len(io) > 0 {
		fields = append(fields,
			logx.Uint64("net_bytes_sent", io[0].BytesSent),
			logx.Uint64("net_bytes_recv", io[0].BytesRecv))
	}

	s.log.Info("system stats", fields...)
}
