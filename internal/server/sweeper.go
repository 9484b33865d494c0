package server

import (
	"context"
	"log/slog"
	"time"

	"alumnihub/internal/middleware"
)

// runSuspensionSweeper lifts lapsed suspensions every interval until ctx is
// cancelled.
func (s *Server) runSuspensionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSuspensions(ctx)
		}
	}
}

func (s *Server) sweepSuspensions(ctx context.Context) int {
	lifted, err := s.membershipService.ExpireSuspensions(ctx)
	if err != nil {
		middleware.Logger.Error("suspension sweep failed",
			slog.Int("lifted", lifted), slog.String("error", err.Error()))
		return lifted
	}
	if lifted > 0 {
		middleware.Logger.Info("suspension sweep", slog.Int("lifted", lifted))
	}
	return lifted
}
