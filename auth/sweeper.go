package auth

import (
	"context"
	"time"

	"edumedia/models"
)

// SweepExpiredOTPs deletes sessions whose expiry has passed.
func (s *Service) SweepExpiredOTPs(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.OtpSession{})
	return res.RowsAffected, res.Error
}

// StartOtpSweeper runs SweepExpiredOTPs every interval until ctx is done.
func (s *Service) StartOtpSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.SweepExpiredOTPs(ctx)
				if err != nil {
					s.log.Warn("otp sweep failed", "error", err)
					continue
				}
				if n > 0 {
					s.log.Debug("expired otp sessions removed", "count", n)
				}
			}
		}
	}()
}
