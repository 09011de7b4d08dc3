package billing

import (
	"log/slog"
	"time"
)

// ServiceOption configures optional service dependencies.
type ServiceOption func(*service)

// WithNotifier sets the lifecycle notifier. Defaults to a no-op.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Used in tests to pin the month key.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDowngradeGuard installs a check that runs before any move to a lower
// tier. Wire it to quota.Service.CanDowngrade so users cannot drop below
// their current usage.
func WithDowngradeGuard(guard DowngradeGuard) ServiceOption {
	return func(s *service) {
		s.guard = guard
	}
}
