package notify

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrDisabled is returned by a notifier that lacks the configuration it needs.
// It means "not sent" and is not a failure.
var ErrDisabled = errors.New("notifier disabled")

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi sends to every member. Disabled members are skipped; if all of them
// are disabled Send returns ErrDisabled.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs error
	sent := false
	for _, n := range m {
		if n == nil {
			continue
		}
		err := n.Send(ctx, title, text)
		switch {
		case err == nil:
			sent = true
		case errors.Is(err, ErrDisabled):
		default:
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	if !sent {
		return ErrDisabled
	}
	return nil
}

// Dispatch delivers an alert on a best-effort basis and reports whether it was
// sent. Failures are logged, never returned.
func Dispatch(ctx context.Context, log *zap.Logger, n Notifier, subject, body string) (sent bool) {
	if n == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("notify_panic", zap.String("subject", subject), zap.Any("panic", r))
			sent = false
		}
	}()

	err := n.Send(ctx, subject, body)
	switch {
	case err == nil:
		log.Info("notify_sent", zap.String("subject", subject))
		return true
	case errors.Is(err, ErrDisabled):
		return false
	default:
		log.Warn("notify_failed",
			zap.String("subject", subject),
			zap.Errors("errors", multierr.Errors(err)),
		)
		return false
	}
}
