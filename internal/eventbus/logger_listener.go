package eventbus

import (
	"context"

	"github.com/annel0/gunguys/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог уровня DEBUG.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus, log *logging.Logger) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		log.Debug("[EventBus] %s %s src=%s prio=%d %s", ev.ID, ev.EventType, ev.Source, ev.Priority, ev.Payload)
	})
	if err != nil {
		return nil, err
	}
	log.Info("LoggingListener: подписка на все события активирована")
	return sub, nil
}
