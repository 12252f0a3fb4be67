package observability

import (
	"context"

	"github.com/habitforge/habitforge/internal/observability/logger"
	"github.com/habitforge/habitforge/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(
		logger.New,
		metrics.New,
	),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
}
