package achievement

import (
	"github.com/habitforge/habitforge/internal/achievement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("achievement.service",
	fx.Provide(service.New),
)
