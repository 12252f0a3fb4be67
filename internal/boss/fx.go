package boss

import (
	"github.com/habitforge/habitforge/internal/boss/service"
	"go.uber.org/fx"
)

var Module = fx.Module("boss.service",
	fx.Provide(service.New),
)
