package chest

import (
	"github.com/habitforge/habitforge/internal/chest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chest.service",
	fx.Provide(service.New),
)
