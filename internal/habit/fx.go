package habit

import (
	"github.com/habitforge/habitforge/internal/habit/repository"
	"github.com/habitforge/habitforge/internal/habit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("habit",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
