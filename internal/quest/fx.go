package quest

import (
	"github.com/habitforge/habitforge/internal/quest/repository"
	"github.com/habitforge/habitforge/internal/quest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quest",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
