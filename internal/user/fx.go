package user

import (
	"github.com/habitforge/habitforge/internal/user/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("user.repository",
	fx.Provide(repository.Provide),
)
