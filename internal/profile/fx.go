package profile

import (
	"github.com/smallbiznis/entitle/internal/profile/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.store",
	fx.Provide(repository.Provide),
)
