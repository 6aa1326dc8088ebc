package plan

import (
	"github.com/smallbiznis/entitle/internal/plan/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.catalog",
	fx.Provide(repository.Provide),
)
