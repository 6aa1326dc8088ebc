package identity

import (
	"github.com/smallbiznis/entitle/internal/identity/client"
	identitydomain "github.com/smallbiznis/entitle/internal/identity/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(func(c *client.Client) identitydomain.Service { return c }),
	fx.Provide(client.New),
)
