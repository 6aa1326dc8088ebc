package checkout

import (
	"github.com/smallbiznis/entitle/internal/checkout/client"
	checkoutdomain "github.com/smallbiznis/entitle/internal/checkout/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(client.New),
	fx.Provide(func(c *client.Client) checkoutdomain.Service { return c }),
)
