package authprovider

import (
	"github.com/smallbiznis/sprintboard/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("authprovider",
	fx.Provide(NewVerifier),
	fx.Provide(NewClient),
	fx.Provide(func(cfg config.Config, client *Client) Directory {
		return NewCachedDirectory(client, cfg.DirectoryCacheTTL)
	}),
)
