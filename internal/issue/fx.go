package issue

import (
	"github.com/smallbiznis/sprintboard/internal/issue/repository"
	"github.com/smallbiznis/sprintboard/internal/issue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("issue.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideStore),
	fx.Provide(service.New),
)
