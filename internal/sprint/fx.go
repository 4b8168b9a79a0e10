package sprint

import (
	"github.com/smallbiznis/sprintboard/internal/sprint/repository"
	"github.com/smallbiznis/sprintboard/internal/sprint/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sprint.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
