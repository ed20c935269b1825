package plate

import (
	"github.com/plately/plately/internal/plate/generator"
	"github.com/plately/plately/internal/plate/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("plate",
	fx.Provide(repository.Provide),
	fx.Provide(generator.New),
)
