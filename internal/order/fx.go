package order

import (
	"github.com/plately/plately/internal/order/repository"
	"github.com/plately/plately/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
