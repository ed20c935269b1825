package webhook

import (
	"github.com/plately/plately/internal/webhook/repository"
	"github.com/plately/plately/internal/webhook/service"
	"github.com/plately/plately/internal/webhook/signature"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook",
	fx.Provide(repository.Provide),
	fx.Provide(signature.NewVerifier),
	fx.Provide(service.NewService),
)
