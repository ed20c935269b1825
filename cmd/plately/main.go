package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/clock"
	"github.com/plately/plately/internal/config"
	"github.com/plately/plately/internal/migration"
	"github.com/plately/plately/internal/notification"
	"github.com/plately/plately/internal/observability"
	"github.com/plately/plately/internal/order"
	"github.com/plately/plately/internal/plate"
	"github.com/plately/plately/internal/retention"
	"github.com/plately/plately/internal/server"
	"github.com/plately/plately/internal/webhook"
	"github.com/plately/plately/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,

		order.Module,
		plate.Module,
		notification.Module,
		webhook.Module,
		retention.Module,
		server.Module,
	)

	app.Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
