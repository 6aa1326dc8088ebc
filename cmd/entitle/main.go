package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/config"
	"github.com/smallbiznis/entitle/internal/logger"
	"github.com/smallbiznis/entitle/internal/metrics"
	"github.com/smallbiznis/entitle/internal/migration"
	"github.com/smallbiznis/entitle/internal/server"
	"github.com/smallbiznis/entitle/pkg/db"
	"github.com/smallbiznis/entitle/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		telemetry.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// HTTP surface plus the entitlement domain modules it wires in
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
