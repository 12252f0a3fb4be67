package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/config"
	"github.com/habitforge/habitforge/internal/observability"
	"github.com/habitforge/habitforge/internal/server"
	"github.com/habitforge/habitforge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
