package id

import (
	"github.com/bwmarrin/snowflake"
	"github.com/otherscentered/platform/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("id",
	fx.Provide(New),
)

// New builds the process-wide snowflake node. NodeID must be unique per
// running instance or generated IDs can collide.
func New(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
