package main

import (
	"github.com/otherscentered/platform/internal/clock"
	"github.com/otherscentered/platform/internal/config"
	"github.com/otherscentered/platform/internal/geocode"
	"github.com/otherscentered/platform/internal/member"
	"github.com/otherscentered/platform/internal/migration"
	"github.com/otherscentered/platform/internal/need"
	"github.com/otherscentered/platform/internal/notify"
	"github.com/otherscentered/platform/internal/observability"
	"github.com/otherscentered/platform/internal/providers/email"
	"github.com/otherscentered/platform/internal/scheduler"
	"github.com/otherscentered/platform/internal/search"
	"github.com/otherscentered/platform/internal/server"
	"github.com/otherscentered/platform/pkg/db"
	"github.com/otherscentered/platform/pkg/id"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		clock.Module,
		id.Module,
		db.Module,
		migration.Module,

		// Functional domains
		geocode.Module,
		member.Module,
		email.Module,
		notify.Module,
		need.Module,
		search.Module,
		scheduler.Module,

		// HTTP surface
		server.Module,
	)
	app.Run()
}
