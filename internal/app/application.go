package app

import (
	"log/slog"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/appconf"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/feed"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/planner"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/realtime"
)

// Application holds the dependencies for our HTTP handlers, helpers and
// middleware. Handlers reach everything through this struct rather than
// package-level state.
type Application struct {
	Config    Config
	Logger    *slog.Logger
	FeedStore *feed.Store
	Realtime  *realtime.Client
	Planner   *planner.Planner
}

// Config holds the runtime settings for the Application: the port to listen
// on and the operating environment.
type Config struct {
	Port int
	Env  appconf.Environment
}
