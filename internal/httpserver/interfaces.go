package httpserver

import (
	"time"

	"github.com/mkube/mkube-console/internal/infra/appstate"
)

// appstater is the slice of application state the health endpoints consume.
type appstater interface {
	GetState() appstate.State
	IsHealthy() bool
	IsReady() bool
	GetUptime() time.Duration
	GetStartTime() time.Time
}
