package app

import (
	"context"

	"github.com/mkube/mkube-console/internal/infra/shutdown"
)

// component is the lifecycle every managed piece of the process implements.
type component interface {
	Start(ctx context.Context) error
	Ready() <-chan struct{}
	shutdown.Shutdowner
}
