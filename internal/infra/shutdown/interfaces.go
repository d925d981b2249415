package shutdown

import "context"

// Shutdowner is implemented by components that participate in graceful shutdown.
type Shutdowner interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// appstater is the slice of application state management used during shutdown.
type appstater interface {
	SetTerminating(ctx context.Context) error
	SetTerminated(ctx context.Context) error
}
