package system

import "context"

// Service represents a lifecycle-managed component. Long-running parts of
// the layout service (the HTTP listener, the audit sink) implement it so the
// manager can start and stop them deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService is a placeholder for components that have no background work
// but should still appear in the lifecycle listing.
type NoopService struct {
	ServiceName string
}

func (n NoopService) Name() string { return n.ServiceName }
func (n NoopService) Start(context.Context) error { return nil }
func (n NoopService) Stop(context.Context) error { return nil }
