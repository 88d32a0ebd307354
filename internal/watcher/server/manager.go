package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/motwatch/pkg/log"
)

// Server is anything that runs until ctx is done.
type Server interface {
	Start(ctx context.Context) error
}

// Manager runs a set of servers together. The first one to fail stops the rest.
type Manager struct {
	servers []Server
}

func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Add appends srv. It must be called before Start.
func (m *Manager) Add(srv Server) {
	m.servers = append(m.servers, srv)
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
