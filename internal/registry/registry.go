package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mainframe-ci/endevor-fetch/internal/model"
)

var ErrNotFound = errors.New("connection not found")

// Registry is the named store of host connections. Implementations are
// internally synchronized: FindOrCreate is atomic, so two concurrent
// migrations of the same (host:port, code page) pair resolve to a single
// entry without callers holding their own lock.
type Registry interface {
	// FindByID returns a connection or ErrNotFound.
	FindByID(ctx context.Context, id string) (model.HostConnection, error)
	// FindByHostAndCodePage matches on the combined host:port and the code
	// page, or returns ErrNotFound.
	FindByHostAndCodePage(ctx context.Context, hostPort, codePage string) (model.HostConnection, error)
	// Add inserts a connection. A connection with the same host:port and
	// code page already present suppresses the insert silently.
	Add(ctx context.Context, conn model.HostConnection) error
	// FindOrCreate returns the entry matching (hostPort, codePage), creating
	// one with description "<hostPort> <codePage>" and empty protocol and
	// timeout when none exists.
	FindOrCreate(ctx context.Context, hostPort, codePage string) (model.HostConnection, error)
}

// Seed adds explicitly configured connections, generating identifiers for
// entries that lack one. Duplicates are skipped and logged.
func Seed(ctx context.Context, r Registry, conns []model.HostConnection) error {
	for _, conn := range conns {
		if conn.ID == "" {
			conn.ID = uuid.NewString()
		}
		if _, err := r.FindByHostAndCodePage(ctx, conn.HostPort(), conn.CodePage); err == nil {
			slog.DebugContext(ctx, "connection already registered",
				"host", conn.HostPort(), "codePage", conn.CodePage)
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := r.Add(ctx, conn); err != nil {
			return err
		}
		slog.InfoContext(ctx, "connection registered",
			"id", conn.ID, "host", conn.HostPort(), "codePage", conn.CodePage)
	}
	return nil
}

// Memory is a mutex guarded in-process Registry, used by tests and as the
// backing for config-seeded runs without a registry database.
type Memory struct {
	mx    sync.Mutex
	byID  map[string]model.HostConnection
	order []string
}

func NewMemory() *Memory {
	return &Memory{
		byID: make(map[string]model.HostConnection),
	}
}

func (m *Memory) FindByID(_ context.Context, id string) (model.HostConnection, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	conn, ok := m.byID[id]
	if !ok {
		return model.HostConnection{}, ErrNotFound
	}
	return conn, nil
}

func (m *Memory) FindByHostAndCodePage(_ context.Context, hostPort, codePage string) (model.HostConnection, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.findLocked(hostPort, codePage)
}

func (m *Memory) Add(_ context.Context, conn model.HostConnection) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if _, err := m.findLocked(conn.HostPort(), conn.CodePage); err == nil {
		return nil
	}
	m.byID[conn.ID] = conn
	m.order = append(m.order, conn.ID)
	return nil
}

func (m *Memory) FindOrCreate(_ context.Context, hostPort, codePage string) (model.HostConnection, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if conn, err := m.findLocked(hostPort, codePage); err == nil {
		return conn, nil
	}
	conn := model.NewHostConnection(hostPort+" "+codePage, hostPort, codePage, "", "")
	m.byID[conn.ID] = conn
	m.order = append(m.order, conn.ID)
	return conn, nil
}

// List returns all connections in insertion order.
func (m *Memory) List(_ context.Context) ([]model.HostConnection, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	out := make([]model.HostConnection, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *Memory) findLocked(hostPort, codePage string) (model.HostConnection, error) {
	for _, id := range m.order {
		conn := m.byID[id]
		if conn.HostPort() == hostPort && conn.CodePage == codePage {
			return conn, nil
		}
	}
	return model.HostConnection{}, ErrNotFound
}
