package monitors

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/domain"
)

func listenTCP(t *testing.T) (host string, port int, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, func() { ln.Close() }
}

func TestPortService_Check_OpenPortIsUp(t *testing.T) {
	host, port, closeFn := listenTCP(t)
	defer closeFn()

	svc := NewPortService()
	result, err := svc.Check(context.Background(), domain.Monitor{Type: domain.MonitorTypePort, Host: host, Port: port})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUp, result.Status)
}

func TestPortService_Check_ClosedPortIsDown(t *testing.T) {
	// Bind then immediately close to get a port nothing is listening on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	svc := NewPortService()
	result, err := svc.Check(context.Background(), domain.Monitor{Type: domain.MonitorTypePort, Host: "127.0.0.1", Port: port})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDown, result.Status)
	assert.Equal(t, "connection_failed", result.Details)
}

func TestPortService_Check_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewPortService()
	result, err := svc.Check(ctx, domain.Monitor{Type: domain.MonitorTypePort, Host: "127.0.0.1", Port: 1})
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, domain.StatusDown, result.Status)
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry()

	httpSvc, ok := reg.Get(domain.MonitorTypeHTTP)
	require.True(t, ok)
	assert.IsType(t, &HTTPService{}, httpSvc)

	portSvc, ok := reg.Get(domain.MonitorTypePort)
	require.True(t, ok)
	assert.IsType(t, &PortService{}, portSvc)

	_, ok = reg.Get(domain.MonitorType("unknown"))
	assert.False(t, ok)
}
