package mcp

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-tax-filer/internal/config"
)

func swapStdio(t *testing.T, in string) *bytes.Buffer {
	t.Helper()
	oldIn, oldOut := stdin, stdout
	var out bytes.Buffer
	stdin, stdout = strings.NewReader(in), &out
	t.Cleanup(func() { stdin, stdout = oldIn, oldOut })
	return &out
}

func TestServer_Run_StdioMode_Cancelled(t *testing.T) {
	f := newFixture(t, false)
	swapStdio(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.server.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "Run() error = %v", err)
}

func TestServer_Run_StdioMode_ServesRequests(t *testing.T) {
	f := newFixture(t, false)
	out := swapStdio(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}
{"jsonrpc":"2.0","id":2,"method":"tools/list"}
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// stdin ends after two requests, which stops the server cleanly
	require.NoError(t, f.server.Run(ctx))

	assert.Contains(t, out.String(), `"id":2`)
	assert.Contains(t, out.String(), "tax_compute")
	assert.Contains(t, out.String(), "test-server")
}

func TestServer_Run_ServerMode_Cancelled(t *testing.T) {
	f := newFixture(t, false)
	f.server.config.Mode = config.ModeServer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.server.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "Run() error = %v", err)
}

func TestServer_Run_ServerMode_Shutdown(t *testing.T) {
	f := newFixture(t, false)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	f.server.config.Mode = config.ModeServer
	f.server.config.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", f.server.config.Address(), 100*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "Run() error = %v", err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Run_ServerMode_AddressInUse(t *testing.T) {
	f := newFixture(t, false)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	f.server.config.Mode = config.ModeServer
	f.server.config.Port = l.Addr().(*net.TCPAddr).Port

	err = f.server.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSE server failed")
}
