package main

import (
	"bytes"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube-accounts/internal/observability"
)

func TestServe_ReturnsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	var logs bytes.Buffer
	srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(srv, make(chan os.Signal), observability.NewLoggerTo(&logs, "info")) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, logs.String(), "server_failed")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after listen failure")
	}
}

func TestServe_ShutsDownOnSignal(t *testing.T) {
	var logs bytes.Buffer
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	require.NoError(t, serve(srv, quit, observability.NewLoggerTo(&logs, "info")))
	assert.Contains(t, logs.String(), "server_shutdown")
}
