// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func testSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockServer blocks in ListenAndServe until Shutdown is called or it is told
// to fail immediately.
type mockServer struct {
	failWith  error
	closed    chan struct{}
	shutdowns int
}

func newMockServer(failWith error) *mockServer {
	return &mockServer{failWith: failWith, closed: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.failWith != nil {
		return m.failWith
	}
	<-m.closed
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(context.Context) error {
	m.shutdowns++
	close(m.closed)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer(nil)
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns)
	}
}

func TestHTTPServicePropagatesListenError(t *testing.T) {
	bindErr := errors.New("bind: address already in use")
	svc := NewHTTPService(newMockServer(bindErr), time.Second)

	err := svc.Serve(context.Background())
	if !errors.Is(err, bindErr) {
		t.Errorf("Serve returned %v, want bind error", err)
	}
}

func TestTreeSupervisesServices(t *testing.T) {
	tree := NewTree(testSlogLogger(), DefaultTreeConfig())
	srv := newMockServer(nil)
	tree.AddAPIService(NewHTTPService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
	if srv.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns)
	}
}
