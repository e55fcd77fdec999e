package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouterServer struct {
	stop     chan struct{}
	served   chan string
	shutdown chan struct{}
}

func newFakeRouterServer() *fakeRouterServer {
	return &fakeRouterServer{
		stop:     make(chan struct{}),
		served:   make(chan string, 1),
		shutdown: make(chan struct{}, 1),
	}
}

func (s *fakeRouterServer) Serve(address string) error {
	s.served <- address
	<-s.stop
	return nil
}

func (s *fakeRouterServer) Shutdown(context.Context) error {
	s.shutdown <- struct{}{}
	close(s.stop)
	return nil
}

func TestServeUntilDoneShutsDownRouterServer(t *testing.T) {
	srv := newFakeRouterServer()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, srv, ":0", time.Second) }()

	assert.Equal(t, ":0", <-srv.served)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("serveUntilDone did not return after cancel")
	}
	assert.Len(t, srv.shutdown, 1)
}

type failingRouterServer struct{}

func (failingRouterServer) Serve(string) error             { return errors.New("address in use") }
func (failingRouterServer) Shutdown(context.Context) error { return nil }

func TestServeUntilDoneReturnsServeError(t *testing.T) {
	err := serveUntilDone(context.Background(), failingRouterServer{}, ":0", time.Second)
	assert.EqualError(t, err, "address in use")
}
