package launcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pingApp() (*fiber.App, error) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app, nil
}

func TestParseLocator(t *testing.T) {
	loc, err := ParseLocator("main:app")
	require.NoError(t, err)
	assert.Equal(t, Locator{Module: "main", Attribute: "app"}, loc)
	assert.Equal(t, "main:app", loc.String())

	for _, bad := range []string{"", "main", ":app", "main:", "a:b:c"} {
		_, err := ParseLocator(bad)
		assert.True(t, errors.Is(err, ErrInvalidLocator), bad)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("main:app", pingApp))
	require.NoError(t, r.Register("admin:app", pingApp))

	app, err := r.Resolve("main:app")
	require.NoError(t, err)
	assert.NotNil(t, app)
	assert.Equal(t, []string{"admin:app", "main:app"}, r.Locators())

	_, err = r.Resolve("worker:app")
	assert.True(t, errors.Is(err, ErrModuleNotFound))

	_, err = r.Resolve("main:application")
	assert.True(t, errors.Is(err, ErrAttributeNotFound))

	_, err = r.Resolve("main")
	assert.True(t, errors.Is(err, ErrInvalidLocator))

	assert.Error(t, r.Register("broken", pingApp))
}

func TestRegistryFactoryError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("config missing")
	require.NoError(t, r.Register("main:app", func() (*fiber.App, error) { return nil, boom }))

	_, err := r.Resolve("main:app")
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "failed to load main:app")
}

func TestServerAddrDefaults(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8000", (&Server{}).Addr())
	assert.Equal(t, "127.0.0.1:9000", (&Server{Host: "127.0.0.1", Port: 9000}).Addr())
	assert.Equal(t, "[::1]:8000", (&Server{Host: "::1"}).Addr())
}

func TestServeAndShutdown(t *testing.T) {
	app, _ := pingApp()
	ready := make(chan string, 1)
	s := &Server{App: app, Host: "127.0.0.1", Port: freePort(t), ShutdownTimeout: time.Second, Log: zerolog.Nop(), ready: ready}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServePortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	app, _ := pingApp()
	s := &Server{App: app, Host: "127.0.0.1", Port: port, Log: zerolog.Nop()}
	err = s.Serve(context.Background())
	assert.ErrorContains(t, err, "failed to bind")
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
