// Package launcher resolves an application locator such as "main:app" to a
// registered Fiber application and serves it until the context is cancelled.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

var (
	ErrInvalidLocator    = errors.New("invalid application locator")
	ErrModuleNotFound    = errors.New("module not found")
	ErrAttributeNotFound = errors.New("attribute not found in module")
)

// Locator names an application as module:attribute.
type Locator struct {
	Module    string
	Attribute string
}

func (l Locator) String() string { return l.Module + ":" + l.Attribute }

// ParseLocator parses "module:attribute".
func ParseLocator(s string) (Locator, error) {
	module, attr, ok := strings.Cut(s, ":")
	module, attr = strings.TrimSpace(module), strings.TrimSpace(attr)
	if !ok || module == "" || attr == "" || strings.Contains(attr, ":") {
		return Locator{}, fmt.Errorf("%w: %q (want module:attribute)", ErrInvalidLocator, s)
	}
	return Locator{Module: module, Attribute: attr}, nil
}

// Factory constructs an application on demand.
type Factory func() (*fiber.App, error)

// Registry maps modules and their attributes to application factories.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]Factory)}
}

// Register adds an application under locator. Registering the same locator twice replaces it.
func (r *Registry) Register(locator string, f Factory) error {
	loc, err := ParseLocator(locator)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	attrs, ok := r.modules[loc.Module]
	if !ok {
		attrs = make(map[string]Factory)
		r.modules[loc.Module] = attrs
	}
	attrs[loc.Attribute] = f
	return nil
}

// Resolve builds the application registered under locator.
func (r *Registry) Resolve(locator string) (*fiber.App, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	attrs, ok := r.modules[loc.Module]
	var f Factory
	if ok {
		f, ok = attrs[loc.Attribute]
		if !ok {
			r.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s has no attribute %q", ErrAttributeNotFound, loc.Module, loc.Attribute)
		}
	}
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, loc.Module)
	}

	app, err := f()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", loc, err)
	}
	return app, nil
}

// Locators lists every registered locator in sorted order.
func (r *Registry) Locators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for module, attrs := range r.modules {
		for attr := range attrs {
			out = append(out, Locator{Module: module, Attribute: attr}.String())
		}
	}
	sort.Strings(out)
	return out
}

// Server serves one application on a TCP listener.
type Server struct {
	App             *fiber.App
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	Log             zerolog.Logger

	// ready, when set, receives the bound address once the listener is open.
	ready chan<- string
}

// Addr returns host:port with defaults applied.
func (s *Server) Addr() string {
	host := s.Host
	if host == "" {
		host = DefaultHost
	}
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Serve binds the listener and serves until ctx is cancelled, then shuts down gracefully.
// A bind failure is returned immediately.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.Log.Info().Str("addr", ln.Addr().String()).Msg("server listening")
	if s.ready != nil {
		s.ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.App.Listener(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.Log.Info().Dur("timeout", timeout).Msg("shutdown initiated")
	if err := s.App.ShutdownWithTimeout(timeout); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	<-errCh
	s.Log.Info().Msg("shutdown complete")
	return nil
}
