// Copyright 2025 the mb-cli authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/wkrettek/mb-cli/internal/store"
)

// Common errors.
var (
	// ErrNoEndpoint indicates that neither a listen address nor a serial
	// device was configured.
	ErrNoEndpoint = errors.New("server: no listen address or serial device configured")

	// ErrBothEndpoints indicates that both a listen address and a serial
	// device were configured.
	ErrBothEndpoints = errors.New("server: listen address and serial device are mutually exclusive")
)

const (
	defaultIdleTimeout = 30 * time.Second
	defaultMaxClients  = 10
)

// Config configures the bundled server. Exactly one of ListenAddr and Device
// must be set: ListenAddr runs a TCP listener, Device a single RTU line.
type Config struct {
	// ListenAddr is the host:port to listen on for Modbus TCP.
	ListenAddr string

	// Device is the serial device path for Modbus RTU.
	Device string

	// Serial line parameters, used only with Device.
	Baud     uint
	DataBits uint
	StopBits uint
	Parity   uint

	// Sizes dimensions the register store.
	Sizes store.Sizes

	// MaxClients caps concurrent TCP connections. Zero means the default.
	MaxClients uint

	// Logger receives server logs. Nil means slog.Default().
	Logger *slog.Logger
}

func (c *Config) validate() error {
	switch {
	case c.ListenAddr == "" && c.Device == "":
		return ErrNoEndpoint
	case c.ListenAddr != "" && c.Device != "":
		return ErrBothEndpoints
	}
	return nil
}

// url returns the endpoint in the form the protocol library expects.
func (c *Config) url() string {
	if c.Device != "" {
		return "rtu://" + c.Device
	}
	return "tcp://" + c.ListenAddr
}

// Server runs a Modbus server over the in-memory register store.
type Server struct {
	cfg        Config
	log        *slog.Logger
	store      *store.Store
	dispatcher *Dispatcher
}

// New validates cfg and creates a Server with a freshly initialized store.
func New(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st := store.New(cfg.Sizes)
	return &Server{
		cfg:        cfg,
		log:        logger,
		store:      st,
		dispatcher: NewDispatcher(st, logger),
	}, nil
}

// Store returns the server's register store.
func (s *Server) Store() *store.Store {
	return s.store
}

// Metrics returns the server's request counters.
func (s *Server) Metrics() *Metrics {
	return s.dispatcher.Metrics()
}

// Run starts the server and blocks until ctx is cancelled, then stops it.
// The protocol library owns the serve loops: the TCP accept loop with one
// goroutine per connection, or the single long-lived RTU line loop.
// Cancellation is the only way out and is not an error.
func (s *Server) Run(ctx context.Context) error {
	conf := &modbus.ServerConfiguration{
		URL:     s.cfg.url(),
		Timeout: defaultIdleTimeout,
	}
	if s.cfg.Device != "" {
		conf.Speed = s.cfg.Baud
		conf.DataBits = s.cfg.DataBits
		conf.Parity = s.cfg.Parity
		conf.StopBits = s.cfg.StopBits
	} else {
		conf.MaxClients = s.cfg.MaxClients
		if conf.MaxClients == 0 {
			conf.MaxClients = defaultMaxClients
		}
	}

	srv, err := modbus.NewServer(conf, NewHandler(s.dispatcher))
	if err != nil {
		return fmt.Errorf("server: configure %s: %w", conf.URL, err)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("server: start %s: %w", conf.URL, err)
	}
	s.log.Info("server started",
		slog.String("url", conf.URL),
		slog.Uint64("coils", uint64(s.cfg.Sizes.Coils)),
		slog.Uint64("discrete_inputs", uint64(s.cfg.Sizes.DiscreteInputs)),
		slog.Uint64("holding_registers", uint64(s.cfg.Sizes.HoldingRegisters)),
		slog.Uint64("input_registers", uint64(s.cfg.Sizes.InputRegisters)))

	<-ctx.Done()

	if errors.Is(ctx.Err(), context.Canceled) {
		s.log.Info("shutdown requested")
	} else {
		s.log.Warn("run aborted", slog.String("reason", ctx.Err().Error()))
	}

	if err := srv.Stop(); err != nil {
		s.log.Warn("stop returned an error", slog.String("error", err.Error()))
	}
	s.log.LogAttrs(context.Background(), slog.LevelInfo, "server stopped",
		s.Metrics().Attrs()...)
	return nil
}
