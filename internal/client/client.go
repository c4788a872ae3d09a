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

// Package client connects to a remote Modbus device over TCP or serial RTU
// and runs the eight supported operations under a per-operation timeout with
// a uniform error taxonomy: device exception, transport failure or timeout.
package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/simonvetter/modbus"
)

// DefaultTimeout bounds connection attempts and operations when Config leaves
// Timeout zero.
const DefaultTimeout = 5 * time.Second

// Config describes the device to talk to. Exactly one of IP and Device must
// be set: IP selects Modbus TCP, Device serial RTU.
type Config struct {
	// IP is the address of a Modbus TCP device.
	IP string

	// Port is the TCP port, used only with IP.
	Port uint16

	// Device is the serial device path of a Modbus RTU device.
	Device string

	// Serial line parameters, used only with Device.
	Baud     uint
	DataBits uint
	StopBits uint
	Parity   string

	// UnitID addresses the device on the bus.
	UnitID uint8

	// Timeout bounds the connection attempt and every operation.
	Timeout time.Duration

	// Logger receives client logs. Nil means slog.Default().
	Logger *slog.Logger
}

// Endpoint validates the transport selection and returns the endpoint URL.
// It fails before any I/O when no transport or both transports are given.
func (c *Config) Endpoint() (string, error) {
	switch {
	case c.IP == "" && c.Device == "":
		return "", ErrNoTransport
	case c.IP != "" && c.Device != "":
		return "", ErrBothTransports
	}
	if c.Device != "" {
		return "rtu://" + c.Device, nil
	}
	return fmt.Sprintf("tcp://%s:%d", c.IP, c.Port), nil
}

// Parity maps a textual parity setting to the protocol library's constant.
func Parity(s string) (uint, error) {
	switch s {
	case "", "none":
		return modbus.PARITY_NONE, nil
	case "even":
		return modbus.PARITY_EVEN, nil
	case "odd":
		return modbus.PARITY_ODD, nil
	default:
		return 0, fmt.Errorf("client: unknown parity %q (want none, even or odd)", s)
	}
}

// Client is a connected Modbus client. All operations run under the
// configured timeout; none of them retries.
type Client struct {
	mc      *modbus.ModbusClient
	timeout time.Duration
	log     *slog.Logger
}

// Connect validates cfg, opens the transport and selects the unit id. The
// whole connection attempt is bounded by the timeout: an attempt that is
// still pending when it elapses fails with ErrConnectTimeout, while an
// immediate refusal surfaces as a *TransportError naming the endpoint.
func Connect(cfg Config) (*Client, error) {
	url, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conf := &modbus.ClientConfiguration{
		URL:     url,
		Timeout: timeout,
	}
	if cfg.Device != "" {
		par, err := Parity(cfg.Parity)
		if err != nil {
			return nil, err
		}
		conf.Speed = cfg.Baud
		conf.DataBits = cfg.DataBits
		conf.Parity = par
		conf.StopBits = cfg.StopBits
	}

	mc, err := modbus.NewClient(conf)
	if err != nil {
		return nil, &TransportError{Op: "connect", Cause: fmt.Errorf("%s: %w", url, err)}
	}

	logger.Debug("connecting", slog.String("url", url), slog.Duration("timeout", timeout))
	opened := make(chan error, 1)
	go func() { opened <- mc.Open() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-opened:
		if err != nil {
			return nil, &TransportError{Op: "connect", Cause: fmt.Errorf("%s: %w", url, err)}
		}
	case <-timer.C:
		logger.Error("connection timed out",
			slog.String("url", url), slog.Duration("timeout", timeout))
		return nil, ErrConnectTimeout
	}

	if err := mc.SetUnitId(cfg.UnitID); err != nil {
		mc.Close()
		return nil, &TransportError{Op: "connect", Cause: err}
	}

	if cfg.Device != "" {
		// Shared and virtual serial ports reject exclusive access; drop it
		// when the platform lets us, and carry on when it does not.
		dropExclusive(cfg.Device, logger)
	}

	logger.Debug("connected", slog.String("url", url), slog.Uint64("unit", uint64(cfg.UnitID)))
	return &Client{mc: mc, timeout: timeout, log: logger}, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mc.Close()
}

// call runs one operation under the timeout and classifies the outcome. The
// operation's result value is captured by the closure; call only deals in
// errors.
func (c *Client) call(op string, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		err = classify(op, err)
		if err != nil {
			c.log.Error("operation failed", slog.String("op", op), slog.String("error", err.Error()))
		}
		return err
	case <-timer.C:
		c.log.Error("operation timed out",
			slog.String("op", op), slog.Duration("timeout", c.timeout))
		return fmt.Errorf("%s: %w", op, ErrOperationTimeout)
	}
}

// ReadCoils reads qty coils starting at addr (FC 01).
func (c *Client) ReadCoils(addr, qty uint16) ([]bool, error) {
	var values []bool
	err := c.call("read coils", func() error {
		var err error
		values, err = c.mc.ReadCoils(addr, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ReadDiscreteInputs reads qty discrete inputs starting at addr (FC 02).
func (c *Client) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	var values []bool
	err := c.call("read discrete inputs", func() error {
		var err error
		values, err = c.mc.ReadDiscreteInputs(addr, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ReadHoldingRegisters reads qty holding registers starting at addr (FC 03).
func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	var values []uint16
	err := c.call("read holding registers", func() error {
		var err error
		values, err = c.mc.ReadRegisters(addr, qty, modbus.HOLDING_REGISTER)
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ReadInputRegisters reads qty input registers starting at addr (FC 04).
func (c *Client) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	var values []uint16
	err := c.call("read input registers", func() error {
		var err error
		values, err = c.mc.ReadRegisters(addr, qty, modbus.INPUT_REGISTER)
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// WriteSingleCoil writes one coil at addr (FC 05).
func (c *Client) WriteSingleCoil(addr uint16, value bool) error {
	return c.call("write single coil", func() error {
		return c.mc.WriteCoil(addr, value)
	})
}

// WriteSingleRegister writes one holding register at addr (FC 06).
func (c *Client) WriteSingleRegister(addr, value uint16) error {
	return c.call("write single register", func() error {
		return c.mc.WriteRegister(addr, value)
	})
}

// WriteMultipleCoils writes consecutive coils starting at addr (FC 15).
func (c *Client) WriteMultipleCoils(addr uint16, values []bool) error {
	return c.call("write multiple coils", func() error {
		return c.mc.WriteCoils(addr, values)
	})
}

// WriteMultipleRegisters writes consecutive holding registers starting at
// addr (FC 16).
func (c *Client) WriteMultipleRegisters(addr uint16, values []uint16) error {
	return c.call("write multiple registers", func() error {
		return c.mc.WriteRegisters(addr, values)
	})
}
