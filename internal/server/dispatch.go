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

// Package server implements the bundled Modbus server: a request dispatcher
// over the in-memory register store, the handler glue the protocol library
// calls into, and the lifecycle that runs a TCP listener or a single RTU
// line until cancelled.
package server

import (
	"errors"
	"log/slog"

	"github.com/simonvetter/modbus"

	"github.com/wkrettek/mb-cli/internal/store"
)

// Request is a decoded Modbus request. The set of variants is closed: the
// dispatcher handles exactly the eight supported function codes and answers
// everything else with an illegal-function exception.
type Request interface {
	request()
}

type ReadCoils struct {
	Addr     uint16
	Quantity uint16
}

type ReadDiscreteInputs struct {
	Addr     uint16
	Quantity uint16
}

type ReadHoldingRegisters struct {
	Addr     uint16
	Quantity uint16
}

type ReadInputRegisters struct {
	Addr     uint16
	Quantity uint16
}

type WriteSingleCoil struct {
	Addr  uint16
	Value bool
}

type WriteSingleRegister struct {
	Addr  uint16
	Value uint16
}

type WriteMultipleCoils struct {
	Addr   uint16
	Values []bool
}

type WriteMultipleRegisters struct {
	Addr   uint16
	Values []uint16
}

func (ReadCoils) request() {}
func (ReadDiscreteInputs) request() {}
func (ReadHoldingRegisters) request() {}
func (ReadInputRegisters) request() {}
func (WriteSingleCoil) request() {}
func (WriteSingleRegister) request() {}
func (WriteMultipleCoils) request() {}
func (WriteMultipleRegisters) request() {}

// Response is the successful result of a dispatched request.
type Response interface {
	response()
}

// ReadBits answers the bit reads (coils, discrete inputs).
type ReadBits struct {
	Values []bool
}

// ReadWords answers the register reads (holding, input).
type ReadWords struct {
	Values []uint16
}

// WroteSingleCoil echoes a single coil write.
type WroteSingleCoil struct {
	Addr  uint16
	Value bool
}

// WroteSingleRegister echoes a single register write.
type WroteSingleRegister struct {
	Addr  uint16
	Value uint16
}

// WroteMultiple acknowledges a multiple-coil or multiple-register write with
// the starting address and the number of items written.
type WroteMultiple struct {
	Addr     uint16
	Quantity uint16
}

func (ReadBits) response() {}
func (ReadWords) response() {}
func (WroteSingleCoil) response() {}
func (WroteSingleRegister) response() {}
func (WroteMultiple) response() {}

// Dispatcher routes requests to the register store and translates store
// failures into protocol exceptions.
type Dispatcher struct {
	store   *store.Store
	log     *slog.Logger
	metrics *Metrics
}

// NewDispatcher creates a Dispatcher over the given store. logger may be nil.
func NewDispatcher(st *store.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:   st,
		log:     logger,
		metrics: &Metrics{},
	}
}

// Metrics returns the dispatcher's request counters.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Dispatch executes one request against the store. Addressing failures come
// back as modbus.ErrIllegalDataAddress, unsupported requests as
// modbus.ErrIllegalFunction. A panic escaping the store layer is recovered
// and reported as modbus.ErrServerDeviceFailure so the serve loop keeps
// answering.
func (d *Dispatcher) Dispatch(req Request) (resp Response, err error) {
	d.metrics.RequestsTotal.Add(1)
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("request handler panicked", slog.Any("panic", r))
			resp = nil
			err = modbus.ErrServerDeviceFailure
		}
		if err != nil {
			d.metrics.RequestsErrors.Add(1)
		}
	}()

	switch r := req.(type) {
	case ReadCoils:
		d.metrics.Reads.Add(1)
		values, err := d.store.ReadBits(store.Coils, r.Addr, r.Quantity)
		if err != nil {
			return nil, exception(err)
		}
		return ReadBits{Values: values}, nil

	case ReadDiscreteInputs:
		d.metrics.Reads.Add(1)
		values, err := d.store.ReadBits(store.DiscreteInputs, r.Addr, r.Quantity)
		if err != nil {
			return nil, exception(err)
		}
		return ReadBits{Values: values}, nil

	case ReadHoldingRegisters:
		d.metrics.Reads.Add(1)
		values, err := d.store.ReadWords(store.HoldingRegisters, r.Addr, r.Quantity)
		if err != nil {
			return nil, exception(err)
		}
		return ReadWords{Values: values}, nil

	case ReadInputRegisters:
		d.metrics.Reads.Add(1)
		values, err := d.store.ReadWords(store.InputRegisters, r.Addr, r.Quantity)
		if err != nil {
			return nil, exception(err)
		}
		return ReadWords{Values: values}, nil

	case WriteSingleCoil:
		d.metrics.Writes.Add(1)
		if err := d.store.WriteBit(store.Coils, r.Addr, r.Value); err != nil {
			return nil, exception(err)
		}
		return WroteSingleCoil{Addr: r.Addr, Value: r.Value}, nil

	case WriteSingleRegister:
		d.metrics.Writes.Add(1)
		if err := d.store.WriteWord(store.HoldingRegisters, r.Addr, r.Value); err != nil {
			return nil, exception(err)
		}
		return WroteSingleRegister{Addr: r.Addr, Value: r.Value}, nil

	case WriteMultipleCoils:
		d.metrics.Writes.Add(1)
		if err := d.store.WriteBits(store.Coils, r.Addr, r.Values); err != nil {
			return nil, exception(err)
		}
		return WroteMultiple{Addr: r.Addr, Quantity: uint16(len(r.Values))}, nil

	case WriteMultipleRegisters:
		d.metrics.Writes.Add(1)
		if err := d.store.WriteWords(store.HoldingRegisters, r.Addr, r.Values); err != nil {
			return nil, exception(err)
		}
		return WroteMultiple{Addr: r.Addr, Quantity: uint16(len(r.Values))}, nil

	default:
		return nil, modbus.ErrIllegalFunction
	}
}

// exception maps a store error to the protocol exception sent on the wire.
func exception(err error) error {
	if errors.Is(err, store.ErrOutOfRange) {
		return modbus.ErrIllegalDataAddress
	}
	return modbus.ErrServerDeviceFailure
}
