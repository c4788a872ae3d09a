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
	"github.com/simonvetter/modbus"
)

// Handler adapts the Dispatcher to the modbus.RequestHandler interface the
// protocol library's serve loop calls into. Requests are answered for any
// unit id: the bundled server exposes a single register map.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler creates a Handler over the given dispatcher.
func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// HandleCoils serves coil reads (FC 01) and writes (FC 05, FC 15).
func (h *Handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	if !req.IsWrite {
		resp, err := h.dispatcher.Dispatch(ReadCoils{Addr: req.Addr, Quantity: req.Quantity})
		if err != nil {
			return nil, err
		}
		return resp.(ReadBits).Values, nil
	}

	var dreq Request
	if req.Quantity == 1 {
		dreq = WriteSingleCoil{Addr: req.Addr, Value: req.Args[0]}
	} else {
		dreq = WriteMultipleCoils{Addr: req.Addr, Values: req.Args}
	}
	if _, err := h.dispatcher.Dispatch(dreq); err != nil {
		return nil, err
	}
	return req.Args, nil
}

// HandleDiscreteInputs serves discrete input reads (FC 02).
func (h *Handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	resp, err := h.dispatcher.Dispatch(ReadDiscreteInputs{Addr: req.Addr, Quantity: req.Quantity})
	if err != nil {
		return nil, err
	}
	return resp.(ReadBits).Values, nil
}

// HandleHoldingRegisters serves holding register reads (FC 03) and writes
// (FC 06, FC 16).
func (h *Handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if !req.IsWrite {
		resp, err := h.dispatcher.Dispatch(ReadHoldingRegisters{Addr: req.Addr, Quantity: req.Quantity})
		if err != nil {
			return nil, err
		}
		return resp.(ReadWords).Values, nil
	}

	var dreq Request
	if req.Quantity == 1 {
		dreq = WriteSingleRegister{Addr: req.Addr, Value: req.Args[0]}
	} else {
		dreq = WriteMultipleRegisters{Addr: req.Addr, Values: req.Args}
	}
	if _, err := h.dispatcher.Dispatch(dreq); err != nil {
		return nil, err
	}
	return req.Args, nil
}

// HandleInputRegisters serves input register reads (FC 04).
func (h *Handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	resp, err := h.dispatcher.Dispatch(ReadInputRegisters{Addr: req.Addr, Quantity: req.Quantity})
	if err != nil {
		return nil, err
	}
	return resp.(ReadWords).Values, nil
}
