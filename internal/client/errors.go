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

package client

import (
	"errors"
	"fmt"

	"github.com/simonvetter/modbus"
)

// Common errors.
var (
	// ErrNoTransport indicates that neither an IP address nor a serial
	// device was configured.
	ErrNoTransport = errors.New("client: no ip address or serial device configured")

	// ErrBothTransports indicates that both an IP address and a serial
	// device were configured.
	ErrBothTransports = errors.New("client: ip address and serial device are mutually exclusive")

	// ErrConnectTimeout indicates the connection attempt did not complete
	// within the configured timeout.
	ErrConnectTimeout = errors.New("client: connection timed out")

	// ErrOperationTimeout indicates an operation did not complete within the
	// configured timeout.
	ErrOperationTimeout = errors.New("client: operation timed out")
)

// ExceptionError is a Modbus exception the remote device answered with. It
// wraps the protocol library's exception sentinel, so
// errors.Is(err, modbus.ErrIllegalDataAddress) and friends keep working.
type ExceptionError struct {
	Op  string
	Err error
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("%s: exception from device: %v", e.Op, e.Err)
}

func (e *ExceptionError) Unwrap() error {
	return e.Err
}

// TransportError is a failure in the transport below the protocol: a refused
// or dropped connection, a serial line fault, a framing error.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// exceptions is the set of sentinel errors the protocol library uses for
// Modbus exception responses. Everything else coming back from an operation
// is a transport failure.
var exceptions = []error{
	modbus.ErrIllegalFunction,
	modbus.ErrIllegalDataAddress,
	modbus.ErrIllegalDataValue,
	modbus.ErrServerDeviceFailure,
	modbus.ErrAcknowledge,
	modbus.ErrServerDeviceBusy,
	modbus.ErrMemoryParityError,
	modbus.ErrGWPathUnavailable,
	modbus.ErrGWTargetFailedToRespond,
}

func isException(err error) bool {
	for _, e := range exceptions {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// classify sorts an operation result into the error taxonomy: nil stays nil,
// a device exception becomes *ExceptionError, anything else *TransportError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isException(err) {
		return &ExceptionError{Op: op, Err: err}
	}
	return &TransportError{Op: op, Cause: err}
}
