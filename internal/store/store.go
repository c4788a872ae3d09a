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

// Package store implements the in-memory Modbus data model served by the
// bundled server: coils, discrete inputs, holding registers and input
// registers, each a fixed-size array sized at startup.
package store

import (
	"errors"
	"fmt"
	"sync"
)

// Kind selects one of the four Modbus data spaces.
type Kind int

const (
	Coils Kind = iota
	DiscreteInputs
	HoldingRegisters
	InputRegisters
)

// String returns the string representation of the data space.
func (k Kind) String() string {
	switch k {
	case Coils:
		return "coils"
	case DiscreteInputs:
		return "discrete inputs"
	case HoldingRegisters:
		return "holding registers"
	case InputRegisters:
		return "input registers"
	default:
		return fmt.Sprintf("unknown kind (%d)", int(k))
	}
}

// Common errors.
var (
	// ErrOutOfRange indicates an address span outside the configured size
	// of the target data space.
	ErrOutOfRange = errors.New("store: address out of range")

	// ErrReadOnly indicates a write to a read-only data space.
	ErrReadOnly = errors.New("store: data space is read-only")

	// ErrWrongKind indicates a bit operation on a register space or vice
	// versa.
	ErrWrongKind = errors.New("store: wrong data kind for operation")
)

// Sizes configures the length of each data space. Each space is sized
// independently; zero is a valid size.
type Sizes struct {
	Coils            uint16
	DiscreteInputs   uint16
	HoldingRegisters uint16
	InputRegisters   uint16
}

// Store holds the four Modbus data spaces behind a single reader/writer
// lock. Reads of any space take the shared lock, writes the exclusive one;
// the lock deliberately spans the whole store rather than one space, so a
// register write blocks concurrent coil reads. Sizes are fixed at
// construction and never change.
type Store struct {
	mu             sync.RWMutex
	coils          []bool
	discreteInputs []bool
	holding        []uint16
	input          []uint16
}

// New creates a Store with the given sizes. Coils and discrete inputs start
// false; holding and input registers start with each cell holding its own
// address.
func New(sizes Sizes) *Store {
	s := &Store{
		coils:          make([]bool, sizes.Coils),
		discreteInputs: make([]bool, sizes.DiscreteInputs),
		holding:        make([]uint16, sizes.HoldingRegisters),
		input:          make([]uint16, sizes.InputRegisters),
	}
	for i := range s.holding {
		s.holding[i] = uint16(i)
	}
	for i := range s.input {
		s.input[i] = uint16(i)
	}
	return s
}

// Sizes returns the configured size of each data space.
func (s *Store) Sizes() Sizes {
	return Sizes{
		Coils:            uint16(len(s.coils)),
		DiscreteInputs:   uint16(len(s.discreteInputs)),
		HoldingRegisters: uint16(len(s.holding)),
		InputRegisters:   uint16(len(s.input)),
	}
}

// inRange reports whether [start, start+qty) fits in a space of the given
// length. The sum is computed in int to catch spans that would wrap a
// 16-bit address.
func inRange(start, qty uint16, length int) bool {
	return int(start)+int(qty) <= length
}

// ReadBits returns qty bit values starting at start from a bit space
// (coils or discrete inputs).
func (s *Store) ReadBits(kind Kind, start, qty uint16) ([]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var src []bool
	switch kind {
	case Coils:
		src = s.coils
	case DiscreteInputs:
		src = s.discreteInputs
	default:
		return nil, ErrWrongKind
	}

	if !inRange(start, qty, len(src)) {
		return nil, ErrOutOfRange
	}

	result := make([]bool, qty)
	copy(result, src[start:int(start)+int(qty)])
	return result, nil
}

// ReadWords returns qty register values starting at start from a register
// space (holding or input registers).
func (s *Store) ReadWords(kind Kind, start, qty uint16) ([]uint16, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var src []uint16
	switch kind {
	case HoldingRegisters:
		src = s.holding
	case InputRegisters:
		src = s.input
	default:
		return nil, ErrWrongKind
	}

	if !inRange(start, qty, len(src)) {
		return nil, ErrOutOfRange
	}

	result := make([]uint16, qty)
	copy(result, src[start:int(start)+int(qty)])
	return result, nil
}

// WriteBit writes a single coil. Discrete inputs are read-only over the
// protocol, so only Coils is writable here.
func (s *Store) WriteBit(kind Kind, addr uint16, value bool) error {
	return s.WriteBits(kind, addr, []bool{value})
}

// WriteBits writes consecutive coils starting at start.
func (s *Store) WriteBits(kind Kind, start uint16, values []bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case Coils:
	case DiscreteInputs:
		return ErrReadOnly
	default:
		return ErrWrongKind
	}

	if !inRange(start, uint16(len(values)), len(s.coils)) {
		return ErrOutOfRange
	}

	copy(s.coils[start:], values)
	return nil
}

// WriteWord writes a single holding register. Input registers are read-only
// over the protocol.
func (s *Store) WriteWord(kind Kind, addr, value uint16) error {
	return s.WriteWords(kind, addr, []uint16{value})
}

// WriteWords writes consecutive holding registers starting at start.
func (s *Store) WriteWords(kind Kind, start uint16, values []uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case HoldingRegisters:
	case InputRegisters:
		return ErrReadOnly
	default:
		return ErrWrongKind
	}

	if !inRange(start, uint16(len(values)), len(s.holding)) {
		return ErrOutOfRange
	}

	copy(s.holding[start:], values)
	return nil
}

// SetBit sets a bit value directly, bypassing the read-only guard. Intended
// for seeding discrete inputs in tests and fixtures.
func (s *Store) SetBit(kind Kind, addr uint16, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dst []bool
	switch kind {
	case Coils:
		dst = s.coils
	case DiscreteInputs:
		dst = s.discreteInputs
	default:
		return ErrWrongKind
	}

	if !inRange(addr, 1, len(dst)) {
		return ErrOutOfRange
	}
	dst[addr] = value
	return nil
}

// SetWord sets a register value directly, bypassing the read-only guard.
// Intended for seeding input registers in tests and fixtures.
func (s *Store) SetWord(kind Kind, addr, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dst []uint16
	switch kind {
	case HoldingRegisters:
		dst = s.holding
	case InputRegisters:
		dst = s.input
	default:
		return ErrWrongKind
	}

	if !inRange(addr, 1, len(dst)) {
		return ErrOutOfRange
	}
	dst[addr] = value
	return nil
}
