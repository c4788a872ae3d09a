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

package store

import (
	"errors"
	"sync"
	"testing"
)

func TestNewInitialValues(t *testing.T) {
	s := New(Sizes{Coils: 100, DiscreteInputs: 200, HoldingRegisters: 300, InputRegisters: 400})

	sizes := s.Sizes()
	if sizes.Coils != 100 || sizes.DiscreteInputs != 200 ||
		sizes.HoldingRegisters != 300 || sizes.InputRegisters != 400 {
		t.Fatalf("unexpected sizes: %+v", sizes)
	}

	coils, err := s.ReadBits(Coils, 0, 100)
	if err != nil {
		t.Fatalf("ReadBits failed: %v", err)
	}
	for i, v := range coils {
		if v {
			t.Errorf("coil %d: expected false at startup", i)
		}
	}

	inputs, err := s.ReadBits(DiscreteInputs, 0, 200)
	if err != nil {
		t.Fatalf("ReadBits failed: %v", err)
	}
	for i, v := range inputs {
		if v {
			t.Errorf("discrete input %d: expected false at startup", i)
		}
	}

	// Holding and input registers start with value == address.
	for _, kind := range []Kind{HoldingRegisters, InputRegisters} {
		n := uint16(300)
		if kind == InputRegisters {
			n = 400
		}
		words, err := s.ReadWords(kind, 0, n)
		if err != nil {
			t.Fatalf("ReadWords(%v) failed: %v", kind, err)
		}
		for i, v := range words {
			if v != uint16(i) {
				t.Errorf("%v[%d]: expected %d, got %d", kind, i, i, v)
			}
		}
	}
}

func TestNewZeroSizes(t *testing.T) {
	s := New(Sizes{})

	if _, err := s.ReadBits(Coils, 0, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange on empty coils, got %v", err)
	}
	if _, err := s.ReadWords(HoldingRegisters, 0, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange on empty holding registers, got %v", err)
	}

	// A zero-quantity read of an empty space is still in range.
	if _, err := s.ReadBits(Coils, 0, 0); err != nil {
		t.Errorf("zero-quantity read failed: %v", err)
	}
}

func TestReadBounds(t *testing.T) {
	s := New(Sizes{Coils: 10, DiscreteInputs: 10, HoldingRegisters: 10, InputRegisters: 10})

	tests := []struct {
		name    string
		start   uint16
		qty     uint16
		wantErr bool
	}{
		{"full span", 0, 10, false},
		{"tail", 9, 1, false},
		{"one past end", 9, 2, true},
		{"start at end", 10, 1, true},
		{"far out", 5000, 1, true},
		{"sum wraps 16 bits", 0xFFFF, 2, true},
		{"max start max qty", 0xFFFF, 0xFFFF, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ReadBits(Coils, tt.start, tt.qty)
			if tt.wantErr && !errors.Is(err, ErrOutOfRange) {
				t.Errorf("ReadBits(%d, %d): expected ErrOutOfRange, got %v", tt.start, tt.qty, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ReadBits(%d, %d): unexpected error %v", tt.start, tt.qty, err)
			}

			_, err = s.ReadWords(InputRegisters, tt.start, tt.qty)
			if tt.wantErr && !errors.Is(err, ErrOutOfRange) {
				t.Errorf("ReadWords(%d, %d): expected ErrOutOfRange, got %v", tt.start, tt.qty, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ReadWords(%d, %d): unexpected error %v", tt.start, tt.qty, err)
			}
		})
	}
}

func TestReadExactQuantity(t *testing.T) {
	s := New(Sizes{HoldingRegisters: 50})

	words, err := s.ReadWords(HoldingRegisters, 20, 7)
	if err != nil {
		t.Fatalf("ReadWords failed: %v", err)
	}
	if len(words) != 7 {
		t.Fatalf("expected 7 values, got %d", len(words))
	}
	for i, v := range words {
		if v != uint16(20+i) {
			t.Errorf("words[%d]: expected %d, got %d", i, 20+i, v)
		}
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	s := New(Sizes{Coils: 10, HoldingRegisters: 10})

	for addr := uint16(0); addr < 10; addr++ {
		if err := s.WriteBit(Coils, addr, true); err != nil {
			t.Fatalf("WriteBit(%d) failed: %v", addr, err)
		}
		bits, err := s.ReadBits(Coils, addr, 1)
		if err != nil {
			t.Fatalf("ReadBits(%d) failed: %v", addr, err)
		}
		if !bits[0] {
			t.Errorf("coil %d: expected true after write", addr)
		}

		want := addr*100 + 7
		if err := s.WriteWord(HoldingRegisters, addr, want); err != nil {
			t.Fatalf("WriteWord(%d) failed: %v", addr, err)
		}
		words, err := s.ReadWords(HoldingRegisters, addr, 1)
		if err != nil {
			t.Fatalf("ReadWords(%d) failed: %v", addr, err)
		}
		if words[0] != want {
			t.Errorf("register %d: expected %d, got %d", addr, want, words[0])
		}
	}
}

func TestWriteMany(t *testing.T) {
	s := New(Sizes{Coils: 10, HoldingRegisters: 10})

	if err := s.WriteBits(Coils, 1, []bool{true, false, true}); err != nil {
		t.Fatalf("WriteBits failed: %v", err)
	}
	bits, err := s.ReadBits(Coils, 1, 3)
	if err != nil {
		t.Fatalf("ReadBits failed: %v", err)
	}
	for i, want := range []bool{true, false, true} {
		if bits[i] != want {
			t.Errorf("coil %d: expected %v, got %v", 1+i, want, bits[i])
		}
	}

	if err := s.WriteWords(HoldingRegisters, 4, []uint16{1111, 2222, 3333}); err != nil {
		t.Fatalf("WriteWords failed: %v", err)
	}
	words, err := s.ReadWords(HoldingRegisters, 4, 3)
	if err != nil {
		t.Fatalf("ReadWords failed: %v", err)
	}
	for i, want := range []uint16{1111, 2222, 3333} {
		if words[i] != want {
			t.Errorf("register %d: expected %d, got %d", 4+i, want, words[i])
		}
	}
}

func TestWriteBounds(t *testing.T) {
	s := New(Sizes{Coils: 5, HoldingRegisters: 5})

	if err := s.WriteBits(Coils, 3, []bool{true, true, true}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := s.WriteWords(HoldingRegisters, 0xFFFF, []uint16{1, 2}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange on 16-bit overflow, got %v", err)
	}

	// A rejected write must leave the store untouched.
	bits, err := s.ReadBits(Coils, 0, 5)
	if err != nil {
		t.Fatalf("ReadBits failed: %v", err)
	}
	for i, v := range bits {
		if v {
			t.Errorf("coil %d: modified by rejected write", i)
		}
	}
}

func TestReadOnlySpaces(t *testing.T) {
	s := New(Sizes{DiscreteInputs: 10, InputRegisters: 10})

	if err := s.WriteBit(DiscreteInputs, 0, true); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly for discrete inputs, got %v", err)
	}
	if err := s.WriteWord(InputRegisters, 0, 99); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly for input registers, got %v", err)
	}

	// Direct seeding bypasses the guard.
	if err := s.SetBit(DiscreteInputs, 3, true); err != nil {
		t.Fatalf("SetBit failed: %v", err)
	}
	if err := s.SetWord(InputRegisters, 3, 500); err != nil {
		t.Fatalf("SetWord failed: %v", err)
	}

	bits, err := s.ReadBits(DiscreteInputs, 3, 1)
	if err != nil {
		t.Fatalf("ReadBits failed: %v", err)
	}
	if !bits[0] {
		t.Error("discrete input 3: expected true after SetBit")
	}
	words, err := s.ReadWords(InputRegisters, 3, 1)
	if err != nil {
		t.Fatalf("ReadWords failed: %v", err)
	}
	if words[0] != 500 {
		t.Errorf("input register 3: expected 500, got %d", words[0])
	}
}

func TestWrongKind(t *testing.T) {
	s := New(Sizes{Coils: 10, HoldingRegisters: 10})

	if _, err := s.ReadBits(HoldingRegisters, 0, 1); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	if _, err := s.ReadWords(Coils, 0, 1); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	if err := s.WriteBits(InputRegisters, 0, []bool{true}); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(Sizes{Coils: 100, HoldingRegisters: 100})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				addr := uint16((g*200 + i) % 100)
				if g%2 == 0 {
					s.WriteWord(HoldingRegisters, addr, uint16(i))
				} else {
					s.ReadWords(HoldingRegisters, addr, 1)
					s.ReadBits(Coils, addr, 1)
				}
			}
		}(g)
	}
	wg.Wait()
}
