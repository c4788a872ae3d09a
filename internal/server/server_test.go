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
	"testing"
	"time"

	"github.com/wkrettek/mb-cli/internal/store"
)

func TestNewRequiresOneEndpoint(t *testing.T) {
	_, err := New(Config{Logger: discardLogger()})
	if !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}

	_, err = New(Config{
		ListenAddr: "127.0.0.1:502",
		Device:     "/dev/ttyUSB0",
		Logger:     discardLogger(),
	})
	if !errors.Is(err, ErrBothEndpoints) {
		t.Errorf("expected ErrBothEndpoints, got %v", err)
	}

	if _, err = New(Config{ListenAddr: "127.0.0.1:502", Logger: discardLogger()}); err != nil {
		t.Errorf("tcp config rejected: %v", err)
	}
	if _, err = New(Config{Device: "/dev/ttyUSB0", Logger: discardLogger()}); err != nil {
		t.Errorf("rtu config rejected: %v", err)
	}
}

func TestConfigURL(t *testing.T) {
	tcp := Config{ListenAddr: "0.0.0.0:1502"}
	if got := tcp.url(); got != "tcp://0.0.0.0:1502" {
		t.Errorf("unexpected tcp url: %s", got)
	}

	rtu := Config{Device: "/dev/ttyUSB0"}
	if got := rtu.url(); got != "rtu:///dev/ttyUSB0" {
		t.Errorf("unexpected rtu url: %s", got)
	}
}

func TestNewInitializesStore(t *testing.T) {
	srv, err := New(Config{
		ListenAddr: "127.0.0.1:1502",
		Sizes:      store.Sizes{HoldingRegisters: 100},
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	words, err := srv.Store().ReadWords(store.HoldingRegisters, 42, 1)
	if err != nil {
		t.Fatalf("ReadWords failed: %v", err)
	}
	if words[0] != 42 {
		t.Errorf("register 42: expected 42, got %d", words[0])
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, err := New(Config{
		ListenAddr: "127.0.0.1:0",
		Sizes:      store.Sizes{Coils: 10},
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	// Give the listener a moment to come up, then request shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned an error on clean shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
