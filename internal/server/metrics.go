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
	"log/slog"
	"sync/atomic"
)

// Counter is a simple atomic counter.
type Counter struct {
	value int64
}

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Reset resets the counter to zero.
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.value, 0)
}

// Metrics counts the requests a server handled. Counters only grow while the
// server runs; they are logged once at shutdown.
type Metrics struct {
	RequestsTotal  Counter
	RequestsErrors Counter
	Reads          Counter
	Writes         Counter
}

// Attrs returns the counters as slog attributes.
func (m *Metrics) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.Int64("requests_total", m.RequestsTotal.Value()),
		slog.Int64("requests_errors", m.RequestsErrors.Value()),
		slog.Int64("reads", m.Reads.Value()),
		slog.Int64("writes", m.Writes.Value()),
	}
}
