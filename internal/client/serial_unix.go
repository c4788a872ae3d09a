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

//go:build linux || darwin

package client

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// dropExclusive clears the exclusive-use flag on a serial device so other
// processes can still open it, which virtual serial ports used in testing
// rely on. It is best effort: any failure is logged as a warning and never
// fails the connection.
func dropExclusive(device string, logger *slog.Logger) {
	f, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		logger.Warn("could not reopen serial device to drop exclusive lock",
			slog.String("device", device), slog.String("error", err.Error()))
		return
	}
	defer f.Close()

	if err := unix.IoctlSetInt(int(f.Fd()), unix.TIOCNXCL, 0); err != nil {
		logger.Warn("could not drop exclusive lock on serial device",
			slog.String("device", device), slog.String("error", err.Error()))
	}
}
