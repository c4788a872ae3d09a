// Package main provides the mb Modbus TCP/RTU client and server CLI.
package main

import (
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
