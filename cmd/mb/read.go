package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Quantity limits from the Modbus application protocol: FC 01/02 carry at
// most 2000 bits per request, FC 03/04 at most 125 registers.
const (
	maxBitQuantity  = 2000
	maxWordQuantity = 125
)

var (
	readAddr uint16
	readQty  uint16
)

var readCmd = &cobra.Command{
	Use:     "read",
	Aliases: []string{"r"},
	Short:   "Read data from a Modbus device",
	Long:    `Read coils, discrete inputs, holding registers, or input registers from a Modbus device.`,
}

// Read coils (FC01)
var readCoilsCmd = &cobra.Command{
	Use:     "coils",
	Aliases: []string{"c", "coil"},
	Short:   "Read coils (FC01)",
	Long:    `Read coils (discrete outputs) from the Modbus device using function code 01.`,
	Example: `  mb read coils -a 0 -q 10 --ip 192.168.1.100
  mb r c -a 100 -q 8 --device /dev/ttyUSB0`,
	RunE: runReadCoils,
}

// Read discrete inputs (FC02)
var readDiscreteInputsCmd = &cobra.Command{
	Use:     "discrete-inputs",
	Aliases: []string{"di", "discrete"},
	Short:   "Read discrete inputs (FC02)",
	Long:    `Read discrete inputs from the Modbus device using function code 02.`,
	Example: `  mb read discrete-inputs -a 0 -q 10 --ip 192.168.1.100
  mb r di -a 100 -q 8`,
	RunE: runReadDiscreteInputs,
}

// Read holding registers (FC03)
var readHoldingRegistersCmd = &cobra.Command{
	Use:     "holding-registers",
	Aliases: []string{"hr", "holding"},
	Short:   "Read holding registers (FC03)",
	Long:    `Read holding registers from the Modbus device using function code 03.`,
	Example: `  mb read holding-registers -a 0 -q 10 --ip 192.168.1.100
  mb r hr -a 100 -q 4`,
	RunE: runReadHoldingRegisters,
}

// Read input registers (FC04)
var readInputRegistersCmd = &cobra.Command{
	Use:     "input-registers",
	Aliases: []string{"ir", "input"},
	Short:   "Read input registers (FC04)",
	Long:    `Read input registers from the Modbus device using function code 04.`,
	Example: `  mb read input-registers -a 0 -q 10 --ip 192.168.1.100
  mb r ir -a 100 -q 4`,
	RunE: runReadInputRegisters,
}

func init() {
	// Add subcommands
	readCmd.AddCommand(readCoilsCmd)
	readCmd.AddCommand(readDiscreteInputsCmd)
	readCmd.AddCommand(readHoldingRegistersCmd)
	readCmd.AddCommand(readInputRegistersCmd)

	// Common flags for all read commands
	for _, cmd := range []*cobra.Command{readCoilsCmd, readDiscreteInputsCmd, readHoldingRegistersCmd, readInputRegistersCmd} {
		cmd.Flags().Uint16VarP(&readAddr, "address", "a", 0, "Starting address")
		cmd.Flags().Uint16VarP(&readQty, "quantity", "q", 1, "Number of items to read")
	}
}

// validateQuantity enforces the protocol's per-request limit before any I/O.
func validateQuantity(qty, max uint16) error {
	if qty < 1 || qty > max {
		return fmt.Errorf("invalid quantity %d: must be between 1 and %d", qty, max)
	}
	return nil
}

func runReadCoils(cmd *cobra.Command, args []string) error {
	if err := validateQuantity(readQty, maxBitQuantity); err != nil {
		return err
	}

	c, err := connectClient()
	if err != nil {
		return err
	}
	defer c.Close()

	values, err := c.ReadCoils(readAddr, readQty)
	if err != nil {
		return fmt.Errorf("read coils failed: %w", err)
	}

	return outputBoolValues("Coils", readAddr, values)
}

func runReadDiscreteInputs(cmd *cobra.Command, args []string) error {
	if err := validateQuantity(readQty, maxBitQuantity); err != nil {
		return err
	}

	c, err := connectClient()
	if err != nil {
		return err
	}
	defer c.Close()

	values, err := c.ReadDiscreteInputs(readAddr, readQty)
	if err != nil {
		return fmt.Errorf("read discrete inputs failed: %w", err)
	}

	return outputBoolValues("Discrete Inputs", readAddr, values)
}

func runReadHoldingRegisters(cmd *cobra.Command, args []string) error {
	if err := validateQuantity(readQty, maxWordQuantity); err != nil {
		return err
	}

	c, err := connectClient()
	if err != nil {
		return err
	}
	defer c.Close()

	values, err := c.ReadHoldingRegisters(readAddr, readQty)
	if err != nil {
		return fmt.Errorf("read holding registers failed: %w", err)
	}

	return outputRegisterValues("Holding Registers", readAddr, values)
}

func runReadInputRegisters(cmd *cobra.Command, args []string) error {
	if err := validateQuantity(readQty, maxWordQuantity); err != nil {
		return err
	}

	c, err := connectClient()
	if err != nil {
		return err
	}
	defer c.Close()

	values, err := c.ReadInputRegisters(readAddr, readQty)
	if err != nil {
		return fmt.Errorf("read input registers failed: %w", err)
	}

	return outputRegisterValues("Input Registers", readAddr, values)
}
