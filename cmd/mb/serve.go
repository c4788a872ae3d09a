package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wkrettek/mb-cli/internal/client"
	"github.com/wkrettek/mb-cli/internal/server"
	"github.com/wkrettek/mb-cli/internal/store"
)

var (
	serverBind  string
	numCoils    uint16
	numDiscrete uint16
	numHolding  uint16
	numInput    uint16
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve", "s"},
	Short:   "Run a Modbus server",
	Long: `Run a Modbus server backed by an in-memory register map.

The server listens for Modbus TCP on --bind, or serves a single serial RTU
line when --device is given instead. Coils and discrete inputs start off;
holding and input registers start with each register holding its own
address. The server answers requests for any unit ID and runs until
interrupted.`,
	Example: `  mb server --bind 0.0.0.0:1502
  mb server --device /dev/ttyUSB0 --baud 19200 --parity even
  mb server --bind :502 --num-holding 1000`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverBind, "bind", "", "Address to listen on for Modbus TCP (e.g. 0.0.0.0:502)")
	serverCmd.Flags().Uint16Var(&numCoils, "num-coils", 10000, "Number of coils to serve")
	serverCmd.Flags().Uint16Var(&numDiscrete, "num-discrete", 10000, "Number of discrete inputs to serve")
	serverCmd.Flags().Uint16Var(&numHolding, "num-holding", 10000, "Number of holding registers to serve")
	serverCmd.Flags().Uint16Var(&numInput, "num-input", 10000, "Number of input registers to serve")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := validateSerialFlags(); err != nil {
		return err
	}

	dev := viper.GetString("device")
	cfg := server.Config{
		ListenAddr: serverBind,
		Device:     dev,
		Baud:       viper.GetUint("baud"),
		DataBits:   dataBits,
		StopBits:   stopBits,
		Sizes: store.Sizes{
			Coils:            numCoils,
			DiscreteInputs:   numDiscrete,
			HoldingRegisters: numHolding,
			InputRegisters:   numInput,
		},
		Logger: logger,
	}
	if dev != "" {
		par, err := client.Parity(viper.GetString("parity"))
		if err != nil {
			return err
		}
		cfg.Parity = par
	}

	srv, err := server.New(cfg)
	if err != nil {
		if dev == "" && serverBind == "" {
			return fmt.Errorf("either --bind or --device is required: %w", err)
		}
		return err
	}

	if dev != "" {
		outputInfo("Serving Modbus RTU on %s (%d baud)", dev, cfg.Baud)
	} else {
		outputInfo("Serving Modbus TCP on %s", serverBind)
	}
	outputInfo("Register map: %d coils, %d discrete inputs, %d holding registers, %d input registers",
		numCoils, numDiscrete, numHolding, numInput)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
