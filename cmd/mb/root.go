package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wkrettek/mb-cli/internal/client"
)

var (
	cfgFile string

	// Connection flags
	ip       string
	port     uint16
	device   string
	baud     uint
	parity   string
	stopBits uint
	dataBits uint
	unitID   uint8
	timeout  time.Duration

	// Output flags
	outputFmt string
	verbose   bool
	noColor   bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mb",
	Short: "A Modbus TCP and RTU command-line client and server",
	Long: `mb talks Modbus over TCP or serial RTU from the command line, and can
also run as a Modbus server backed by an in-memory register map.

Pick exactly one transport per invocation: --ip for Modbus TCP or
--device for serial RTU.

Examples:
  # Read 10 holding registers from a TCP device
  mb read holding-registers -a 0 -q 10 --ip 192.168.1.100

  # Read coils over RTU
  mb read coils -a 0 -q 8 --device /dev/ttyUSB0 --baud 19200

  # Write a register
  mb write register -a 100 -V 0x1234 --ip 192.168.1.100

  # Run a Modbus TCP server on port 1502
  mb server --bind 0.0.0.0:1502`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.mb.yaml)")

	// Connection flags
	rootCmd.PersistentFlags().StringVar(&ip, "ip", "", "IP address of a Modbus TCP device")
	rootCmd.PersistentFlags().Uint16VarP(&port, "port", "p", 502, "Modbus TCP port")
	rootCmd.PersistentFlags().StringVar(&device, "device", "", "Serial device of a Modbus RTU device (e.g. /dev/ttyUSB0)")
	rootCmd.PersistentFlags().UintVar(&baud, "baud", 9600, "Serial baud rate")
	rootCmd.PersistentFlags().StringVar(&parity, "parity", "none", "Serial parity: none, even, odd")
	rootCmd.PersistentFlags().UintVar(&stopBits, "stop-bits", 1, "Serial stop bits: 1, 2")
	rootCmd.PersistentFlags().UintVar(&dataBits, "data-bits", 8, "Serial data bits: 5, 6, 7, 8")
	rootCmd.PersistentFlags().Uint8VarP(&unitID, "unit", "u", 0, "Modbus unit ID")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "Connection and operation timeout")

	// Output flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, csv, raw")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")

	// Bind to viper
	viper.BindPFlag("ip", rootCmd.PersistentFlags().Lookup("ip"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	viper.BindPFlag("parity", rootCmd.PersistentFlags().Lookup("parity"))
	viper.BindPFlag("unit", rootCmd.PersistentFlags().Lookup("unit"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	// Add commands
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serverCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".mb")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// validateSerialFlags rejects serial line settings the protocol cannot use.
func validateSerialFlags() error {
	switch parity {
	case "none", "even", "odd":
	default:
		return fmt.Errorf("invalid parity %q: must be none, even or odd", parity)
	}
	if stopBits != 1 && stopBits != 2 {
		return fmt.Errorf("invalid stop bits %d: must be 1 or 2", stopBits)
	}
	if dataBits < 5 || dataBits > 8 {
		return fmt.Errorf("invalid data bits %d: must be 5, 6, 7 or 8", dataBits)
	}
	return nil
}

func clientConfig() (client.Config, error) {
	if err := validateSerialFlags(); err != nil {
		return client.Config{}, err
	}
	return client.Config{
		IP:       viper.GetString("ip"),
		Port:     port,
		Device:   viper.GetString("device"),
		Baud:     viper.GetUint("baud"),
		DataBits: dataBits,
		StopBits: stopBits,
		Parity:   viper.GetString("parity"),
		UnitID:   unitID,
		Timeout:  viper.GetDuration("timeout"),
		Logger:   logger,
	}, nil
}

func connectClient() (*client.Client, error) {
	cfg, err := clientConfig()
	if err != nil {
		return nil, err
	}
	c, err := client.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return c, nil
}
