package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wkrettek/mb-cli/internal/client"
)

var (
	watchInterval  time.Duration
	watchCount     int
	watchShowDiff  bool
	watchClearTerm bool
	watchTimestamp bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously poll Modbus values",
	Long: `Poll registers or coils at a fixed interval and display each sample.

Polling stops after --iterations samples, or on interrupt. Read errors are
counted and reported in the summary; the loop keeps going.`,
	Example: `  # Poll 5 holding registers every second
  mb watch hr -a 0 -q 5 -i 1s --ip 192.168.1.100

  # Poll coils with change highlighting, 20 samples
  mb watch c -a 0 -q 8 -i 500ms -n 20 --diff`,
}

var watchHoldingRegistersCmd = &cobra.Command{
	Use:     "holding-registers",
	Aliases: []string{"hr", "holding"},
	Short:   "Poll holding registers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchWords("Holding Registers", func(c *client.Client) ([]uint16, error) {
			return c.ReadHoldingRegisters(readAddr, readQty)
		})
	},
}

var watchInputRegistersCmd = &cobra.Command{
	Use:     "input-registers",
	Aliases: []string{"ir", "input"},
	Short:   "Poll input registers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchWords("Input Registers", func(c *client.Client) ([]uint16, error) {
			return c.ReadInputRegisters(readAddr, readQty)
		})
	},
}

var watchCoilsCmd = &cobra.Command{
	Use:     "coils",
	Aliases: []string{"c", "coil"},
	Short:   "Poll coils",
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchBits("Coils", func(c *client.Client) ([]bool, error) {
			return c.ReadCoils(readAddr, readQty)
		})
	},
}

var watchDiscreteInputsCmd = &cobra.Command{
	Use:     "discrete-inputs",
	Aliases: []string{"di", "discrete"},
	Short:   "Poll discrete inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchBits("Discrete Inputs", func(c *client.Client) ([]bool, error) {
			return c.ReadDiscreteInputs(readAddr, readQty)
		})
	},
}

func init() {
	watchCmd.AddCommand(watchHoldingRegistersCmd)
	watchCmd.AddCommand(watchInputRegistersCmd)
	watchCmd.AddCommand(watchCoilsCmd)
	watchCmd.AddCommand(watchDiscreteInputsCmd)

	for _, cmd := range []*cobra.Command{watchHoldingRegistersCmd, watchInputRegistersCmd, watchCoilsCmd, watchDiscreteInputsCmd} {
		cmd.Flags().Uint16VarP(&readAddr, "address", "a", 0, "Starting address")
		cmd.Flags().Uint16VarP(&readQty, "quantity", "q", 1, "Number of items to read")
		cmd.Flags().DurationVarP(&watchInterval, "interval", "i", 1*time.Second, "Poll interval")
		cmd.Flags().IntVarP(&watchCount, "iterations", "n", 0, "Number of iterations (0 = infinite)")
		cmd.Flags().BoolVar(&watchShowDiff, "diff", false, "Highlight changed values")
		cmd.Flags().BoolVar(&watchClearTerm, "clear", true, "Clear terminal between updates")
		cmd.Flags().BoolVar(&watchTimestamp, "timestamp", true, "Show timestamps")
	}
}

type watchStats struct {
	startTime    time.Time
	iteration    int
	successCount int
	errorCount   int
}

func (s *watchStats) printSummary() {
	duration := time.Since(s.startTime)
	fmt.Println()
	fmt.Println(color(colorBold, "Watch Summary"))
	fmt.Println(strings.Repeat("-", 30))
	fmt.Printf("Duration:    %s\n", duration.Round(time.Millisecond))
	fmt.Printf("Iterations:  %d\n", s.iteration)
	fmt.Printf("Success:     %d\n", s.successCount)
	fmt.Printf("Errors:      %d\n", s.errorCount)
}

func watchWords(title string, read func(*client.Client) ([]uint16, error)) error {
	if err := validateQuantity(readQty, maxWordQuantity); err != nil {
		return err
	}

	c, err := connectClient()
	if err != nil {
		return err
	}
	defer c.Close()

	stats := &watchStats{startTime: time.Now()}
	var prev []uint16

	sample := func() {
		stats.iteration++
		values, err := read(c)
		if err != nil {
			stats.errorCount++
			if verbose {
				outputWarning("Read failed: %v", err)
			}
			return
		}
		stats.successCount++

		if watchClearTerm && stats.iteration > 1 {
			fmt.Print("\033[H\033[2J")
		}
		printWatchHeader(title, stats)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ADDR\tVALUE\tHEX\tCHANGE")
		fmt.Fprintln(w, "----\t-----\t---\t------")
		for i, v := range values {
			change := ""
			if watchShowDiff && prev != nil && i < len(prev) {
				diff := int(v) - int(prev[i])
				if diff > 0 {
					change = color(colorGreen, fmt.Sprintf("+%d", diff))
				} else if diff < 0 {
					change = color(colorRed, fmt.Sprintf("%d", diff))
				}
			}
			fmt.Fprintf(w, "%d\t%d\t0x%04X\t%s\n", readAddr+uint16(i), v, v, change)
		}
		w.Flush()
		prev = values
	}

	return watchLoop(stats, sample)
}

func watchBits(title string, read func(*client.Client) ([]bool, error)) error {
	if err := validateQuantity(readQty, maxBitQuantity); err != nil {
		return err
	}

	c, err := connectClient()
	if err != nil {
		return err
	}
	defer c.Close()

	stats := &watchStats{startTime: time.Now()}
	var prev []bool

	sample := func() {
		stats.iteration++
		values, err := read(c)
		if err != nil {
			stats.errorCount++
			if verbose {
				outputWarning("Read failed: %v", err)
			}
			return
		}
		stats.successCount++

		if watchClearTerm && stats.iteration > 1 {
			fmt.Print("\033[H\033[2J")
		}
		printWatchHeader(title, stats)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ADDR\tVALUE\tSTATUS\tCHANGE")
		fmt.Fprintln(w, "----\t-----\t------\t------")
		for i, v := range values {
			valStr := "0"
			status := color(colorRed, "OFF")
			if v {
				valStr = "1"
				status = color(colorGreen, "ON")
			}
			change := ""
			if watchShowDiff && prev != nil && i < len(prev) && v != prev[i] {
				if v {
					change = color(colorGreen, "->ON")
				} else {
					change = color(colorRed, "->OFF")
				}
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", readAddr+uint16(i), valStr, status, change)
		}
		w.Flush()
		prev = values
	}

	return watchLoop(stats, sample)
}

func printWatchHeader(title string, stats *watchStats) {
	fmt.Printf("%s - Watching %s (Address %d-%d)\n",
		color(colorBold, "MODBUS WATCH"),
		title,
		readAddr,
		readAddr+readQty-1)
	fmt.Printf("Unit: %d | Interval: %s\n", unitID, watchInterval)
	if watchTimestamp {
		fmt.Printf("Time: %s | Iteration: %d", time.Now().Format("15:04:05.000"), stats.iteration)
		if watchCount > 0 {
			fmt.Printf("/%d", watchCount)
		}
		fmt.Println()
	}
	fmt.Println(strings.Repeat("-", 50))
}

func watchLoop(stats *watchStats, sample func()) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	sample()
	if watchCount > 0 && stats.iteration >= watchCount {
		stats.printSummary()
		return nil
	}

	for {
		select {
		case <-sigCh:
			fmt.Println("\n\nStopping watch...")
			stats.printSummary()
			return nil
		case <-ticker.C:
			sample()
			if watchCount > 0 && stats.iteration >= watchCount {
				stats.printSummary()
				return nil
			}
		}
	}
}
