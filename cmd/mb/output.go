package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func color(c, s string) string {
	if noColor {
		return s
	}
	return c + s + colorReset
}

func outputSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(color(colorGreen, "OK") + " " + msg)
}

func outputError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, color(colorRed, "ERROR")+" "+msg)
}

func outputWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, color(colorYellow, "WARN")+" "+msg)
}

func outputInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(color(colorCyan, "INFO") + " " + msg)
}

type BoolResult struct {
	Address uint16 `json:"address"`
	Value   bool   `json:"value"`
}

type RegisterResult struct {
	Address uint16 `json:"address"`
	Value   uint16 `json:"value"`
	Hex     string `json:"hex"`
}

func outputBoolValues(title string, startAddr uint16, values []bool) error {
	switch outputFmt {
	case "json":
		return outputBoolJSON(startAddr, values)
	case "csv":
		return outputBoolCSV(startAddr, values)
	case "raw":
		return outputBoolRaw(values)
	default:
		return outputBoolTable(title, startAddr, values)
	}
}

func outputBoolTable(title string, startAddr uint16, values []bool) error {
	fmt.Printf("\n%s (Address %d-%d, Count: %d)\n",
		color(colorBold, title),
		startAddr,
		startAddr+uint16(len(values))-1,
		len(values))
	fmt.Println(strings.Repeat("-", 40))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tVALUE\tSTATUS")
	fmt.Fprintln(w, "-------\t-----\t------")

	for i, v := range values {
		addr := startAddr + uint16(i)
		var valStr, statusStr string
		if v {
			valStr = "1"
			statusStr = color(colorGreen, "ON")
		} else {
			valStr = "0"
			statusStr = color(colorRed, "OFF")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", addr, valStr, statusStr)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func outputBoolJSON(startAddr uint16, values []bool) error {
	results := make([]BoolResult, len(values))
	for i, v := range values {
		results[i] = BoolResult{
			Address: startAddr + uint16(i),
			Value:   v,
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func outputBoolCSV(startAddr uint16, values []bool) error {
	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"address", "value"})
	for i, v := range values {
		addr := strconv.Itoa(int(startAddr) + i)
		val := "0"
		if v {
			val = "1"
		}
		w.Write([]string{addr, val})
	}
	w.Flush()
	return w.Error()
}

func outputBoolRaw(values []bool) error {
	for _, v := range values {
		if v {
			fmt.Print("1")
		} else {
			fmt.Print("0")
		}
	}
	fmt.Println()
	return nil
}

func outputRegisterValues(title string, startAddr uint16, values []uint16) error {
	switch outputFmt {
	case "json":
		return outputRegisterJSON(startAddr, values)
	case "csv":
		return outputRegisterCSV(startAddr, values)
	case "raw":
		return outputRegisterRaw(values)
	default:
		return outputRegisterTable(title, startAddr, values)
	}
}

func outputRegisterTable(title string, startAddr uint16, values []uint16) error {
	fmt.Printf("\n%s (Address %d-%d, Count: %d)\n",
		color(colorBold, title),
		startAddr,
		startAddr+uint16(len(values))-1,
		len(values))
	fmt.Println(strings.Repeat("-", 50))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tDECIMAL\tHEX\tBINARY")
	fmt.Fprintln(w, "-------\t-------\t---\t------")
	for i, v := range values {
		addr := startAddr + uint16(i)
		fmt.Fprintf(w, "%d\t%d\t0x%04X\t%016b\n", addr, v, v, v)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func outputRegisterJSON(startAddr uint16, values []uint16) error {
	results := make([]RegisterResult, len(values))
	for i, v := range values {
		results[i] = RegisterResult{
			Address: startAddr + uint16(i),
			Value:   v,
			Hex:     fmt.Sprintf("0x%04X", v),
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func outputRegisterCSV(startAddr uint16, values []uint16) error {
	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"address", "value", "hex"})
	for i, v := range values {
		addr := strconv.Itoa(int(startAddr) + i)
		w.Write([]string{addr, strconv.Itoa(int(v)), fmt.Sprintf("0x%04X", v)})
	}
	w.Flush()
	return w.Error()
}

func outputRegisterRaw(values []uint16) error {
	for _, v := range values {
		fmt.Printf("%d\n", v)
	}
	return nil
}
