// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Display a recorded exchange trace in human-readable format",
	Long: `Decode a trace file written with --trace and print every exchange.

Each line shows the time, the direction (TX, RX, FLUSH, OPEN, CLOSE) and the
decoded opcode or start frame.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	return printTrace(rig.NewTraceReader(f), cmd.OutOrStdout())
}

func printTrace(r *rig.TraceReader, w io.Writer) error {
	count := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", count+1, err)
		}
		fmt.Fprintln(w, rig.FormatTraceRecord(rec))
		count++
	}
	fmt.Fprintf(w, "\n%d records\n", count)
	return nil
}
