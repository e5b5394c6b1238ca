/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pgedge-hybrid-search/internal/toon"
)

var (
	toonStrict    bool
	toonIndent    int
	toonDelimiter string
)

var toonCmd = &cobra.Command{
	Use:   "toon",
	Short: "Convert between JSON and TOON notation",
	Long: `toon converts between JSON and Token-Oriented Object Notation, the
compact indentation-based format used to hand query results to LLMs
with less punctuation overhead than JSON.`,
}

var toonEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Read JSON on stdin and write TOON on stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		var value any
		if err := json.Unmarshal(input, &value); err != nil {
			return fmt.Errorf("invalid JSON input: %w", err)
		}

		out, err := toon.Encode(value, toonOptions())
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var toonDecodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Read TOON on stdin and write JSON on stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		value, err := toon.Decode(string(input), toonOptions())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func toonOptions() *toon.Options {
	return &toon.Options{
		Indent:    toonIndent,
		Delimiter: toonDelimiter,
		Strict:    toonStrict,
	}
}

func init() {
	toonCmd.PersistentFlags().BoolVar(&toonStrict, "strict", false,
		"Fail on declared-count mismatches and unknown escapes")
	toonCmd.PersistentFlags().IntVar(&toonIndent, "indent", 2, "Spaces per nesting level")
	toonCmd.PersistentFlags().StringVar(&toonDelimiter, "delimiter", ",", "Inline value delimiter")

	toonCmd.AddCommand(toonEncodeCmd, toonDecodeCmd)
}
