package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"audioflip/internal/api"
)

// writeJSON prints a command result as indented JSON.
func writeJSON(cmd *cobra.Command, v any) error {
	return encodeJSON(cmd.OutOrStdout(), v, "  ")
}

// writeEventLine prints one hot-plug event per line so `watch --json` can be
// consumed as a stream.
func writeEventLine(w io.Writer, evt api.DeviceEvent) error {
	return encodeJSON(w, evt, "")
}

func encodeJSON(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}
