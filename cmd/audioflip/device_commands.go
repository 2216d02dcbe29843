package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"audioflip/internal/api"
	"audioflip/internal/ipc"
	"audioflip/internal/switcher"
)

func newDeviceCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newListCommand(ctx),
		newToggleCommand(ctx),
		newNextCommand(ctx),
		newRotationCommand(ctx),
		newHistoryCommand(ctx),
		newWatchCommand(ctx),
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List audio output devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListDevices()
				return reportDevices(cmd, resp, err, asJSON, "")
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newToggleCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "toggle <id|name>",
		Aliases: []string{"switch"},
		Short:   "Make a device the default output",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				device, err := resolveDevice(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.ToggleDevice(device.ID)
				return reportDevices(cmd, resp, err, asJSON, "Default output: ")
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "next",
		Aliases: []string{"cycle"},
		Short:   "Switch to the next device in the rotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cycle()
				if err == nil && !resp.Switched && !asJSON {
					fmt.Fprintln(cmd.OutOrStdout(), "Fewer than two devices in rotation; nothing to cycle")
				}
				return reportDevices(cmd, resp, err, asJSON, "Default output: ")
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRotationCommand(ctx *commandContext) *cobra.Command {
	rotationCmd := &cobra.Command{
		Use:   "rotation",
		Short: "Choose which devices `audioflip next` cycles through",
	}
	for _, include := range []bool{true, false} {
		var asJSON bool
		use, short := "include <id|name>", "Add a device to the rotation"
		if !include {
			use, short = "exclude <id|name>", "Remove a device from the rotation"
		}
		sub := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withClient(func(client *ipc.Client) error {
					device, err := resolveDevice(client, args[0])
					if err != nil {
						return err
					}
					resp, err := client.SetRotation(device.ID, include)
					return reportDevices(cmd, resp, err, asJSON, "")
				})
			},
		}
		sub.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
		rotationCmd.AddCommand(sub)
	}
	return rotationCmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent switch attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No switches recorded")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"Started", "Outcome", "Requested", "Result", "Origin", "Took"},
					buildHistoryRows(resp.Entries),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var once bool
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream device hot-plug events",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return ctx.withClient(func(client *ipc.Client) error {
				return watchEvents(runCtx, cmd, client, wait, once, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output events as JSON lines")
	cmd.Flags().BoolVar(&once, "once", false, "Print buffered events and exit")
	cmd.Flags().DurationVar(&wait, "wait", 20*time.Second, "Long-poll interval")
	return cmd
}

func watchEvents(ctx context.Context, cmd *cobra.Command, client *ipc.Client, wait time.Duration, once, asJSON bool) error {
	out := cmd.OutOrStdout()
	// Closing the client unblocks a pending long poll on interrupt.
	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()
	var since uint64
	printed := 0
	for {
		req := ipc.EventsRequest{Since: since, WaitMillis: int(wait / time.Millisecond)}
		if once {
			req.WaitMillis = 0
		}
		resp, err := client.Events(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, evt := range resp.Events {
			printed++
			if asJSON {
				if err := writeEventLine(out, evt); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(out, formatEvent(evt))
		}
		since = resp.Next
		if once {
			if printed == 0 && !asJSON {
				fmt.Fprintln(out, "No device events")
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func formatEvent(evt api.DeviceEvent) string {
	line := fmt.Sprintf("%s  %-6s  %s", evt.Timestamp, evt.Action, evt.Device)
	if evt.Model != "" {
		line += "  (" + evt.Model + ")"
	}
	return line
}

// resolveDevice maps a user-supplied id or name onto a device in the current
// snapshot.
func resolveDevice(client *ipc.Client, query string) (switcher.Device, error) {
	resp, err := client.ListDevices()
	if err != nil {
		return switcher.Device{}, err
	}
	device, err := switcher.Resolve(ipc.Snapshot(resp), query)
	if errors.Is(err, switcher.ErrNotFound) {
		return switcher.Device{}, fmt.Errorf("%w (run `audioflip list` to see device ids)", err)
	}
	return device, err
}

// reportDevices prints a device response. The error is returned unchanged so
// the exit code reflects it; any snapshot that came with the failure is still
// shown.
func reportDevices(cmd *cobra.Command, resp *ipc.DevicesResponse, err error, asJSON bool, prefix string) error {
	if resp == nil {
		return err
	}
	if asJSON {
		if encErr := writeJSON(cmd, resp); encErr != nil {
			return encErr
		}
		return err
	}
	out := cmd.OutOrStdout()
	if len(resp.Devices) > 0 {
		fmt.Fprint(out, renderDeviceTable(resp.Devices))
	}
	if err == nil && prefix != "" {
		fmt.Fprintln(out, prefix+currentName(resp.Devices))
	}
	return err
}

func renderDeviceTable(devices []api.Device) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		marker := ""
		if d.IsCurrent {
			marker = "*"
		}
		rows = append(rows, []string{marker, d.Name, d.ID, yesNo(d.Enabled), yesNo(d.InRotation)})
	}
	return renderTable(
		[]string{"", "Name", "ID", "Enabled", "Rotation"},
		rows,
		[]columnAlignment{alignCenter, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func currentName(devices []api.Device) string {
	for _, d := range devices {
		if d.IsCurrent {
			return d.Name
		}
	}
	return "unknown"
}

func buildHistoryRows(entries []api.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		requested := e.RequestedName
		if requested == "" {
			requested = e.RequestedID
		}
		result := e.ResultID
		if e.ErrorKind != "" {
			result = e.ErrorKind
		}
		rows = append(rows, []string{
			e.StartedAt,
			e.Outcome,
			requested,
			result,
			e.Origin,
			strconv.FormatInt(e.DurationMs, 10) + "ms",
		})
	}
	return rows
}

