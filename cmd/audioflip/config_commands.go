package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"audioflip/internal/audio/backends"
	"audioflip/internal/config"
	"audioflip/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath, backend string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target, backend); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			if strings.TrimSpace(backend) == "" {
				fmt.Fprintln(out, "Pass --backend pactl if the native PulseAudio protocol is unavailable.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().StringVar(&backend, "backend", "", "Audio backend to preselect (pulse, pactl, memory)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// initTarget resolves --path, defaulting to the XDG config location.
func initTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration and show resolved settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source += " (absent; defaults used)"
			}
			fmt.Fprint(out, renderTable([]string{"Setting", "Value"}, resolvedSettings(cfg, source), nil))

			if probe {
				backend, err := backends.New(cfg)
				if err != nil {
					return err
				}
				result := preflight.CheckAudioServer(cmd.Context(), backend)
				if !result.Passed {
					return fmt.Errorf("%s: %s", result.Name, result.Detail)
				}
				fmt.Fprintf(out, "%s: %s\n", result.Name, result.Detail)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Also enumerate devices through the configured backend")
	return cmd
}

func resolvedSettings(cfg *config.Config, source string) [][]string {
	rows := [][]string{
		{"Config", source},
		{"Audio backend", cfg.Audio.Backend},
		{"State dir", cfg.Paths.StateDir},
		{"Log dir", cfg.Paths.LogDir},
		{"Socket", cfg.Paths.SocketPath},
		{"System lock", yesNo(cfg.Switching.SystemLock)},
		{"Hot-plug", yesNo(cfg.Hotplug.Enabled)},
	}
	if cfg.Audio.Backend == config.BackendPulse && cfg.Audio.PulseServer != "" {
		rows = append(rows, []string{"Pulse server", cfg.Audio.PulseServer})
	}
	if cfg.API.Bind != "" {
		rows = append(rows, []string{"HTTP API", cfg.API.Bind})
	}
	return rows
}
