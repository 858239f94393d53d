/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/statwatch/apisched/internal/libinfo"
	"github.com/statwatch/apisched/log"
	"github.com/statwatch/apisched/service"
)

const flagConfig = "config"

const redactedValue = "<redacted>"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apisched",
		Short: "Adaptive rate-limited scheduler for third-party API requests",
		Long: `apisched dispatches requests to a rate-limited provider API in priority order,
keeping the outbound rate within a short and a long sliding window and backing off
when the provider responds with throttling errors.`,
		Version:      libinfo.GetVersion(),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP(flagConfig, "c", "", "Configuration file path (YAML or JSON)")
	rootCmd.AddCommand(newRunCommand(), newConfigCommand())
	return rootCmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler, the poller and the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			logger, closeLogger := log.NewLogger(cfg.Log)
			defer closeLogger()

			unit, err := newAppUnit(cfg, logger)
			if err != nil {
				logger.Error("failed to initialize application", log.Error(err))
				return err
			}
			return service.New(logger, unit).StartContext(cmd.Context())
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			if cfg.HTTPClient.Auth.Token != "" {
				cfg.HTTPClient.Auth.Token = redactedValue
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err = enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

func loadConfigFromFlags(cmd *cobra.Command) (*AppConfig, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadAppConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
