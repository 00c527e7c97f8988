package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/codecanvas/bootstrap"
	"pkt.systems/pslog"
)

func newBootstrapCmd() *cobra.Command {
	var configPath string
	var envPath string
	var overwrite bool
	var sets []string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Generate a default config, .env template and SSH host key",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			overrides := make([]bootstrap.ConfigOverride, 0, len(sets))
			for _, raw := range sets {
				override, err := bootstrap.ParseOverride(raw)
				if err != nil {
					return err
				}
				overrides = append(overrides, override)
			}
			paths, err := bootstrap.Write(bootstrap.Options{
				ConfigPath: configPath,
				EnvPath:    envPath,
				Overwrite:  overwrite,
				Overrides:  overrides,
			})
			if err != nil {
				return err
			}
			logger.Info("bootstrap wrote", "path", paths.ConfigPath, "name", "config.yaml")
			if paths.EnvPath != "" {
				logger.Info("bootstrap wrote", "path", paths.EnvPath, "name", ".env")
			}
			if paths.HostKeyPath != "" {
				logger.Info("bootstrap host key", "path", paths.HostKeyPath, "created", paths.HostKeyCreated)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file to write (default ~/.codecanvas/config.yaml)")
	cmd.Flags().StringVar(&envPath, "env", "", "also write a commented .env template to this path")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite existing files")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a config value, e.g. --set http.addr=0.0.0.0:27480")
	return cmd
}
