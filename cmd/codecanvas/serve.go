package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/codecanvas"
	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/httpapi"
	"pkt.systems/codecanvas/internal/appconfig"
	"pkt.systems/codecanvas/schema"
	"pkt.systems/codecanvas/sshserver"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	var noSSH bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the playground servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			if noSSH {
				cfg.SSH.Enabled = false
			}

			opts := []codecanvas.ServerOption{codecanvas.WithHTTP()}
			if cfg.SSH.Enabled {
				opts = append(opts, codecanvas.WithSSH())
			}
			server, err := codecanvas.New(toServerConfig(cfg), codecanvas.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
			}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	cmd.Flags().BoolVar(&noSSH, "no-ssh", false, "do not start the SSH terminal")
	return cmd
}

func toServerConfig(cfg appconfig.Config) codecanvas.ServerConfig {
	return codecanvas.ServerConfig{
		Service:    cfg.ServiceConfig(),
		HTTP:       toHTTPConfig(cfg.HTTP),
		SSH:        toSSHConfig(cfg.SSH, cfg.HTTP.InitialTerminalLines),
		HubHistory: cfg.HTTP.HubHistory,
		Submit: codecanvas.SubmitConfig{
			NATSURL:     cfg.Submit.NATSURL,
			NATSSubject: cfg.Submit.NATSSubject,
		},
		DisableAuditLogging: cfg.Logging.DisableAuditTrails,
	}
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:                 cfg.Addr,
		SessionCookie:        cfg.SessionCookie,
		SessionTTLHours:      cfg.SessionTTLHours,
		BasePath:             cfg.BasePath,
		InitialTerminalLines: cfg.InitialTerminalLines,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig, initialLines int) sshserver.Config {
	return sshserver.Config{
		Addr:         cfg.Addr,
		HostKeyPath:  cfg.HostKeyPath,
		Prompt:       schema.PromptPrefix,
		InitialLines: initialLines,
		AllowAttach:  cfg.AllowAttach,
	}
}
