package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"metalhook/internal/baremetal"
	"metalhook/internal/config"
	"metalhook/internal/monitor"
	"metalhook/internal/notify"
	"metalhook/internal/provisioner"
	"metalhook/internal/server"
)

// Serve returns the serve command, which runs the webhook service until
// interrupted.
func Serve() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the provisioning webhook service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	opts := zap.Options{
		Development: os.Getenv("DEBUG") == "true",
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	log := ctrl.Log.WithName("metalhook")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hosts, err := baremetal.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("connect to cluster: %w", err)
	}

	notifier := notify.New(cfg, log)
	monitors := monitor.NewRegistry(hosts, notifier, log)
	orchestrator := provisioner.New(cfg, hosts, monitors, notifier, log)

	handler := server.NewHandler(cfg, orchestrator, log)
	srv := server.New(cfg, handler, log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting webhook service",
		"version", version,
		"port", cfg.ListenPort,
		"namespace", cfg.Namespace,
		"signatureRequired", cfg.SignatureRequired(),
	)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	// Let in-flight monitors report their outcomes before exiting.
	log.Info("waiting for active monitors to finish")
	monitors.Wait()
	return nil
}
