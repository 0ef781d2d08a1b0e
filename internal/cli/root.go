// Package cli implements the commandgate command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/powerstream/commandgate/internal/auditlog"
	"github.com/powerstream/commandgate/internal/cmdqueue"
	"github.com/powerstream/commandgate/internal/config"
	"github.com/powerstream/commandgate/internal/gate"
	"github.com/powerstream/commandgate/internal/keyring"
	"github.com/powerstream/commandgate/internal/notify"
	"github.com/powerstream/commandgate/internal/policy"
	"github.com/powerstream/commandgate/internal/signature"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "commandgate",
	Short: "Tiered command authorization and override pipeline",
	Long:  "Evaluates privileged commands against key, signature, and role policy,\nrecords every decision in a hash-chained audit log, and queues allowed\ncommands durably before dispatch.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config YAML (default ~/.commandgate/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime bundles everything a one-shot command needs. Close releases
// the stores.
type runtime struct {
	cfg  *config.Config
	gate *gate.Gate

	audit *auditlog.Log
	queue *cmdqueue.Queue
}

func (r *runtime) Close() {
	r.queue.Close()
	r.audit.Close()
}

// openRuntime loads config and wires the full pipeline. Keys come from
// the environment only.
func openRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger()

	keys, err := keyring.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load key sets: %w", err)
	}

	audit, err := auditlog.Open(cfg.AuditDir())
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	queue, err := cmdqueue.Open(cfg.QueuePath())
	if err != nil {
		audit.Close()
		return nil, fmt.Errorf("open command queue: %w", err)
	}
	sigs, err := signature.NewStore(cfg.SignatureDir())
	if err != nil {
		queue.Close()
		audit.Close()
		return nil, fmt.Errorf("open signature store: %w", err)
	}
	roles, err := policy.NewAuthorizer(logger)
	if err != nil {
		queue.Close()
		audit.Close()
		return nil, err
	}

	g, err := gate.New(gate.Config{
		Keys:       keys,
		Signatures: sigs,
		Audit:      audit,
		Queue:      queue,
		Roles:      roles,
		Notifier:   notify.NewDispatcher(cfg.Webhooks),
		Logger:     logger,
	})
	if err != nil {
		queue.Close()
		audit.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, gate: g, audit: audit, queue: queue}, nil
}
