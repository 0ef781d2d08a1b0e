// Package dispatch maps an already-authorized intent to its downstream
// effect. Authorization has completed by the time Dispatch runs; a
// failure here is reported to the caller and audited separately, and
// never revokes the authorization that preceded it.
package dispatch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/powerstream/commandgate/internal/model"
	"github.com/powerstream/commandgate/internal/policy"
)

// Handler executes one intent and returns a human-readable outcome.
type Handler func(intent policy.Intent, commandText string) (string, error)

// Dispatcher routes authorized intents to their handlers.
type Dispatcher struct {
	logger   *slog.Logger
	handlers map[string]Handler
	started  time.Time
}

// New returns a dispatcher with the built-in handler set.
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		logger:  logger,
		started: time.Now(),
	}
	d.handlers = map[string]Handler{
		"status.report":      d.statusReport,
		"health.check":       d.healthCheck,
		"queue.replay":       d.acknowledge,
		"stream.start":       d.streamStart,
		"stream.stop":        d.streamStop,
		"broadcast.announce": d.broadcast,
		"system.reboot":      d.reboot,
		"fans.lockout":       d.fanLockout,
		"system.lockdown":    d.lockdown,
		"control.transfer":   d.transfer,
	}
	return d
}

// Dispatch runs the handler for an intent. Unknown intents return a
// "not implemented" result rather than an error; handler failures are
// contained in the result with OK=false.
func (d *Dispatcher) Dispatch(intent policy.Intent, commandText string) model.DispatchResult {
	h, ok := d.handlers[intent.Name]
	if !ok {
		d.logger.Warn("no handler for intent", "intent", intent.Name)
		return model.DispatchResult{
			OK:      false,
			Message: fmt.Sprintf("intent %q not implemented", intent.Name),
		}
	}

	msg, err := h(intent, commandText)
	if err != nil {
		d.logger.Error("dispatch failed", "intent", intent.Name, "error", err)
		return model.DispatchResult{
			OK:      false,
			Message: "authorized, but execution failed",
			Error:   err.Error(),
		}
	}

	d.logger.Info("dispatched", "intent", intent.Name)
	return model.DispatchResult{OK: true, Message: msg}
}

func (d *Dispatcher) statusReport(policy.Intent, string) (string, error) {
	return fmt.Sprintf("operational, up %s", time.Since(d.started).Round(time.Second)), nil
}

func (d *Dispatcher) healthCheck(policy.Intent, string) (string, error) {
	return "all subsystems healthy", nil
}

func (d *Dispatcher) acknowledge(in policy.Intent, _ string) (string, error) {
	return fmt.Sprintf("%s acknowledged", in.Name), nil
}

func (d *Dispatcher) streamStart(policy.Intent, string) (string, error) {
	return "stream started", nil
}

func (d *Dispatcher) streamStop(policy.Intent, string) (string, error) {
	return "stream stopped", nil
}

func (d *Dispatcher) broadcast(policy.Intent, string) (string, error) {
	return "announcement broadcast", nil
}

func (d *Dispatcher) reboot(policy.Intent, string) (string, error) {
	return "reboot initiated", nil
}

func (d *Dispatcher) fanLockout(policy.Intent, string) (string, error) {
	return "fan messaging locked out", nil
}

func (d *Dispatcher) lockdown(policy.Intent, string) (string, error) {
	return "lockdown engaged, owner access only", nil
}

func (d *Dispatcher) transfer(_ policy.Intent, text string) (string, error) {
	recipient := policy.TransferRecipient(text)
	if recipient == "" {
		return "", fmt.Errorf("transfer command names no recipient")
	}
	return fmt.Sprintf("control transferred to %s", recipient), nil
}
