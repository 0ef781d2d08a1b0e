// Package gate is the authorization core. Every privileged command
// flows through Submit, which evaluates the request against the key
// registry, signature store, role policy, and escalation machine,
// records exactly one audit entry for the attempt before any execution
// side effect, and on allowance appends to the durable queue before
// handing off to the dispatcher.
package gate

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/powerstream/commandgate/internal/auditlog"
	"github.com/powerstream/commandgate/internal/cmdqueue"
	"github.com/powerstream/commandgate/internal/dispatch"
	"github.com/powerstream/commandgate/internal/escalation"
	"github.com/powerstream/commandgate/internal/keyring"
	"github.com/powerstream/commandgate/internal/model"
	"github.com/powerstream/commandgate/internal/notify"
	"github.com/powerstream/commandgate/internal/policy"
	"github.com/powerstream/commandgate/internal/signature"
)

// Gate wires the authorization pipeline together.
type Gate struct {
	keys       *keyring.Registry
	signatures *signature.Store
	audit      *auditlog.Log
	queue      *cmdqueue.Queue
	machine    *escalation.Machine
	catalog    *policy.Catalog
	roles      *policy.Authorizer
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	// notifier is swappable at runtime for config hot-reload. A nil
	// value disables notifications.
	notifier atomic.Pointer[notify.Dispatcher]
}

// Config carries the gate's collaborators. Keys, Signatures, Audit,
// Queue, and Roles are required; a nil Machine, Catalog, or Dispatcher
// gets a default, and a nil Notifier disables notifications.
type Config struct {
	Keys       *keyring.Registry
	Signatures *signature.Store
	Audit      *auditlog.Log
	Queue      *cmdqueue.Queue
	Machine    *escalation.Machine
	Catalog    *policy.Catalog
	Roles      *policy.Authorizer
	Dispatcher *dispatch.Dispatcher
	Notifier   *notify.Dispatcher
	Logger     *slog.Logger
}

// New builds a Gate from its collaborators.
func New(cfg Config) (*Gate, error) {
	if cfg.Keys == nil || cfg.Signatures == nil || cfg.Audit == nil || cfg.Queue == nil || cfg.Roles == nil {
		return nil, fmt.Errorf("gate: missing required collaborator")
	}
	if cfg.Machine == nil {
		cfg.Machine = escalation.New()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = policy.NewCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = dispatch.New(cfg.Logger)
	}
	g := &Gate{
		keys:       cfg.Keys,
		signatures: cfg.Signatures,
		audit:      cfg.Audit,
		queue:      cfg.Queue,
		machine:    cfg.Machine,
		catalog:    cfg.Catalog,
		roles:      cfg.Roles,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
	}
	g.notifier.Store(cfg.Notifier)
	return g, nil
}

// SetNotifier swaps the notification dispatcher. Used by config
// hot-reload; nil disables notifications.
func (g *Gate) SetNotifier(n *notify.Dispatcher) {
	g.notifier.Store(n)
}

// Machine exposes the escalation machine for status surfaces.
func (g *Gate) Machine() *escalation.Machine { return g.machine }

// Queue exposes the command queue for read-only surfaces.
func (g *Gate) Queue() *cmdqueue.Queue { return g.queue }

// Audit exposes the audit log for read-only surfaces.
func (g *Gate) Audit() *auditlog.Log { return g.audit }

// Submit evaluates one privileged-command request to a terminal
// verdict. The returned error is non-nil only for persistence
// failures, which are fatal to the request: the gate never reports an
// allowance it could not durably record. Denials are verdict values,
// not errors.
func (g *Gate) Submit(req model.Request) (model.Verdict, error) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	intent, ok := g.catalog.Match(req.CommandText)
	if !ok {
		return g.deny(req, policy.Intent{}, model.ReasonUnrecognizedCommand, start)
	}

	// A privileged intent raises the request to its minimum tier even
	// when the caller asked for less. Supplying no credential for a
	// tier that needs one then fails exactly like a wrong credential.
	tier := req.RequestedTier
	if intent.MinTier > tier {
		tier = intent.MinTier
	}

	if tier == model.TierNormal {
		decision := g.roles.Evaluate(req.ActorID, req.Role, intent)
		if !decision.Allowed {
			return g.deny(req, intent, model.ReasonInsufficientPermissions, start)
		}
		return g.allow(req, intent, start)
	}

	keyTier := tier
	if intent.Transfer || tier == model.TierControlTransfer {
		// Control transfer is gated on the sovereign credential plus
		// the explicit transfer authorization, never its own key set.
		keyTier = model.TierSovereignOverride
	}
	if !g.keys.IsValidKey(keyTier, req.Credential) {
		return g.deny(req, intent, model.ReasonInvalidCredentials, start)
	}

	if intent.RequiresOwnerProof {
		if !g.signatures.Verify(req.ActorID, req.SignatureSample) {
			return g.deny(req, intent, model.ReasonSignatureMismatch, start)
		}
	}

	if intent.Transfer {
		recipient := req.TransferRecipient
		if recipient == "" {
			recipient = policy.TransferRecipient(req.CommandText)
		}
		// The authorization flag and recipient are checked before any
		// tier movement, so a refused transfer leaves the machine where
		// it was.
		if !req.TransferAuthorized || recipient == "" {
			return g.deny(req, intent, model.ReasonIllegalTransition, start)
		}
		if g.machine.Current() < model.TierSovereignOverride {
			if err := g.machine.Escalate(model.TierSovereignOverride); err != nil {
				return g.deny(req, intent, model.ReasonIllegalTransition, start)
			}
		}
		if err := g.machine.Transfer(req.TransferAuthorized, recipient); err != nil {
			return g.deny(req, intent, model.ReasonIllegalTransition, start)
		}
	} else if tier > g.machine.Current() {
		if err := g.machine.Escalate(tier); err != nil {
			return g.deny(req, intent, model.ReasonIllegalTransition, start)
		}
	}

	return g.allow(req, intent, start)
}

// deny records the refusal and returns the denied verdict. The audit
// write happens before the verdict is returned; if it fails, the
// request fails with it.
func (g *Gate) deny(req model.Request, intent policy.Intent, reason string, start time.Time) (model.Verdict, error) {
	cur := g.machine.Current()
	entry := auditlog.Entry{
		RequestID: req.RequestID,
		ActorID:   req.ActorID,
		Category:  decisionCategory(req.RequestedTier, intent),
		Outcome:   string(model.OutcomeDenied),
		Detail:    fmt.Sprintf("%s: %q", reason, req.CommandText),
	}
	if err := g.audit.Record(entry); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: audit: %v", model.ErrPersistence, err)
	}

	v := model.Verdict{
		RequestID: req.RequestID,
		Allowed:   false,
		Reason:    reason,
		Tier:      cur,
		TierName:  cur.String(),
		Intent:    intent.Name,
		Duration:  time.Since(start),
	}
	g.logger.Info("command denied",
		"request_id", req.RequestID,
		"actor", req.ActorID,
		"intent", intent.Name,
		"reason", reason,
		"tier", cur.String(),
	)
	g.notify(req, v, intent)
	return v, nil
}

// allow records the allowance, appends to the queue, dispatches, and
// records the dispatch outcome as a separate entry.
func (g *Gate) allow(req model.Request, intent policy.Intent, start time.Time) (model.Verdict, error) {
	cur := g.machine.Current()

	entry := auditlog.Entry{
		RequestID: req.RequestID,
		ActorID:   req.ActorID,
		Category:  decisionCategory(req.RequestedTier, intent),
		Outcome:   string(model.OutcomeAllowed),
		Detail:    fmt.Sprintf("%s: %q", intent.Name, req.CommandText),
	}
	if err := g.audit.Record(entry); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: audit: %v", model.ErrPersistence, err)
	}

	// Queue append comes before dispatch so a crash between
	// authorization and execution still leaves a replayable record.
	if _, err := g.queue.Append(req.ActorID, req.CommandText); err != nil {
		g.recordError(req, fmt.Sprintf("queue append failed: %v", err))
		return model.Verdict{}, err
	}

	result := g.dispatcher.Dispatch(intent, req.CommandText)

	outcome := model.OutcomeAllowed
	detail := fmt.Sprintf("%s: %s", intent.Name, result.Message)
	if !result.OK {
		outcome = model.OutcomeError
		detail = fmt.Sprintf("%s: %s: %s", intent.Name, result.Message, result.Error)
	}
	dispatchEntry := auditlog.Entry{
		RequestID: req.RequestID,
		ActorID:   req.ActorID,
		Category:  auditlog.CategoryCommandHistory,
		Outcome:   string(outcome),
		Detail:    detail,
	}
	if err := g.audit.Record(dispatchEntry); err != nil {
		g.logger.Error("dispatch outcome not recorded", "request_id", req.RequestID, "error", err)
	}
	g.recordStreamActivity(req, intent, result)

	v := model.Verdict{
		RequestID: req.RequestID,
		Allowed:   true,
		Reason:    "authorized",
		Tier:      cur,
		TierName:  cur.String(),
		Intent:    intent.Name,
		Duration:  time.Since(start),
		Result:    &result,
	}
	g.logger.Info("command authorized",
		"request_id", req.RequestID,
		"actor", req.ActorID,
		"intent", intent.Name,
		"tier", cur.String(),
		"dispatch_ok", result.OK,
	)
	g.notify(req, v, intent)
	return v, nil
}

// ClearQueue wipes the command queue. It is itself a privileged
// operation gated at AdminOverride or higher; the wipe is audited with
// the clearing actor and the number of commands removed.
func (g *Gate) ClearQueue(actorID, credential string) (model.Verdict, error) {
	if !g.overrideKey(credential) {
		return g.denyAdmin(actorID, "queue clear", model.ReasonInvalidCredentials)
	}

	queued, err := g.queue.Len()
	if err != nil {
		return model.Verdict{}, err
	}
	// The wipe is recorded before it happens; a persistence failure must
	// not leave an unaudited deletion.
	entry := auditlog.Entry{
		ActorID:  actorID,
		Category: auditlog.CategoryAuditTrail,
		Outcome:  string(model.OutcomeAllowed),
		Detail:   fmt.Sprintf("command queue cleared by %s (%d removed)", actorID, queued),
	}
	if err := g.audit.Record(entry); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: audit: %v", model.ErrPersistence, err)
	}
	if _, err := g.queue.Clear(); err != nil {
		g.recordError(model.Request{ActorID: actorID}, fmt.Sprintf("queue clear failed: %v", err))
		return model.Verdict{}, err
	}
	g.logger.Info("queue cleared", "actor", actorID, "removed", queued)
	return model.Verdict{Allowed: true, Reason: "authorized", TierName: g.machine.Current().String()}, nil
}

// EnrollSignature stores a reference signature for ownerID, replacing
// any prior enrollment. Gated at AdminOverride or higher.
func (g *Gate) EnrollSignature(actorID, credential, ownerID string, sample []byte) (model.Verdict, error) {
	if !g.overrideKey(credential) {
		return g.denyAdmin(actorID, "signature enrollment", model.ReasonInvalidCredentials)
	}

	if err := g.signatures.Enroll(ownerID, sample); err != nil {
		return model.Verdict{}, err
	}
	entry := auditlog.Entry{
		ActorID:  actorID,
		Category: auditlog.CategoryAuditTrail,
		Outcome:  string(model.OutcomeAllowed),
		Detail:   fmt.Sprintf("signature enrolled for %s by %s", ownerID, actorID),
	}
	if err := g.audit.Record(entry); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: audit: %v", model.ErrPersistence, err)
	}
	g.logger.Info("signature enrolled", "owner", ownerID, "actor", actorID)
	return model.Verdict{Allowed: true, Reason: "authorized", TierName: g.machine.Current().String()}, nil
}

// ClearAuditCategory wipes one audit category, leaving behind the
// single entry that records the wipe. Gated at AdminOverride or higher.
func (g *Gate) ClearAuditCategory(actorID, credential string, cat auditlog.Category) (model.Verdict, error) {
	if !g.overrideKey(credential) {
		return g.denyAdmin(actorID, "audit clear", model.ReasonInvalidCredentials)
	}
	if err := g.audit.ClearCategory(cat, actorID); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: audit clear: %v", model.ErrPersistence, err)
	}
	g.logger.Info("audit category cleared", "actor", actorID, "category", cat)
	return model.Verdict{Allowed: true, Reason: "authorized", TierName: g.machine.Current().String()}, nil
}

// ResetTier forces the escalation machine back to Normal, clearing any
// completed transfer. Gated at AdminOverride or higher; the reset is
// recorded in the override category with the tier it left behind.
func (g *Gate) ResetTier(actorID, credential string) (model.Verdict, error) {
	if !g.overrideKey(credential) {
		return g.denyAdmin(actorID, "tier reset", model.ReasonInvalidCredentials)
	}

	prev := g.machine.Current()
	entry := auditlog.Entry{
		ActorID:  actorID,
		Category: auditlog.CategoryOverride,
		Outcome:  string(model.OutcomeAllowed),
		Detail:   fmt.Sprintf("tier reset to normal from %s by %s", prev, actorID),
	}
	if err := g.audit.Record(entry); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: audit: %v", model.ErrPersistence, err)
	}
	g.machine.Reset()
	g.logger.Info("tier reset", "actor", actorID, "from", prev.String())
	return model.Verdict{Allowed: true, Reason: "authorized", Tier: model.TierNormal, TierName: model.TierNormal.String()}, nil
}

// overrideKey reports whether credential is valid for AdminOverride or
// any higher keyed tier.
func (g *Gate) overrideKey(credential string) bool {
	return g.keys.IsValidKey(model.TierAdminOverride, credential) ||
		g.keys.IsValidKey(model.TierSovereignOverride, credential)
}

func (g *Gate) denyAdmin(actorID, op, reason string) (model.Verdict, error) {
	entry := auditlog.Entry{
		ActorID:  actorID,
		Category: auditlog.CategoryAuditTrail,
		Outcome:  string(model.OutcomeDenied),
		Detail:   fmt.Sprintf("%s refused: %s", op, reason),
	}
	if err := g.audit.Record(entry); err != nil {
		return model.Verdict{}, fmt.Errorf("%w: audit: %v", model.ErrPersistence, err)
	}
	g.logger.Info("administrative operation refused", "actor", actorID, "op", op, "reason", reason)
	cur := g.machine.Current()
	return model.Verdict{Allowed: false, Reason: reason, Tier: cur, TierName: cur.String()}, nil
}

// recordError is best-effort: it runs when a persistence failure has
// already doomed the request.
func (g *Gate) recordError(req model.Request, detail string) {
	err := g.audit.Record(auditlog.Entry{
		RequestID: req.RequestID,
		ActorID:   req.ActorID,
		Category:  auditlog.CategoryError,
		Outcome:   string(model.OutcomeError),
		Detail:    detail,
	})
	if err != nil {
		g.logger.Error("error entry not recorded", "request_id", req.RequestID, "error", err)
	}
}

// recordStreamActivity mirrors stream start/stop outcomes into their
// own category for the activity feed.
func (g *Gate) recordStreamActivity(req model.Request, intent policy.Intent, result model.DispatchResult) {
	if intent.Name != "stream.start" && intent.Name != "stream.stop" {
		return
	}
	err := g.audit.Record(auditlog.Entry{
		RequestID: req.RequestID,
		ActorID:   req.ActorID,
		Category:  auditlog.CategoryStreamActivity,
		Outcome:   string(model.OutcomeAllowed),
		Detail:    fmt.Sprintf("%s: %s", intent.Name, result.Message),
	})
	if err != nil {
		g.logger.Error("stream activity not recorded", "request_id", req.RequestID, "error", err)
	}
}

func (g *Gate) notify(req model.Request, v model.Verdict, intent policy.Intent) {
	notifier := g.notifier.Load()
	if notifier == nil {
		return
	}
	decision := "denied"
	if v.Allowed {
		decision = "allowed"
	}
	eventType := ""
	if intent.Transfer {
		eventType = "transfer"
	} else if v.Tier > model.TierNormal {
		eventType = "override"
	}
	notifier.Dispatch(notify.Event{
		Timestamp: time.Now().UTC().Format(auditlog.TimestampFormat),
		RequestID: v.RequestID,
		ActorID:   req.ActorID,
		Intent:    v.Intent,
		Decision:  decision,
		Reason:    v.Reason,
		Tier:      int(v.Tier),
		TierName:  v.TierName,
		Type:      eventType,
	})
}

// decisionCategory segments authorization decisions: override-tier
// attempts land in the override category, normal-tier traffic in
// command history.
func decisionCategory(requested model.Tier, intent policy.Intent) auditlog.Category {
	if requested > model.TierNormal || intent.MinTier > model.TierNormal {
		return auditlog.CategoryOverride
	}
	return auditlog.CategoryCommandHistory
}
