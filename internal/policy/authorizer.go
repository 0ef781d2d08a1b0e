package policy

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/cedar-policy/cedar-go"

	"github.com/powerstream/commandgate/internal/model"
)

//go:embed policies.cedar
var policiesContent []byte

// Decision is the result of a normal-tier role-policy check.
type Decision struct {
	Allowed  bool
	Reason   string
	PolicyID string
	Duration time.Duration
}

// Authorizer evaluates normal-tier auto-approval against Cedar
// policies. Every normal-tier role decision flows through Evaluate;
// nothing else in the process rules on roles.
type Authorizer struct {
	policies *cedar.PolicySet
	logger   *slog.Logger
}

// NewAuthorizer creates an authorizer with the embedded policy set.
func NewAuthorizer(logger *slog.Logger) (*Authorizer, error) {
	return NewAuthorizerFromBytes(policiesContent, logger)
}

// NewAuthorizerFromBytes creates an authorizer from policy bytes.
func NewAuthorizerFromBytes(policyContent []byte, logger *slog.Logger) (*Authorizer, error) {
	ps, err := cedar.NewPolicySetFromBytes("policies.cedar", policyContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policies: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{policies: ps, logger: logger}, nil
}

// Evaluate decides whether an actor with the given role may submit the
// intent at the normal tier.
func (a *Authorizer) Evaluate(actorID string, role model.Role, intent Intent) Decision {
	start := time.Now()

	req := cedar.Request{
		Principal: cedar.NewEntityUID("Actor", cedar.String(actorID)),
		Action:    cedar.NewEntityUID("Action", cedar.String("submit")),
		Resource:  cedar.NewEntityUID("Intent", cedar.String(intent.Name)),
		Context: cedar.NewRecord(cedar.RecordMap{
			"role":     cedar.String(string(role)),
			"low_risk": cedar.Boolean(intent.LowRisk),
		}),
	}

	decision, diagnostic := cedar.Authorize(a.policies, cedar.EntityMap{}, req)

	policyID := ""
	if len(diagnostic.Reasons) > 0 {
		policyID = string(diagnostic.Reasons[0].PolicyID)
	}

	allowed := decision == cedar.Allow
	reason := "access permitted"
	if !allowed {
		reason = model.ReasonInsufficientPermissions
	}

	result := Decision{
		Allowed:  allowed,
		Reason:   reason,
		PolicyID: policyID,
		Duration: time.Since(start),
	}

	a.logger.Info("role policy decision",
		"actor", actorID,
		"role", role,
		"intent", intent.Name,
		"low_risk", intent.LowRisk,
		"decision", result.Allowed,
		"policy_id", result.PolicyID,
		"duration_us", result.Duration.Microseconds(),
	)
	for _, err := range diagnostic.Errors {
		a.logger.Error("policy evaluation error",
			"policy", err.PolicyID,
			"error", err.Message,
		)
	}

	return result
}

// PolicyCount returns the number of loaded policies.
func (a *Authorizer) PolicyCount() int {
	count := 0
	for range a.policies.All() {
		count++
	}
	return count
}
