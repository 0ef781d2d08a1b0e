package notify

// WebhookConfig defines a webhook notification destination.
type WebhookConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["allowed", "denied", "error", "override", "transfer"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints after an
// authorization verdict has been recorded.
type Event struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	ActorID   string `json:"actor_id"`
	Intent    string `json:"intent"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	Tier      int    `json:"tier"`
	TierName  string `json:"tier_name"`
	Type      string `json:"type,omitempty"` // "override", "transfer"
}
