package notify

// Dispatcher fans out events to matching webhook configurations.
// Notification is strictly after-the-fact: the gate calls Dispatch
// only once the verdict and its audit write have completed, so a slow
// or failing channel can never block or corrupt the authorization path.
type Dispatcher struct {
	configs []WebhookConfig
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []WebhookConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose Events list matches.
// Matching is based on event.Decision or event.Type.
// Fires goroutines — does not block the caller.
func (d *Dispatcher) Dispatch(event Event) {
	for _, cfg := range d.configs {
		if matches(cfg.Events, event) {
			go Send(cfg, event)
		}
	}
}

func matches(events []string, event Event) bool {
	for _, e := range events {
		if e == event.Decision {
			return true
		}
		if event.Type != "" && e == event.Type {
			return true
		}
	}
	return false
}
