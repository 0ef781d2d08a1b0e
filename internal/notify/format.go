package notify

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("commandgate: %s", event.Decision),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Actor:* %s", event.ActorID)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Intent:* %s", event.Intent)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Tier:* %d (%s)", event.Tier, event.TierName)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	switch {
	case event.Tier >= 3:
		severity = "critical"
	case event.Tier >= 2:
		severity = "error"
	case event.Tier >= 1:
		severity = "warning"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("commandgate %s: %s", event.Decision, event.Intent),
			"severity": severity,
			"source":   "commandgate",
			"custom_details": map[string]any{
				"actor":      event.ActorID,
				"intent":     event.Intent,
				"tier":       event.Tier,
				"tier_name":  event.TierName,
				"reason":     event.Reason,
				"request_id": event.RequestID,
			},
		},
	}
	return json.Marshal(payload)
}
