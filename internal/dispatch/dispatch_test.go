package dispatch

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/powerstream/commandgate/internal/policy"
)

func newDispatcher() *Dispatcher {
	return New(slog.New(slog.DiscardHandler))
}

func TestDispatchKnownIntents(t *testing.T) {
	d := newDispatcher()
	c := policy.NewCatalog()

	for _, in := range c.Intents() {
		if in.Name == "control.transfer" {
			continue // needs a recipient, covered below
		}
		res := d.Dispatch(in, "some command")
		if !res.OK {
			t.Errorf("%s: not OK: %s (%s)", in.Name, res.Message, res.Error)
		}
		if res.Message == "" {
			t.Errorf("%s: empty outcome message", in.Name)
		}
	}
}

func TestDispatchUnknownIntent(t *testing.T) {
	d := newDispatcher()

	res := d.Dispatch(policy.Intent{Name: "made.up"}, "whatever")
	if res.OK {
		t.Error("unknown intent reported OK")
	}
	if !strings.Contains(res.Message, "not implemented") {
		t.Errorf("message = %q, want a not-implemented result", res.Message)
	}
	if res.Error != "" {
		t.Errorf("unknown intent should not carry an error string, got %q", res.Error)
	}
}

func TestTransferNamesRecipient(t *testing.T) {
	d := newDispatcher()
	c := policy.NewCatalog()
	in, _ := c.Match("transfer control to successor-1")

	res := d.Dispatch(in, "transfer control to successor-1")
	if !res.OK {
		t.Fatalf("transfer failed: %s", res.Error)
	}
	if !strings.Contains(res.Message, "successor-1") {
		t.Errorf("message = %q, want it to name the recipient", res.Message)
	}
}

func TestTransferFailureIsContained(t *testing.T) {
	d := newDispatcher()
	c := policy.NewCatalog()
	in, _ := c.Match("transfer control")

	res := d.Dispatch(in, "transfer control")
	if res.OK {
		t.Error("transfer with no recipient reported OK")
	}
	if res.Error == "" {
		t.Error("contained failure should carry the error string")
	}
	if !strings.Contains(res.Message, "execution failed") {
		t.Errorf("message = %q, want the authorized-but-failed wording", res.Message)
	}
}
