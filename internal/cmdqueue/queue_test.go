package cmdqueue

import (
	"path/filepath"
	"testing"

	"github.com/powerstream/commandgate/internal/model"
)

func open(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func replay(q *Queue) []model.QueuedCommand {
	var out []model.QueuedCommand
	for cmd := range q.Replay() {
		out = append(out, cmd)
	}
	return out
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	q := open(t)

	first, err := q.Append("owner-1", "reboot system")
	if err != nil {
		t.Fatal(err)
	}
	second, err := q.Append("owner-1", "engage lockdown")
	if err != nil {
		t.Fatal(err)
	}
	if second <= first {
		t.Errorf("ids not increasing: %d then %d", first, second)
	}
}

func TestReplayPreservesSubmissionOrder(t *testing.T) {
	q := open(t)

	cmds := []string{"status report", "reboot system", "engage lockdown"}
	for _, c := range cmds {
		if _, err := q.Append("owner-1", c); err != nil {
			t.Fatal(err)
		}
	}

	got := replay(q)
	if len(got) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(got))
	}
	for i, cmd := range got {
		if cmd.CommandText != cmds[i] {
			t.Errorf("position %d: got %q, want %q", i, cmd.CommandText, cmds[i])
		}
	}
}

func TestReplayIsRepeatable(t *testing.T) {
	q := open(t)
	q.Append("owner-1", "status report")
	q.Append("owner-2", "reboot system")

	first := replay(q)
	second := replay(q)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("replays differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("position %d differs between replays", i)
		}
	}
}

func TestClearEmptiesQueue(t *testing.T) {
	q := open(t)
	q.Append("owner-1", "status report")
	q.Append("owner-1", "reboot system")

	removed, err := q.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("queue not empty after clear: %d", n)
	}
}

func TestIDsSurviveClear(t *testing.T) {
	q := open(t)
	before, _ := q.Append("owner-1", "reboot system")
	q.Clear()

	after, err := q.Append("owner-1", "engage lockdown")
	if err != nil {
		t.Fatal(err)
	}
	if after <= before {
		t.Errorf("id %d reused after clear (previous %d)", after, before)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	q1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	q1.Append("owner-1", "reboot system")
	q1.Close()

	q2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer q2.Close()

	got := replay(q2)
	if len(got) != 1 || got[0].CommandText != "reboot system" {
		t.Fatalf("unexpected replay after reopen: %+v", got)
	}
}
