package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
	"pgregory.net/rapid"
)

// =============================================================================
// Property 6: Tracker Invariants Hold Under Any Operation Sequence
// =============================================================================

// For any sequence of Start/Complete/Fail/Skip calls on random steps:
// an operation either succeeds with the allowed transition or leaves the step
// unchanged; terminal steps never change; progress stays within [0, 100] and
// never decreases.
func TestProperty6_TrackerInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clock := newFakeClock()
		tr := NewStepTracker(clock.Now)
		n := rapid.IntRange(1, 6).Draw(rt, "steps")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("s%d", i)
			if err := tr.Add(ids[i], ids[i]); err != nil {
				rt.Fatal(err)
			}
		}

		allowed := map[string]models.StepStatus{
			"start":    models.StepPending,
			"complete": models.StepRunning,
			"fail":     models.StepRunning,
			"skip":     models.StepPending,
		}
		target := map[string]models.StepStatus{
			"start":    models.StepRunning,
			"complete": models.StepCompleted,
			"fail":     models.StepError,
			"skip":     models.StepSkipped,
		}

		lastPercent := 0.0
		ops := rapid.IntRange(0, 40).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("id_%d", i))
			op := rapid.SampledFrom([]string{"start", "complete", "fail", "skip"}).Draw(rt, fmt.Sprintf("op_%d", i))
			clock.Advance(time.Duration(rapid.IntRange(0, 5000).Draw(rt, fmt.Sprintf("ms_%d", i))) * time.Millisecond)

			before, _ := tr.Step(id)
			var err error
			switch op {
			case "start":
				err = tr.Start(id, "")
			case "complete":
				err = tr.Complete(id, "")
			case "fail":
				err = tr.Fail(id, "")
			case "skip":
				err = tr.Skip(id, "")
			}
			after, _ := tr.Step(id)

			if before.Status == allowed[op] {
				if err != nil || after.Status != target[op] {
					rt.Fatalf("%s on %s step: err=%v status=%s", op, before.Status, err, after.Status)
				}
			} else {
				if err == nil || after.Status != before.Status {
					rt.Fatalf("%s on %s step should fail without change: err=%v status=%s", op, before.Status, err, after.Status)
				}
			}

			p := tr.ProgressPercent()
			if p < 0 || p > 100 || p < lastPercent {
				rt.Fatalf("progress %g after %g", p, lastPercent)
			}
			lastPercent = p
			if eta, ok := tr.ETA(); ok && eta < 0 {
				rt.Fatalf("negative ETA %s", eta)
			}
		}

		snap := tr.Snapshot()
		if snap.Done != (snap.Completed+snap.Failed+snap.Skipped == n) {
			rt.Fatalf("Done=%v with %d/%d/%d of %d terminal", snap.Done, snap.Completed, snap.Failed, snap.Skipped, n)
		}
	})
}
