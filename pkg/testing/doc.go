// Package testing provides a harness for testing composables.
//
// # Quick Start
//
// Create a tester, pump, queue writes and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    tester := rctest.NewTesterWithT(t, Counter{})
//	    tester.Pump()
//
//	    row := tester.Find(rctest.ByName("Counter")).First()
//
//	    tester.Queue(func(set *core.Setter) {
//	        core.Set(set, countID, 2)
//	    })
//	    tester.Pump()
//
//	    if got := tester.Find(rctest.ByName("Label")).Count(); got != 2 {
//	        t.Errorf("expected 2 labels, got %d", got)
//	    }
//	}
//
// # Snapshot Testing
//
// Capture and compare tree snapshots:
//
//	snapshot := tester.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/counter.snapshot.json")
//
// Update snapshots with:
//
//	RECOMPOSE_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import rctest "github.com/go-drift/recompose/pkg/testing"
package testing
