// Package testing runs lvbind against the reference engine without a real
// display.
//
// # Tester
//
// A Tester wires a sim engine, an lv runtime, a display adapter feeding an
// in-memory framebuffer, an input injector and a tick driver:
//
//	func TestCounter(t *testing.T) {
//	    tester := lvtest.New(t, lvtest.WithSize(40, 20))
//	    btn, _ := tester.Runtime().NewButton(tester.Screen(), lv.ButtonConfig{})
//	    clicks := 0
//	    btn.OnClick(func(*lv.Event) { clicks++ })
//
//	    tester.Tap(btn.Obj)
//	    if clicks != 1 {
//	        t.Errorf("clicks = %d", clicks)
//	    }
//	}
//
// Every Pump is one full engine tick: deletions requested by handlers run at
// its end, exactly as under the real driver.
//
// # Frame Snapshots
//
// Rendered frames compare against golden ASCII dumps:
//
//	tester.Pump()
//	tester.AssertFrame(t, "counter_initial")
//
// Update golden files with:
//
//	go test ./... -update
//
// # Naming
//
// The package name shadows the standard testing package; the examples here
// use the lvtest alias:
//
//	import lvtest "github.com/go-drift/lvbind/pkg/testing"
package testing
