package testing

import (
	"testing"
	"time"

	"github.com/go-drift/lvbind/pkg/tick"
)

var _ tick.Clock = (*FakeClock)(nil)

func TestFakeClock_Advance(t *testing.T) {
	clk := NewFakeClock()
	start := clk.Now()

	got := clk.Advance(100 * time.Millisecond)
	if elapsed := got.Sub(start); elapsed != 100*time.Millisecond {
		t.Errorf("expected 100ms elapsed, got %v", elapsed)
	}

	clk.AdvanceMS(16)
	if elapsed := clk.Now().Sub(start); elapsed != 116*time.Millisecond {
		t.Errorf("expected 116ms elapsed, got %v", elapsed)
	}
}

func TestFakeClock_Set(t *testing.T) {
	clk := NewFakeClock()
	target := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	clk.Set(target)
	if !clk.Now().Equal(target) {
		t.Errorf("expected %v, got %v", target, clk.Now())
	}
}

func TestFakeClock_DrivesStepAt(t *testing.T) {
	tester := New(t)
	clk := tester.Clock()
	d := tester.Driver()

	if err := d.StepAt(clk.Now()); err != nil {
		t.Fatal(err)
	}
	if err := d.StepAt(clk.Advance(250 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if got := tester.Engine().Now(); got != 250 {
		t.Errorf("engine clock = %d, want 250", got)
	}
}
