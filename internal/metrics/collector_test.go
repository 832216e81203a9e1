package metrics

import (
	"math"
	"testing"
	"time"
)

func TestCollector_Stats(t *testing.T) {
	c := NewCollector(100)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		c.Record("portfolio_total_value", v)
	}

	st, ok := c.GetStats("portfolio_total_value", 0)
	if !ok {
		t.Fatal("expected stats")
	}
	if st.Current != 5 {
		t.Errorf("current = %v, want 5", st.Current)
	}
	if st.Min != 1 || st.Max != 5 {
		t.Errorf("min/max = %v/%v, want 1/5", st.Min, st.Max)
	}
	if st.Mean != 3 {
		t.Errorf("mean = %v, want 3", st.Mean)
	}
	if st.Median != 3 {
		t.Errorf("median = %v, want 3", st.Median)
	}
	// Sample stddev of 1..5 is sqrt(2.5)
	if math.Abs(st.StdDev-math.Sqrt(2.5)) > 1e-12 {
		t.Errorf("stddev = %v, want %v", st.StdDev, math.Sqrt(2.5))
	}
}

func TestCollector_UnknownMetric(t *testing.T) {
	c := NewCollector(10)
	if _, ok := c.GetStats("nope", 0); ok {
		t.Error("expected no stats for unknown metric")
	}
}

func TestCollector_WindowFiltering(t *testing.T) {
	c := NewCollector(10)
	c.RecordAt("m", 100, time.Now().Add(-2*time.Hour))
	c.RecordAt("m", 1, time.Now())

	st, ok := c.GetStats("m", time.Hour)
	if !ok {
		t.Fatal("expected stats")
	}
	if st.Count != 1 || st.Current != 1 {
		t.Errorf("windowed stats = %+v, want single recent sample", st)
	}
}

func TestCollector_BoundedHistory(t *testing.T) {
	c := NewCollector(5)
	for i := 0; i < 20; i++ {
		c.Record("m", float64(i))
	}
	st, _ := c.GetStats("m", 0)
	if st.Count != 5 {
		t.Errorf("count = %d, want 5 (bounded)", st.Count)
	}
	if st.Min != 15 {
		t.Errorf("min = %v, want 15 (oldest evicted)", st.Min)
	}
}

func TestCollector_Alerts(t *testing.T) {
	c := NewCollector(10)
	c.Record("drawdown", 0.4)

	max := 0.25
	raised := c.CheckAlerts(map[string]Threshold{
		"drawdown": {Max: &max},
	})
	if len(raised) != 1 {
		t.Fatalf("raised = %d alerts, want 1", len(raised))
	}
	if raised[0].Type != "above_maximum" {
		t.Errorf("alert type = %s, want above_maximum", raised[0].Type)
	}

	kept := c.Alerts(time.Hour)
	if len(kept) != 1 {
		t.Errorf("retained alerts = %d, want 1", len(kept))
	}
	if got := c.Alerts(0); len(got) != 0 {
		t.Errorf("alerts with zero max age = %d, want 0", len(got))
	}
}
