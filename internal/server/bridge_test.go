package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/javamon/jvm-exporter/internal/snapshot"
)

func gather(t *testing.T, reg *snapshot.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(&snapshotCollector{registry: reg})
	families, err := promReg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func TestCollector_ExposesSnapshotSamples(t *testing.T) {
	reg := snapshot.NewRegistry()
	b := snapshot.NewBuilder()
	b.Add("jstat_gc_metrics", snapshot.L(
		"container", "host",
		"metric_name", "S1C",
		"pid", "100",
		"process_name", "Bootstrap",
	), 30720)
	b.Add("system_uptime_seconds", snapshot.L("type", "system"), 86400)
	reg.Publish(b.Snapshot())

	byName := gather(t, reg)

	gc, ok := byName["jstat_gc_metrics"]
	if !ok {
		t.Fatalf("jstat_gc_metrics missing, got %v", byName)
	}
	if gc.GetType() != dto.MetricType_GAUGE {
		t.Errorf("type = %v, want gauge", gc.GetType())
	}
	if len(gc.Metric) != 1 {
		t.Fatalf("metrics = %d, want 1", len(gc.Metric))
	}
	m := gc.Metric[0]
	if m.GetGauge().GetValue() != 30720 {
		t.Errorf("value = %v", m.GetGauge().GetValue())
	}
	labels := map[string]string{}
	for _, lp := range m.Label {
		labels[lp.GetName()] = lp.GetValue()
	}
	for k, want := range map[string]string{
		"container": "host", "metric_name": "S1C", "pid": "100", "process_name": "Bootstrap",
	} {
		if labels[k] != want {
			t.Errorf("label %s = %q, want %q", k, labels[k], want)
		}
	}

	if up, ok := byName["system_uptime_seconds"]; !ok || up.Metric[0].GetGauge().GetValue() != 86400 {
		t.Errorf("system_uptime_seconds = %v", up)
	}
}

func TestCollector_EmptySnapshotScrapesClean(t *testing.T) {
	byName := gather(t, snapshot.NewRegistry())
	if len(byName) != 0 {
		t.Errorf("families from empty snapshot = %v", byName)
	}
}

func TestCollector_NewSnapshotReplacesOld(t *testing.T) {
	reg := snapshot.NewRegistry()

	b := snapshot.NewBuilder()
	b.Add("process_memory_usage_bytes", snapshot.L("pid", "100"), 1)
	b.Add("process_memory_usage_bytes", snapshot.L("pid", "200"), 2)
	reg.Publish(b.Snapshot())

	b = snapshot.NewBuilder()
	b.Add("process_memory_usage_bytes", snapshot.L("pid", "100"), 3)
	reg.Publish(b.Snapshot())

	byName := gather(t, reg)
	mf := byName["process_memory_usage_bytes"]
	if mf == nil || len(mf.Metric) != 1 {
		t.Fatalf("metrics = %v, want only the surviving pid", mf)
	}
	if mf.Metric[0].GetGauge().GetValue() != 3 {
		t.Errorf("value = %v, want 3", mf.Metric[0].GetGauge().GetValue())
	}
}

func TestHelpFor(t *testing.T) {
	if got := helpFor("jstat_gc_metrics"); got == "Exported metric" {
		t.Error("known family fell back to generic help")
	}
	if got := helpFor("made_up_family"); got != "Exported metric" {
		t.Errorf("unknown family help = %q", got)
	}
}
