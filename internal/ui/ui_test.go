package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

func TestColorAppliesANSICodes(t *testing.T) {
	Init(false)
	got := Color("hello", FgGreen)
	want := FgGreen + "hello" + Reset
	if got != want {
		t.Fatalf("Color() = %q, want %q", got, want)
	}
}

func TestColorDisabled(t *testing.T) {
	Init(true)
	t.Cleanup(func() { Init(false) })
	if got := Color("hello", FgRed); got != "hello" {
		t.Fatalf("Color() = %q, want plain text", got)
	}
}

func TestRateCellString(t *testing.T) {
	if got := (RateCell{V: 0.5, Defined: true}).String(); got != "0.5000" {
		t.Fatalf("got %q", got)
	}
	if got := (RateCell{}).String(); got != "n/a" {
		t.Fatalf("got %q", got)
	}
}

func TestAnalysisUI_PrintMetrics(t *testing.T) {
	tests := []struct {
		name  string
		view  MetricsView
		quiet bool
		want  []string
	}{
		{
			name: "two groups with an excluded rate",
			view: MetricsView{
				Metric: "equal-opportunity", Aggregation: "max-gap", Threshold: 0.5,
				Groups: []GroupRow{
					{Group: "zone-1", Positives: 2, Negatives: 1, TPR: RateCell{1, true}, FPR: RateCell{0, true}},
					{Group: "zone-2", Positives: 0, Negatives: 3, FPR: RateCell{0.3333, true}},
				},
				Disparity: 0, Excluded: []string{"zone-2:tpr"}, Degenerate: true,
			},
			want: []string{"Fairness Metrics", "equal-opportunity (max-gap)", "zone-1", "1.0000", "n/a", "zone-2:tpr", "fewer than two groups"},
		},
		{
			name:  "quiet prints nothing",
			view:  MetricsView{Metric: "x"},
			quiet: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewAnalysisUI(&buf, tt.quiet).PrintMetrics(tt.view)
			out := buf.String()
			if tt.quiet && out != "" {
				t.Fatalf("expected no output, got %q", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestAnalysisUI_PrintEnhancement(t *testing.T) {
	var buf bytes.Buffer
	ui := NewAnalysisUI(&buf, false)
	ui.PrintEnhancement(EnhanceView{
		Metric: "equal-opportunity", Method: "group-threshold", Status: "adjusted",
		DisparityBefore: 0.5, DisparityAfter: 0, AccuracyBefore: 0.75, AccuracyAfter: 0.875,
		Adjustments: []AdjustmentRow{{Group: "b", Setting: "threshold 0.3000", Changed: true}},
	})
	out := buf.String()
	for _, w := range []string{"Fairness Enhancement", "group-threshold", "threshold 0.3000", "0.5000 ->"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}

	buf.Reset()
	ui.PrintEnhancement(EnhanceView{Status: "not-achievable", Method: "ensemble-reweight", BestDisparity: 0.6667})
	out = buf.String()
	for _, w := range []string{"not achievable", "ensemble-reweight", "0.6667"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestAnalysisUI_PrintComparison(t *testing.T) {
	var buf bytes.Buffer
	NewAnalysisUI(&buf, false).PrintComparison(CompareView{
		Experiment: "unit", Threshold: 0.5, Observations: 8,
		Rows: []CompareRow{
			{Config: "eo", Status: "adjusted", Method: "group-threshold"},
			{Config: "eo-rw", Status: "not-achievable", Method: "ensemble-reweight"},
		},
		Best: "eo",
	})
	out := buf.String()
	for _, w := range []string{"Configuration Comparison", "unit", "eo-rw", "not-achievable", "Best"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}

	buf.Reset()
	NewAnalysisUI(&buf, false).PrintComparison(CompareView{Rows: []CompareRow{{Config: "x", Status: "not-achievable"}}})
	if !strings.Contains(buf.String(), "no configuration reached") {
		t.Errorf("expected infeasible note:\n%s", buf.String())
	}
}

func TestAnalysisUI_PrintPartitionAndRuns(t *testing.T) {
	var buf bytes.Buffer
	ui := NewAnalysisUI(&buf, false)
	ui.PrintPartition(PartitionView{Mode: "quantile", Groups: []GroupSize{{"q1", 3}, {"q2", 1}}})
	if !strings.Contains(buf.String(), "quantile") || !strings.Contains(buf.String(), "q2") {
		t.Errorf("partition output:\n%s", buf.String())
	}

	buf.Reset()
	ui.PrintRuns(nil)
	if !strings.Contains(buf.String(), "no stored runs") {
		t.Errorf("runs output:\n%s", buf.String())
	}
	buf.Reset()
	ui.PrintRuns([]RunRow{{ID: "abc", Experiment: "exp", Configs: 2, Groups: 3}})
	if !strings.Contains(buf.String(), "exp") || !strings.Contains(buf.String(), "abc") {
		t.Errorf("runs output:\n%s", buf.String())
	}
}

func TestConfigSelector_ToggleAndConfirm(t *testing.T) {
	m := NewConfigSelector("Configurations", []SelectorItem{{Name: "eo"}, {Name: "dp"}})
	if got := m.Selected(); len(got) != 2 {
		t.Fatalf("expected all preselected, got %v", got)
	}

	m.Update(tea.KeyPressMsg{Code: 's', Text: "s"})
	if got := m.Selected(); len(got) != 1 || got[0] != "dp" {
		t.Fatalf("after toggle got %v", got)
	}

	m.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})
	if got := m.Selected(); len(got) != 2 {
		t.Fatalf("after toggle all got %v", got)
	}

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if !m.WasConfirmed() || cmd == nil {
		t.Fatal("enter should confirm and quit")
	}
}

func TestConfigSelector_Cancel(t *testing.T) {
	m := NewConfigSelector("Configurations", []SelectorItem{{Name: "eo"}})
	m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.WasConfirmed() {
		t.Fatal("escape must not confirm")
	}
}

func TestWorkflow_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	wf := NewWorkflow(&buf)
	idx := wf.AddTask("Evaluating eo")
	wf.Start()
	wf.StartTask(idx, "")
	wf.CompleteTask(idx, "adjusted")
	wf.Stop()
	if !strings.Contains(buf.String(), "Evaluating eo") {
		t.Errorf("workflow output:\n%s", buf.String())
	}
	if wf.Tasks()[0].Status != TaskDone {
		t.Errorf("status = %v", wf.Tasks()[0].Status)
	}
}
