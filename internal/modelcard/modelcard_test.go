package modelcard

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/experiment"
)

func sampleReport(t *testing.T) *compare.Report {
	t.Helper()
	mk := func(g string, label bool, s float64) decision.Observation {
		return decision.Observation{Scenario: "s", Sensor: g, Group: g, Label: label, Scores: []float64{s}}
	}
	obs := []decision.Observation{
		mk("a", true, 0.9), mk("a", true, 0.8), mk("a", false, 0.1),
		mk("b", true, 0.9), mk("b", true, 0.3), mk("b", false, 0.1),
		mk("c", false, 0.2), mk("c", false, 0.7),
	}
	rep, err := compare.Run(context.Background(), obs, []experiment.Config{
		{Name: "eo-rw", Metric: "equal-opportunity", Method: "ensemble-reweight"},
		{Name: "eo", Metric: "equal-opportunity", Method: "group-threshold"},
	}, compare.Options{Experiment: "unit", Threshold: 0.5})
	require.NoError(t, err)
	return rep
}

func property(c cdx.Component, name string) string {
	if c.Properties == nil {
		return ""
	}
	for _, p := range *c.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func TestBuild_SelectsBestFeasible(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bom, err := Build(sampleReport(t), Options{ToolVersion: "v1.2.3", Now: now})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(bom.SerialNumber, "urn:uuid:"))
	require.Equal(t, "2026-01-02T03:04:05Z", bom.Metadata.Timestamp)
	tools := *bom.Metadata.Tools.Components
	require.Len(t, tools, 1)
	require.Equal(t, DefaultToolName, tools[0].Name)
	require.Equal(t, "v1.2.3", tools[0].Version)

	meta := bom.Metadata.Component
	require.Equal(t, "leak-detector/unit", meta.Name)
	require.Equal(t, "config:eo", meta.BOMRef)
	require.Equal(t, cdx.ComponentTypeMachineLearningModel, meta.Type)
	require.Equal(t, "adjusted", property(*meta, "fairleak:status"))
	require.Equal(t, "0.5000", property(*meta, "fairleak:threshold"))

	require.Len(t, *bom.Components, 2)
	require.Equal(t, "not-achievable", property((*bom.Components)[0], "fairleak:status"))
}

func TestBuild_ModelCardContents(t *testing.T) {
	bom, err := Build(sampleReport(t), Options{Config: "eo", ToolVersion: "x"})
	require.NoError(t, err)
	card := bom.Metadata.Component.ModelCard
	require.NotNil(t, card)
	require.Equal(t, "residual-threshold", card.ModelParameters.ArchitectureFamily)

	slices := map[string]string{}
	for _, m := range *card.QuantitativeAnalysis.PerformanceMetrics {
		if m.Type == "tpr-before" {
			slices[m.Slice] = m.Value
		}
	}
	require.Equal(t, "1.0000", slices["a"])
	require.Equal(t, "0.5000", slices["b"])
	require.Equal(t, "n/a", slices["c"])

	fa := *card.Considerations.FairnessAssessments
	require.Len(t, fa, 3)
	require.Equal(t, "b", fa[1].GroupAtRisk)
	require.Equal(t, "group threshold 0.3000", fa[1].MitigationStrategy)
	require.NotNil(t, card.Considerations.TechnicalLimitations)
	require.Contains(t, (*card.Considerations.TechnicalLimitations)[0], "c:tpr")

	rw, err := Build(sampleReport(t), Options{Config: "eo-rw", ToolVersion: "x"})
	require.NoError(t, err)
	rwfa := *rw.Metadata.Component.ModelCard.Considerations.FairnessAssessments
	require.Contains(t, rwfa[0].MitigationStrategy, "not achievable")
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, Options{})
	require.ErrorIs(t, err, ErrNoRows)
	_, err = Build(&compare.Report{}, Options{})
	require.ErrorIs(t, err, ErrNoRows)
	_, err = Build(sampleReport(t), Options{Config: "missing"})
	require.Error(t, err)
}

func TestWrite_RoundTrip(t *testing.T) {
	bom, err := Build(sampleReport(t), Options{ToolVersion: "x"})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "card.json")
	require.NoError(t, Write(path, bom, "auto", "1.6"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var got cdx.BOM
	require.NoError(t, cdx.NewBOMDecoder(f, cdx.BOMFileFormatJSON).Decode(&got))
	require.Equal(t, bom.SerialNumber, got.SerialNumber)
	require.Equal(t, "leak-detector/unit", got.Metadata.Component.Name)
	require.Len(t, *got.Components, 2)

	xmlPath := filepath.Join(dir, "card.xml")
	require.NoError(t, Write(xmlPath, bom, "", ""))
	data, err := os.ReadFile(xmlPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "<bom")
}

func TestWrite_Errors(t *testing.T) {
	bom := cdx.NewBOM()
	dir := t.TempDir()
	require.Error(t, Write(filepath.Join(dir, "a.json"), bom, "xml", ""))
	require.Error(t, Write(filepath.Join(dir, "a.json"), bom, "spdx", ""))
	require.Error(t, Write(filepath.Join(dir, "a.json"), bom, "json", "1.2"))
}

func TestParseSpecVersion(t *testing.T) {
	v, ok := ParseSpecVersion("1.5")
	require.True(t, ok)
	require.Equal(t, cdx.SpecVersion1_5, v)
	_, ok = ParseSpecVersion("1.4")
	require.False(t, ok)
}

func TestAddMeta_PreservesExisting(t *testing.T) {
	bom := &cdx.BOM{SerialNumber: "urn:uuid:existing", Metadata: &cdx.Metadata{Timestamp: "2020-01-01T00:00:00Z"}}
	AddMetaSerialNumber(bom)
	AddMetaTimestamp(bom, time.Now())
	require.Equal(t, "urn:uuid:existing", bom.SerialNumber)
	require.Equal(t, "2020-01-01T00:00:00Z", bom.Metadata.Timestamp)

	AddMetaTools(bom, "a")
	AddMetaTools(bom, "b")
	require.Len(t, *bom.Metadata.Tools.Components, 2)
}

func TestToolVersion_Precedence(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })

	Version = "v9.9.9"
	require.Equal(t, "v9.9.9", ToolVersion())
}

func TestValidate_BuiltCardPassesStrict(t *testing.T) {
	bom, err := Build(sampleReport(t), Options{ToolVersion: "x"})
	require.NoError(t, err)
	require.Empty(t, Validate(bom, true))
}

func TestValidate_Problems(t *testing.T) {
	require.Equal(t, []string{"BOM is nil"}, Validate(nil, false))

	errs := Validate(cdx.NewBOM(), false)
	require.Contains(t, errs, "metadata.component is required")
	require.Contains(t, errs, "BOM has no configuration components")

	bom, err := Build(sampleReport(t), Options{ToolVersion: "x"})
	require.NoError(t, err)
	fa := (*bom.Metadata.Component.ModelCard.Considerations.FairnessAssessments)[:2]
	bom.Metadata.Component.ModelCard.Considerations.FairnessAssessments = &fa
	require.Empty(t, Validate(bom, false))
	errs = Validate(bom, true)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], `group "c"`)
}

func TestReadFile_SniffsFormat(t *testing.T) {
	bom, err := Build(sampleReport(t), Options{ToolVersion: "x"})
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "card.xml")
	require.NoError(t, Write(path, bom, "xml", ""))

	renamed := filepath.Join(dir, "card.bom")
	require.NoError(t, os.Rename(path, renamed))
	got, err := ReadFile(renamed, "auto")
	require.NoError(t, err)
	require.Equal(t, bom.SerialNumber, got.SerialNumber)
}
