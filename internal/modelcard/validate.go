package modelcard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

// Validate checks that bom carries a fairness model card on its metadata
// component and on every configuration component. Strict mode also requires
// one fairness assessment per performance metric slice.
func Validate(bom *cdx.BOM, strict bool) []string {
	if bom == nil {
		return []string{"BOM is nil"}
	}
	var errs []string
	if bom.Metadata == nil || bom.Metadata.Component == nil {
		errs = append(errs, "metadata.component is required")
	} else {
		errs = append(errs, validateComponent("metadata.component", bom.Metadata.Component, strict)...)
	}
	if bom.Components == nil || len(*bom.Components) == 0 {
		return append(errs, "BOM has no configuration components")
	}
	for i := range *bom.Components {
		comp := &(*bom.Components)[i]
		errs = append(errs, validateComponent(fmt.Sprintf("component[%d]", i), comp, strict)...)
	}
	return errs
}

func validateComponent(where string, comp *cdx.Component, strict bool) []string {
	var errs []string
	if comp.Name == "" {
		errs = append(errs, where+": name is required")
	}
	card := comp.ModelCard
	if card == nil {
		return append(errs, fmt.Sprintf("%s %q: missing modelCard", where, comp.Name))
	}
	if card.ModelParameters == nil || card.ModelParameters.Task == "" {
		errs = append(errs, fmt.Sprintf("%s %q: missing task", where, comp.Name))
	}
	if card.QuantitativeAnalysis == nil || card.QuantitativeAnalysis.PerformanceMetrics == nil || len(*card.QuantitativeAnalysis.PerformanceMetrics) == 0 {
		errs = append(errs, fmt.Sprintf("%s %q: missing performance metrics", where, comp.Name))
	}
	if card.Considerations == nil || card.Considerations.FairnessAssessments == nil || len(*card.Considerations.FairnessAssessments) == 0 {
		errs = append(errs, fmt.Sprintf("%s %q: missing fairness assessments", where, comp.Name))
		return errs
	}
	if !strict || card.QuantitativeAnalysis == nil || card.QuantitativeAnalysis.PerformanceMetrics == nil {
		return errs
	}

	assessed := map[string]bool{}
	for _, fa := range *card.Considerations.FairnessAssessments {
		assessed[fa.GroupAtRisk] = true
	}
	seen := map[string]bool{}
	for _, m := range *card.QuantitativeAnalysis.PerformanceMetrics {
		if m.Slice == "" || m.Slice == "all" || seen[m.Slice] {
			continue
		}
		seen[m.Slice] = true
		if !assessed[m.Slice] {
			errs = append(errs, fmt.Sprintf("%s %q: group %q has metrics but no fairness assessment (strict)", where, comp.Name, m.Slice))
		}
	}
	return errs
}

// ReadFile decodes a JSON or XML BOM. format can be "json", "xml" or "auto".
func ReadFile(path, format string) (*cdx.BOM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f, path, format)
}

func decode(r io.Reader, filename, format string) (*cdx.BOM, error) {
	actual := strings.ToLower(format)
	if actual == "" || actual == "auto" {
		actual = ""
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".xml":
			actual = "xml"
		case ".json":
			actual = "json"
		}
		if actual == "" {
			br := bufio.NewReader(r)
			peek, _ := br.Peek(64)
			actual = "json"
			if strings.HasPrefix(strings.TrimSpace(string(peek)), "<") {
				actual = "xml"
			}
			r = br
		}
	}
	fileFmt := cdx.BOMFileFormatJSON
	if actual == "xml" {
		fileFmt = cdx.BOMFileFormatXML
	}
	bom := new(cdx.BOM)
	if err := cdx.NewBOMDecoder(r, fileFmt).Decode(bom); err != nil {
		return nil, err
	}
	return bom, nil
}
