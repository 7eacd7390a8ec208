package modelcard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

// Write stores the BOM as JSON or XML ("auto" infers from the extension).
// A non-empty spec selects the CycloneDX spec version.
func Write(outputPath string, bom *cdx.BOM, format string, spec string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(outputPath))
	actual := strings.ToLower(format)
	if actual == "auto" || actual == "" {
		actual = "json"
		if ext == ".xml" {
			actual = "xml"
		}
	}
	switch {
	case actual != "json" && actual != "xml":
		return fmt.Errorf("unsupported model card format %q (expected json|xml)", format)
	case ext != "" && ext != "."+actual:
		return fmt.Errorf("output path extension %q does not match format %q", ext, actual)
	}

	fileFmt := cdx.BOMFileFormatJSON
	if actual == "xml" {
		fileFmt = cdx.BOMFileFormatXML
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := cdx.NewBOMEncoder(f, fileFmt)
	encoder.SetPretty(true)

	if spec == "" {
		err = encoder.Encode(bom)
	} else {
		sv, ok := ParseSpecVersion(spec)
		if !ok {
			return fmt.Errorf("unsupported CycloneDX spec version: %q", spec)
		}
		err = encoder.EncodeVersion(bom, sv)
	}
	if err != nil {
		return err
	}
	logf(outputPath, "wrote %s model card", actual)
	return nil
}

// ParseSpecVersion maps "1.5" style strings to spec versions. Fairness
// assessments need 1.5 or later.
func ParseSpecVersion(s string) (cdx.SpecVersion, bool) {
	switch s {
	case "1.5":
		return cdx.SpecVersion1_5, true
	case "1.6":
		return cdx.SpecVersion1_6, true
	default:
		return 0, false
	}
}
