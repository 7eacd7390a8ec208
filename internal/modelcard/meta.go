package modelcard

import (
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
)

const (
	DefaultToolVendor = "idlab-discover"
	DefaultToolName   = "fairleak"
)

// AddMetaSerialNumber sets a serial number if not already set.
func AddMetaSerialNumber(bom *cdx.BOM) {
	if bom.SerialNumber == "" {
		bom.SerialNumber = "urn:uuid:" + uuid.New().String()
	}
}

// AddMetaTimestamp sets the timestamp if not already set.
func AddMetaTimestamp(bom *cdx.BOM, now time.Time) {
	if bom.Metadata == nil {
		bom.Metadata = &cdx.Metadata{}
	}
	if bom.Metadata.Timestamp == "" {
		bom.Metadata.Timestamp = now.Format(time.RFC3339)
	}
}

// AddMetaTools appends this tool to bom.metadata.tools.components.
func AddMetaTools(bom *cdx.BOM, version string) {
	if bom.Metadata == nil {
		bom.Metadata = &cdx.Metadata{}
	}
	if bom.Metadata.Tools == nil {
		bom.Metadata.Tools = &cdx.ToolsChoice{}
	}
	if version == "" {
		version = ToolVersion()
	}
	comp := cdx.Component{
		Type:         cdx.ComponentTypeApplication,
		Manufacturer: &cdx.OrganizationalEntity{Name: DefaultToolVendor},
		Name:         DefaultToolName,
		Version:      version,
	}
	if bom.Metadata.Tools.Components == nil {
		bom.Metadata.Tools.Components = &[]cdx.Component{comp}
		return
	}
	components := append(*bom.Metadata.Tools.Components, comp)
	bom.Metadata.Tools.Components = &components
}
