package converter

import "fmt"

// ToolType represents the type of conversion tool
type ToolType string

const (
	// ToolTypeAz runs "az bicep build --file <source>"
	ToolTypeAz ToolType = "az"
	// ToolTypeBicep runs the standalone "bicep build <source>"
	ToolTypeBicep ToolType = "bicep"
)

// AzCLI is the Azure CLI with its bundled Bicep compiler
type AzCLI struct{}

// Name implements Tool
func (AzCLI) Name() string { return "az" }

// Args implements Tool
func (AzCLI) Args(source string) []string {
	return []string{"bicep", "build", "--file", source}
}

// BicepCLI is the standalone Bicep compiler
type BicepCLI struct{}

// Name implements Tool
func (BicepCLI) Name() string { return "bicep" }

// Args implements Tool
func (BicepCLI) Args(source string) []string {
	return []string{"build", source}
}

// GetTool returns a tool based on the given type
func GetTool(typ ToolType) (Tool, error) {
	switch typ {
	case ToolTypeAz:
		return AzCLI{}, nil
	case ToolTypeBicep:
		return BicepCLI{}, nil
	default:
		return nil, fmt.Errorf("unknown conversion tool: %s", typ)
	}
}

// NewForType creates a Converter for the named tool
func NewForType(typ ToolType, opts *Options) (*Converter, error) {
	tool, err := GetTool(typ)
	if err != nil {
		return nil, err
	}
	return New(tool, opts), nil
}
