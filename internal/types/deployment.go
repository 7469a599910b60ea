// Package types holds the values that flow through a single deployment run.
package types

import (
	"fmt"
	"strings"
)

// DeploymentMode controls what happens to resources in the resource group
// that the template does not mention.
type DeploymentMode string

const (
	// ModeIncremental leaves unlisted resources untouched.
	ModeIncremental DeploymentMode = "Incremental"
	// ModeComplete removes resources not present in the template.
	ModeComplete DeploymentMode = "Complete"
)

// ParseMode converts a case-insensitive string into a DeploymentMode.
func ParseMode(s string) (DeploymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "incremental":
		return ModeIncremental, nil
	case "complete":
		return ModeComplete, nil
	default:
		return "", fmt.Errorf("unknown deployment mode: %s", s)
	}
}

// DeploymentRequest describes one deployment attempt. It is built fresh for
// every run and never modified afterwards.
type DeploymentRequest struct {
	// ResourceGroup is the target resource group name
	ResourceGroup string `json:"resourceGroup" yaml:"resourceGroup"`
	// TemplateFile is the path to the source Bicep template
	TemplateFile string `json:"templateFile" yaml:"templateFile"`
	// DeploymentName is the fixed name the deployment is submitted under
	DeploymentName string `json:"deploymentName" yaml:"deploymentName"`
	// Mode is the deployment mode sent to the provider
	Mode DeploymentMode `json:"mode" yaml:"mode"`
}

// NativeTemplate is the parsed ARM JSON document produced by the converter.
type NativeTemplate map[string]interface{}

// DeploymentProperties is the inner part of the submission envelope.
type DeploymentProperties struct {
	Mode     DeploymentMode `json:"mode"`
	Template NativeTemplate `json:"template"`
}

// Envelope is the body submitted to the resource-management API:
// {"properties": {"mode": ..., "template": ...}}.
type Envelope struct {
	Properties DeploymentProperties `json:"properties"`
}

// NewEnvelope wraps a template with the given mode.
func NewEnvelope(mode DeploymentMode, template NativeTemplate) Envelope {
	return Envelope{
		Properties: DeploymentProperties{
			Mode:     mode,
			Template: template,
		},
	}
}
