package reporter

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/alevsk/bicep-deployer/internal/types"
)

// Formatter defines the interface for formatting an outcome
type Formatter interface {
	Format(o *types.Outcome) (string, error)
}

// Type represents the type of formatter
type Type string

const (
	// TypeText prints the message only
	TypeText Type = "text"
	// TypeHTML renders a colored status fragment
	TypeHTML Type = "html"
	// TypeJSON formats the outcome as JSON
	TypeJSON Type = "json"
	// TypeYAML formats the outcome as YAML
	TypeYAML Type = "yaml"
	// TypeTable formats the outcome as a table
	TypeTable Type = "table"
)

// Text implements plain text formatting
type Text struct{}

// HTML implements HTML fragment formatting
type HTML struct{}

// JSON implements JSON formatting
type JSON struct{}

// YAML implements YAML formatting
type YAML struct{}

// Table implements table formatting
type Table struct{}

// report is the serialized view of an outcome
type report struct {
	Message string         `json:"message" yaml:"message"`
	Outcome *types.Outcome `json:"outcome" yaml:"outcome"`
}

// Format returns the message followed by a newline
func (Text) Format(o *types.Outcome) (string, error) {
	return Message(o) + "\n", nil
}

// Format renders a span colored by result. The message is HTML-escaped so
// provider text shows up literally in the page.
func (HTML) Format(o *types.Outcome) (string, error) {
	color := "red"
	if o != nil && o.Success {
		color = "green"
	}
	return fmt.Sprintf("<span style='color: %s;'>%s</span>", color, html.EscapeString(Message(o))), nil
}

// Format formats the outcome as JSON
func (JSON) Format(o *types.Outcome) (string, error) {
	bytes, err := json.MarshalIndent(report{Message: Message(o), Outcome: o}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting as JSON: %w", err)
	}
	return string(bytes), nil
}

// Format formats the outcome as YAML
func (YAML) Format(o *types.Outcome) (string, error) {
	bytes, err := yaml.Marshal(report{Message: Message(o), Outcome: o})
	if err != nil {
		return "", fmt.Errorf("error formatting as YAML: %w", err)
	}
	return string(bytes), nil
}

// Format formats the outcome as a table using go-pretty/v6/table
func (Table) Format(o *types.Outcome) (string, error) {
	if o == nil {
		return "", fmt.Errorf("nothing to format")
	}

	t := table.NewWriter()
	t.SetOutputMirror(nil)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateColumns = true
	t.SetTitle("DEPLOYMENT")
	t.AppendHeader(table.Row{"KEY", "VALUE"})

	result := "SUCCESS"
	if !o.Success {
		result = "FAILED"
	}

	t.AppendRow(table.Row{"RUN", o.ID})
	t.AppendRow(table.Row{"RESOURCE GROUP", o.Request.ResourceGroup})
	t.AppendRow(table.Row{"DEPLOYMENT", o.Request.DeploymentName})
	t.AppendRow(table.Row{"TEMPLATE", o.Request.TemplateFile})
	t.AppendRow(table.Row{"MODE", o.Request.Mode})
	t.AppendRow(table.Row{"RESULT", result})
	if o.Failure != nil {
		t.AppendRow(table.Row{"STAGE", o.Failure.Kind})
	}
	t.AppendRow(table.Row{"STATES", joinStates(o.Trace)})
	t.AppendRow(table.Row{"DURATION", o.Duration().String()})
	t.AppendRow(table.Row{"MESSAGE", Message(o)})

	return t.Render() + "\n", nil
}

func joinStates(states []types.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " → ")
}

// ParseType converts a string to a Type
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeText, TypeHTML, TypeJSON, TypeYAML, TypeTable:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown formatter type: %s", s)
	}
}

// NewFormatter creates a new formatter of the specified type
func NewFormatter(t Type) (Formatter, error) {
	switch t {
	case TypeText:
		return Text{}, nil
	case TypeHTML:
		return HTML{}, nil
	case TypeJSON:
		return JSON{}, nil
	case TypeYAML:
		return YAML{}, nil
	case TypeTable:
		return Table{}, nil
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", t)
	}
}
