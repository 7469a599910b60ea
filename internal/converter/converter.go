// Package converter turns a Bicep template into an ARM JSON document by
// running an external conversion tool and loading the file it produces.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/alevsk/bicep-deployer/internal/logger"
	"github.com/alevsk/bicep-deployer/internal/types"
)

// Options contains configuration options for the converter
type Options struct {
	// Timeout bounds the tool invocation; zero waits for the tool to exit
	Timeout time.Duration
	// Strict requires the converted document to look like an ARM template
	Strict bool
}

// DefaultOptions returns a new Options with default values
func DefaultOptions() *Options {
	return &Options{
		Timeout: 0,
		Strict:  false,
	}
}

// Error types for the converter package
var (
	ErrToolNotFound     = errors.New("conversion tool not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConversionFailed = errors.New("conversion failed")
	ErrParseFailed      = errors.New("parse failed")
)

// Tool describes an external program able to compile Bicep into ARM JSON.
type Tool interface {
	// Name is the executable looked up on PATH
	Name() string
	// Args returns the arguments that build the given source file
	Args(source string) []string
}

// ConversionError carries the diagnostic output of a failed tool run.
type ConversionError struct {
	ExitCode int
	Stderr   string
	Stdout   string
	Err      error
}

// Error returns the tool's own diagnostic text unmodified when there is any.
func (e *ConversionError) Error() string {
	switch {
	case e.Stderr != "":
		return e.Stderr
	case e.Stdout != "":
		return e.Stdout
	case e.Err != nil:
		return e.Err.Error()
	default:
		return ErrConversionFailed.Error()
	}
}

func (e *ConversionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConversionFailed}
	}
	return []error{ErrConversionFailed, e.Err}
}

// Converter runs a Tool and loads its output.
type Converter struct {
	tool     Tool
	opts     *Options
	lookPath func(string) (string, error)
}

// New creates a Converter for the given tool
func New(tool Tool, opts *Options) *Converter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Converter{
		tool:     tool,
		opts:     opts,
		lookPath: exec.LookPath,
	}
}

// ToolName returns the executable name the converter looks for.
func (c *Converter) ToolName() string {
	return c.tool.Name()
}

// Locate finds the tool on PATH and returns its full path.
func (c *Converter) Locate() (string, error) {
	path, err := c.lookPath(c.tool.Name())
	if err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH: %w", ErrToolNotFound, c.tool.Name(), err)
	}
	return path, nil
}

// Convert runs the tool located at toolPath against source and returns the
// path of the ARM JSON file it produced.
func (c *Converter) Convert(ctx context.Context, toolPath, source string) (string, error) {
	if err := validateSource(source); err != nil {
		return "", &ConversionError{Err: err}
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	args := c.tool.Args(source)
	logger.Debug().Str("tool", toolPath).Strs("args", args).Msg("running conversion tool")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, toolPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", &ConversionError{
			ExitCode: exitCode(runErr),
			Stderr:   stderr.String(),
			Stdout:   stdout.String(),
			Err:      fmt.Errorf("%s %s interrupted: %w", c.tool.Name(), strings.Join(args, " "), ctxErr),
		}
	}
	if runErr != nil || signalsFailure(stderr.String()) {
		return "", &ConversionError{
			ExitCode: exitCode(runErr),
			Stderr:   stderr.String(),
			Stdout:   stdout.String(),
			Err:      runErr,
		}
	}
	if stderr.Len() > 0 {
		logger.Warn().Str("tool", c.tool.Name()).Str("output", stderr.String()).Msg("conversion tool reported diagnostics")
	}

	return ARMTemplatePath(source), nil
}

// Load reads the converted file and parses it into a NativeTemplate.
func (c *Converter) Load(path string) (types.NativeTemplate, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read converted template: %w", ErrParseFailed, err)
	}
	return Parse(content, c.opts.Strict)
}

// ARMTemplatePath derives the file the conversion tool writes for source:
// the same path with the ".bicep" extension replaced by ".json". The tool does
// not report this path, so the naming rule lives here and nowhere else.
func ARMTemplatePath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".json"
}

func validateSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("%w: empty template path", ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(source), ".bicep") {
		return fmt.Errorf("%w: %s is not a .bicep file", ErrInvalidInput, source)
	}
	return nil
}

// signalsFailure reports whether diagnostics contain an error even though the
// tool exited cleanly. Bicep prints "file.bicep(l,c) : Error BCPxxx: ..." and
// the Azure CLI prints "ERROR: ...".
func signalsFailure(stderr string) bool {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") || strings.Contains(line, ") : Error ") {
			return true
		}
	}
	return false
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}
