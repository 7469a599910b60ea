// Package reporter turns a deployment outcome into the message shown to the
// user, in plain text, an HTML fragment, JSON, YAML or a table.
package reporter

import (
	"fmt"

	"github.com/alevsk/bicep-deployer/internal/types"
)

// SuccessMessage is shown for every successful run
const SuccessMessage = "Lab deployed successfully!"

// Message returns the single user-facing message for an outcome.
func Message(o *types.Outcome) string {
	if o == nil {
		return "Error: no deployment outcome"
	}
	if o.Success {
		return SuccessMessage
	}
	return FailureMessage(o.Failure)
}

// FailureMessage renders a failure with its reason embedded verbatim.
func FailureMessage(f *types.Failure) string {
	if f == nil {
		return "Error: deployment failed without a reason"
	}
	switch f.Kind {
	case types.KindToolNotFound:
		return fmt.Sprintf("Error: %s", f.Reason)
	case types.KindPreconditionFailed:
		return fmt.Sprintf("Error: precondition check failed: %s", f.Reason)
	case types.KindConversionFailed:
		return fmt.Sprintf("Bicep conversion failed: %s", f.Reason)
	case types.KindParseFailed:
		return fmt.Sprintf("Error: converted template could not be parsed: %s", f.Reason)
	case types.KindSubmissionFailed:
		return fmt.Sprintf("Error: deployment submission failed: %s", f.Reason)
	default:
		return fmt.Sprintf("Error: %s: %s", f.Kind, f.Reason)
	}
}
