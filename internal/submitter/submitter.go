// Package submitter sends a converted template to Azure Resource Manager and
// waits for the deployment to reach a terminal state.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alevsk/bicep-deployer/internal/azure"
	"github.com/alevsk/bicep-deployer/internal/logger"
	"github.com/alevsk/bicep-deployer/internal/types"
)

// ErrSubmissionFailed marks every error raised while submitting or waiting
var ErrSubmissionFailed = errors.New("submission failed")

// Phase tells which half of the submission an error came from
type Phase string

const (
	PhaseSubmit Phase = "submit"
	PhaseWait   Phase = "wait"
)

// SubmissionError carries the provider's error text unchanged.
type SubmissionError struct {
	Phase Phase
	Err   error
}

func (e *SubmissionError) Error() string {
	return e.Err.Error()
}

func (e *SubmissionError) Unwrap() []error {
	return []error{ErrSubmissionFailed, e.Err}
}

// Options configures the submitter
type Options struct {
	// WaitTimeout bounds the wait for a terminal state; zero waits indefinitely
	WaitTimeout time.Duration
}

// Submitter packages a template into a deployment envelope and submits it.
type Submitter struct {
	api  azure.DeploymentsAPI
	opts *Options
}

// New creates a Submitter
func New(api azure.DeploymentsAPI, opts *Options) *Submitter {
	if opts == nil {
		opts = &Options{}
	}
	return &Submitter{api: api, opts: opts}
}

// Begin submits the deployment and returns the provider's operation handle.
func (s *Submitter) Begin(ctx context.Context, req types.DeploymentRequest, template types.NativeTemplate) (azure.OperationHandle, error) {
	envelope := types.NewEnvelope(req.Mode, template)
	logger.Debug().
		Str("resource_group", req.ResourceGroup).
		Str("deployment", req.DeploymentName).
		Str("mode", string(req.Mode)).
		Msg("submitting deployment")

	handle, err := s.api.BeginDeployment(ctx, req.ResourceGroup, req.DeploymentName, envelope)
	if err != nil {
		return nil, &SubmissionError{Phase: PhaseSubmit, Err: err}
	}
	if handle == nil {
		return nil, &SubmissionError{Phase: PhaseSubmit, Err: errors.New("provider returned no operation handle")}
	}
	return handle, nil
}

// Wait blocks on the handle until the provider reports success or failure.
func (s *Submitter) Wait(ctx context.Context, handle azure.OperationHandle) (*azure.DeploymentResult, error) {
	if s.opts.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.WaitTimeout)
		defer cancel()
	}

	result, err := handle.Wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, &SubmissionError{Phase: PhaseWait, Err: err}
	}
	if result == nil {
		result = &azure.DeploymentResult{}
	}
	logger.Debug().
		Str("provisioning_state", result.ProvisioningState).
		Str("correlation_id", result.CorrelationID).
		Msg("deployment reached terminal state")
	return result, nil
}

// Submit is Begin followed by Wait.
func (s *Submitter) Submit(ctx context.Context, req types.DeploymentRequest, template types.NativeTemplate) (*azure.DeploymentResult, error) {
	handle, err := s.Begin(ctx, req, template)
	if err != nil {
		return nil, err
	}
	return s.Wait(ctx, handle)
}
