// Package deployer runs the deployment sequence: tool lookup, precondition
// check, conversion, parsing, submission and the completion wait. Every run is
// independent and produces exactly one Outcome.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alevsk/bicep-deployer/internal/azure"
	"github.com/alevsk/bicep-deployer/internal/lock"
	"github.com/alevsk/bicep-deployer/internal/logger"
	"github.com/alevsk/bicep-deployer/internal/metrics"
	"github.com/alevsk/bicep-deployer/internal/types"
)

// Checker confirms the resource group exists.
type Checker interface {
	Check(ctx context.Context, resourceGroup string) error
}

// Converter locates the conversion tool, runs it and loads its output.
type Converter interface {
	Locate() (string, error)
	Convert(ctx context.Context, toolPath, source string) (string, error)
	Load(path string) (types.NativeTemplate, error)
}

// Submitter submits a deployment and waits for it to finish.
type Submitter interface {
	Begin(ctx context.Context, req types.DeploymentRequest, template types.NativeTemplate) (azure.OperationHandle, error)
	Wait(ctx context.Context, handle azure.OperationHandle) (*azure.DeploymentResult, error)
}

// Components are the collaborators a Deployer is built from. Locker and
// Recorder are optional.
type Components struct {
	Checker   Checker
	Converter Converter
	Submitter Submitter
	Locker    lock.Locker
	Recorder  *metrics.Recorder
}

// Deployer holds the immutable request and the collaborators.
type Deployer struct {
	request   types.DeploymentRequest
	checker   Checker
	converter Converter
	submitter Submitter
	locker    lock.Locker
	recorder  *metrics.Recorder
	now       func() time.Time
}

// Error types for constructing a Deployer
var (
	ErrMissingComponent = errors.New("missing deployer component")
	ErrInvalidRequest   = errors.New("invalid deployment request")
	ErrUnsupportedMode  = errors.New("unsupported deployment mode")
)

// New validates the request and components and returns a Deployer.
func New(req types.DeploymentRequest, c Components) (*Deployer, error) {
	if c.Checker == nil || c.Converter == nil || c.Submitter == nil {
		return nil, ErrMissingComponent
	}
	if req.ResourceGroup == "" || req.TemplateFile == "" || req.DeploymentName == "" {
		return nil, ErrInvalidRequest
	}
	// only incremental deployments are submitted; complete mode would delete
	// resources the template does not list
	switch req.Mode {
	case "":
		req.Mode = types.ModeIncremental
	case types.ModeIncremental:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, req.Mode)
	}
	locker := c.Locker
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Deployer{
		request:   req,
		checker:   c.Checker,
		converter: c.Converter,
		submitter: c.Submitter,
		locker:    locker,
		recorder:  c.Recorder,
		now:       time.Now,
	}, nil
}

// Request returns the request every run uses.
func (d *Deployer) Request() types.DeploymentRequest {
	return d.request
}

// Deploy executes one run and returns its outcome. It never returns nil.
func (d *Deployer) Deploy(ctx context.Context) *types.Outcome {
	r := &run{
		id:      uuid.NewString(),
		machine: types.NewMachine(),
	}
	outcome := &types.Outcome{
		ID:        r.id,
		Request:   d.request,
		StartedAt: d.now(),
	}
	d.recorder.Started()

	logger.Info().
		Str("run_id", r.id).
		Str("resource_group", d.request.ResourceGroup).
		Str("template", d.request.TemplateFile).
		Msg("deployment started")

	failure := d.execute(ctx, r)
	if failure != nil {
		r.enter(types.StateFailed)
		outcome.Failure = failure
		logger.Error().
			Str("run_id", r.id).
			Str("stage", string(failure.Kind)).
			Str("reason", failure.Reason).
			Msg("deployment failed")
	} else {
		r.enter(types.StateDone)
		outcome.Success = true
		logger.Info().Str("run_id", r.id).Msg("deployment succeeded")
	}

	outcome.State = r.machine.Current()
	outcome.Trace = r.machine.Trace()
	outcome.FinishedAt = d.now()

	stage := ""
	if failure != nil {
		stage = string(failure.Kind)
	}
	d.recorder.Finished(outcome.Success, stage, outcome.Duration())
	return outcome
}

// Preflight runs the tool lookup and the precondition check only.
func (d *Deployer) Preflight(ctx context.Context) *types.Failure {
	if _, err := d.converter.Locate(); err != nil {
		return types.NewFailure(types.KindToolNotFound, err)
	}
	if err := d.checker.Check(ctx, d.request.ResourceGroup); err != nil {
		return types.NewFailure(types.KindPreconditionFailed, err)
	}
	return nil
}

// execute walks the state machine. The first failing stage ends the run.
func (d *Deployer) execute(ctx context.Context, r *run) *types.Failure {
	toolPath, err := d.converter.Locate()
	if err != nil {
		return types.NewFailure(types.KindToolNotFound, err)
	}
	logger.Debug().Str("run_id", r.id).Str("tool", toolPath).Msg("using conversion tool")

	r.enter(types.StateCheckingPrecondition)
	lease, err := d.locker.TryLock(ctx, d.request.ResourceGroup)
	if err != nil {
		return types.NewFailure(types.KindPreconditionFailed, err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Str("run_id", r.id).Err(err).Msg("failed to release deployment lock")
		}
	}()
	if err := d.checker.Check(ctx, d.request.ResourceGroup); err != nil {
		return types.NewFailure(types.KindPreconditionFailed, err)
	}

	r.enter(types.StateConverting)
	armPath, err := d.converter.Convert(ctx, toolPath, d.request.TemplateFile)
	if err != nil {
		return types.NewFailure(types.KindConversionFailed, err)
	}

	r.enter(types.StateParsing)
	template, err := d.converter.Load(armPath)
	if err != nil {
		return types.NewFailure(types.KindParseFailed, err)
	}

	r.enter(types.StateSubmitting)
	handle, err := d.submitter.Begin(ctx, d.request, template)
	if err != nil {
		return types.NewFailure(types.KindSubmissionFailed, err)
	}

	r.enter(types.StateWaitingForCompletion)
	result, err := d.submitter.Wait(ctx, handle)
	if err != nil {
		return types.NewFailure(types.KindSubmissionFailed, err)
	}
	if result != nil {
		logger.Debug().
			Str("run_id", r.id).
			Str("provisioning_state", result.ProvisioningState).
			Str("correlation_id", result.CorrelationID).
			Msg("deployment finished")
	}

	return nil
}

type run struct {
	id      string
	machine *types.Machine
}

func (r *run) enter(s types.State) {
	from := r.machine.Current()
	if err := r.machine.Advance(s); err != nil {
		logger.Error().Str("run_id", r.id).Err(err).Msg("state machine violation")
		return
	}
	logger.Debug().Str("run_id", r.id).Str("from", string(from)).Str("to", string(s)).Msg("state transition")
}
