package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alevsk/bicep-deployer/internal/azure"
	"github.com/alevsk/bicep-deployer/internal/config"
	"github.com/alevsk/bicep-deployer/internal/converter"
	"github.com/alevsk/bicep-deployer/internal/deployer"
	"github.com/alevsk/bicep-deployer/internal/lock"
	"github.com/alevsk/bicep-deployer/internal/metrics"
	"github.com/alevsk/bicep-deployer/internal/precheck"
	"github.com/alevsk/bicep-deployer/internal/submitter"
	"github.com/alevsk/bicep-deployer/internal/types"
)

// exitError ends the process with a specific code without printing anything more
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app is everything a command needs, built once from the loaded configuration
type app struct {
	deployer *deployer.Deployer
	registry *prometheus.Registry
	closers  []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// buildApp validates cfg and wires the Azure client, the conversion tool,
// the lock backend and the metrics registry into a Deployer.
func buildApp(cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cred, err := azure.NewCredential(azure.Credentials{
		TenantID:     cfg.Azure.TenantID,
		ClientID:     cfg.Azure.ClientID,
		ClientSecret: cfg.Azure.ClientSecret,
	})
	if err != nil {
		return nil, err
	}
	client, err := azure.NewClient(cfg.Azure.SubscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}

	conv, err := converter.NewForType(converter.ToolType(cfg.Deployment.Tool), &converter.Options{
		Timeout: cfg.Deployment.ToolTimeout,
		Strict:  cfg.Deployment.StrictTemplate,
	})
	if err != nil {
		return nil, err
	}

	locker, err := lock.Open(cfg.Lock.Backend, lock.RedisOptions{
		Addr:     cfg.Lock.RedisAddr,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
		TTL:      cfg.Lock.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening lock backend: %w", err)
	}

	a := &app{registry: prometheus.NewRegistry()}
	if c, ok := locker.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(a.registry)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.deployer, err = deployer.New(types.DeploymentRequest{
		ResourceGroup:  cfg.Deployment.ResourceGroup,
		TemplateFile:   cfg.Deployment.TemplateFile,
		DeploymentName: cfg.Deployment.Name,
		Mode:           types.ModeIncremental,
	}, deployer.Components{
		Checker:   precheck.New(client),
		Converter: conv,
		Submitter: submitter.New(client, &submitter.Options{WaitTimeout: cfg.Deployment.WaitTimeout}),
		Locker:    locker,
		Recorder:  recorder,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
