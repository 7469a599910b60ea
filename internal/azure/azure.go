// Package azure wraps the Azure Resource Manager SDK behind the two small
// interfaces the deployment flow needs: listing resource groups and starting
// a deployment that can be waited on.
package azure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/alevsk/bicep-deployer/internal/types"
)

// ErrMissingCredentials is returned when tenant, client id or secret is empty
var ErrMissingCredentials = errors.New("missing azure credentials")

// ResourceGroupLister lists the resource group names visible to the subscription.
type ResourceGroupLister interface {
	ListResourceGroups(ctx context.Context) ([]string, error)
}

// DeploymentsAPI starts deployments into a resource group.
type DeploymentsAPI interface {
	BeginDeployment(ctx context.Context, resourceGroup, name string, envelope types.Envelope) (OperationHandle, error)
}

// OperationHandle is an in-progress provider operation.
type OperationHandle interface {
	// Wait blocks until the provider reports a terminal state.
	Wait(ctx context.Context) (*DeploymentResult, error)
}

// DeploymentResult is what the provider reports once a deployment finished.
type DeploymentResult struct {
	ID                string
	ProvisioningState string
	CorrelationID     string
	Duration          string
}

// Credentials identifies the service principal used to talk to ARM.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// NewCredential builds a client secret credential for the service principal.
func NewCredential(c Credentials) (azcore.TokenCredential, error) {
	if c.TenantID == "" || c.ClientID == "" || c.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create client secret credential: %w", err)
	}
	return cred, nil
}

// Options configures the ARM client
type Options struct {
	// ClientOptions is passed to the ARM client factory as is
	ClientOptions *arm.ClientOptions
	// PollFrequency is how often the deployment is polled while waiting;
	// zero uses the SDK default
	PollFrequency time.Duration
}

// Client implements ResourceGroupLister and DeploymentsAPI on top of armresources.
type Client struct {
	groups        *armresources.ResourceGroupsClient
	deployments   *armresources.DeploymentsClient
	pollFrequency time.Duration
}

// NewClient creates a Client for the given subscription.
func NewClient(subscriptionID string, cred azcore.TokenCredential, opts *Options) (*Client, error) {
	if subscriptionID == "" {
		return nil, errors.New("subscription id is required")
	}
	if opts == nil {
		opts = &Options{}
	}
	factory, err := armresources.NewClientFactory(subscriptionID, cred, opts.ClientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create resources client factory: %w", err)
	}
	return &Client{
		groups:        factory.NewResourceGroupsClient(),
		deployments:   factory.NewDeploymentsClient(),
		pollFrequency: opts.PollFrequency,
	}, nil
}

// ListResourceGroups walks every page of the resource group listing.
func (c *Client) ListResourceGroups(ctx context.Context) ([]string, error) {
	var names []string
	pager := c.groups.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, rg := range page.Value {
			if rg == nil || rg.Name == nil {
				continue
			}
			names = append(names, *rg.Name)
		}
	}
	return names, nil
}

// BeginDeployment submits the envelope and returns a handle to wait on.
func (c *Client) BeginDeployment(ctx context.Context, resourceGroup, name string, envelope types.Envelope) (OperationHandle, error) {
	poller, err := c.deployments.BeginCreateOrUpdate(ctx, resourceGroup, name, toDeployment(envelope), nil)
	if err != nil {
		return nil, err
	}
	return &pollerHandle{poller: poller, frequency: c.pollFrequency}, nil
}

// toDeployment maps the envelope onto the SDK model.
func toDeployment(envelope types.Envelope) armresources.Deployment {
	return armresources.Deployment{
		Properties: &armresources.DeploymentProperties{
			Mode:     to.Ptr(armresources.DeploymentMode(envelope.Properties.Mode)),
			Template: map[string]interface{}(envelope.Properties.Template),
		},
	}
}

type pollerHandle struct {
	poller    *runtime.Poller[armresources.DeploymentsClientCreateOrUpdateResponse]
	frequency time.Duration
}

func (h *pollerHandle) Wait(ctx context.Context) (*DeploymentResult, error) {
	var opts *runtime.PollUntilDoneOptions
	if h.frequency > 0 {
		opts = &runtime.PollUntilDoneOptions{Frequency: h.frequency}
	}
	resp, err := h.poller.PollUntilDone(ctx, opts)
	if err != nil {
		return nil, err
	}
	result := &DeploymentResult{}
	if resp.ID != nil {
		result.ID = *resp.ID
	}
	if p := resp.Properties; p != nil {
		if p.ProvisioningState != nil {
			result.ProvisioningState = string(*p.ProvisioningState)
		}
		if p.CorrelationID != nil {
			result.CorrelationID = *p.CorrelationID
		}
		if p.Duration != nil {
			result.Duration = *p.Duration
		}
	}
	return result, nil
}
