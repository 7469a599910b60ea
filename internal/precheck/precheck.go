// Package precheck confirms that the target resource group exists before any
// conversion or submission work starts.
package precheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/alevsk/bicep-deployer/internal/azure"
	"github.com/alevsk/bicep-deployer/internal/logger"
)

// Error types for the precondition check
var (
	ErrResourceGroupNotFound = errors.New("resource group not found")
	ErrListFailed            = errors.New("failed to list resource groups")
)

// Checker verifies the resource group against a fresh listing on every call.
type Checker struct {
	lister azure.ResourceGroupLister
}

// New creates a Checker backed by the given lister.
func New(lister azure.ResourceGroupLister) *Checker {
	return &Checker{lister: lister}
}

// Check returns nil when resourceGroup is listed under the subscription.
// The comparison is exact and case-sensitive.
func (c *Checker) Check(ctx context.Context, resourceGroup string) error {
	logger.Debug().Str("resource_group", resourceGroup).Msg("checking resource group exists")

	names, err := c.lister.ListResourceGroups(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListFailed, err)
	}

	for _, name := range names {
		if name == resourceGroup {
			return nil
		}
	}
	return fmt.Errorf("%w: Resource Group '%s' not found", ErrResourceGroupNotFound, resourceGroup)
}
