package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alevsk/bicep-deployer/internal/reporter"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the conversion tool and the resource group without deploying",
	Args:  cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		applyDeploymentFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if failure := a.deployer.Preflight(cmd.Context()); failure != nil {
			fmt.Fprintln(cmd.OutOrStdout(), reporter.FailureMessage(failure))
			return &exitError{code: 1}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ready: %s found, resource group '%s' exists\n",
			cfg.Deployment.Tool, cfg.Deployment.ResourceGroup)
		return nil
	},
}

func init() {
	addDeploymentFlags(checkCmd)
}
