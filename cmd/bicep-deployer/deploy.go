package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alevsk/bicep-deployer/internal/reporter"
)

var deployOpts struct {
	output        string
	resourceGroup string
	templateFile  string
	name          string
	tool          string
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Convert the Bicep template and deploy it once",
	Long: `Convert the configured Bicep template to ARM JSON and deploy it into the
configured resource group. The command exits with status 1 when any stage fails.

Examples:
  # Deploy using .env / config.yml
  bicep-deployer deploy

  # Override the template and resource group
  bicep-deployer deploy --template ./lab/main.bicep --resource-group lab-rg

  # Print the full outcome as JSON
  bicep-deployer deploy -o json`,
	Args: cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		applyDeploymentFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := reporter.ParseType(deployOpts.output)
		if err != nil {
			return err
		}
		formatter, err := reporter.NewFormatter(typ)
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		outcome := a.deployer.Deploy(cmd.Context())
		out, err := formatter.Format(outcome)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)

		if !outcome.Success {
			return &exitError{code: 1}
		}
		return nil
	},
}

// applyDeploymentFlags copies explicitly set deployment flags over the loaded config
func applyDeploymentFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("resource-group") {
		cfg.Deployment.ResourceGroup = deployOpts.resourceGroup
	}
	if flags.Changed("template") {
		cfg.Deployment.TemplateFile = deployOpts.templateFile
	}
	if flags.Changed("name") {
		cfg.Deployment.Name = deployOpts.name
	}
	if flags.Changed("tool") {
		cfg.Deployment.Tool = deployOpts.tool
	}
}

func addDeploymentFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&deployOpts.resourceGroup, "resource-group", "g", "", "target resource group (default: RESOURCE_GROUP)")
	flags.StringVar(&deployOpts.templateFile, "template", "", "Bicep template to deploy (default: BICEP_FILE)")
	flags.StringVar(&deployOpts.tool, "tool", "", "conversion tool (az, bicep)")
}

func init() {
	addDeploymentFlags(deployCmd)
	flags := deployCmd.Flags()
	flags.StringVarP(&deployOpts.output, "output", "o", "text", "output format (text, json, yaml, table)")
	flags.StringVarP(&deployOpts.name, "name", "n", "", "deployment name (default: DeploymentName)")
}
