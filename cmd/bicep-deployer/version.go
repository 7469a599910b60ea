package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionOutput string

type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

// formatVersion renders info as plain text, json or yaml
func formatVersion(info VersionInfo, output string) (string, error) {
	switch output {
	case "json":
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return "", fmt.Errorf("error formatting version to JSON: %w", err)
		}
		return string(out) + "\n", nil
	case "yaml":
		out, err := yaml.Marshal(info)
		if err != nil {
			return "", fmt.Errorf("error formatting version to YAML: %w", err)
		}
		return string(out), nil
	case "plain", "":
		return fmt.Sprintf("%s (built: %s commit: %s)\n", info.Version, info.Date, info.Commit), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", output)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bicep-deployer",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := formatVersion(VersionInfo{Version: version, Commit: commit, Date: date}, versionOutput)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "plain", "output format (plain, json, yaml)")
}
