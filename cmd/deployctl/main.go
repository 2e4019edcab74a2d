// Command deployctl provisions the AWS resources an agent deployment needs.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomdee2/samples/config"
	"github.com/tomdee2/samples/deploy"
)

func main() {
	var region string

	root := &cobra.Command{
		Use:   "deployctl",
		Short: "Provision AWS resources for agent deployments",
	}
	root.PersistentFlags().StringVar(&region, "region", "us-west-2", "AWS region")

	createRole := &cobra.Command{
		Use:   "create-role <agent-name>",
		Short: "Create (or reuse) the execution role for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			warnIfNoAWS()
			p, err := deploy.NewProvisioner(cmd.Context(), region)
			if err != nil {
				return err
			}
			info, err := p.CreateExecutionRole(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Execution role ready:\n  Name: %s\n  ARN:  %s\n", info.RoleName, info.Arn)
			return nil
		},
	}

	deleteRole := &cobra.Command{
		Use:   "delete-role <agent-name>",
		Short: "Delete an agent's execution role and its inline policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			warnIfNoAWS()
			p, err := deploy.NewProvisioner(cmd.Context(), region)
			if err != nil {
				return err
			}
			if err := p.DeleteExecutionRole(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Execution role for %s removed.\n", args[0])
			return nil
		},
	}

	setupObservability := &cobra.Command{
		Use:   "setup-observability <service-name>",
		Short: "Create the CloudWatch log group and stream a service writes to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := warnIfNoAWS()
			if env != nil && !env.ObservabilityEnabled {
				fmt.Println("Note: AGENT_OBSERVABILITY_ENABLED is false; resources will be created but agents will not emit telemetry.")
			}
			o, err := deploy.NewObservability(cmd.Context(), region)
			if err != nil {
				return err
			}
			dest, err := o.Setup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Observability ready:\n  Log group:  %s\n  Log stream: %s\n", dest.LogGroup, dest.LogStream)
			fmt.Println("Point the deployment's telemetry exporter at the log group above.")
			return nil
		},
	}

	root.AddCommand(createRole, deleteRole, setupObservability)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// warnIfNoAWS surfaces missing credentials up front; the AWS calls will
// still run and produce their own errors.
func warnIfNoAWS() *config.Env {
	env, err := config.LoadEnv()
	if err != nil {
		log.Printf("could not read environment: %v", err)
		return nil
	}
	if !env.HasAWS() {
		fmt.Println("Warning: no AWS credentials found in the environment; calls will use the default credential chain and may fail.")
	}
	return env
}
