package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Regsync/internal/prober"
	"github.com/Ning0612/Regsync/internal/registry"
	"github.com/Ning0612/Regsync/internal/service"
)

func newEndpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Manage replication destination endpoints",
	}

	cmd.AddCommand(newEndpointCreateCommand())
	cmd.AddCommand(newEndpointListCommand())
	cmd.AddCommand(newEndpointEditCommand())
	cmd.AddCommand(newEndpointRemoveCommand())
	cmd.AddCommand(newEndpointTestCommand())

	return cmd
}

func newEndpointCreateCommand() *cobra.Command {
	var spec registry.CreateSpec

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a destination endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				ep, err := svc.Endpoints.Create(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Printf("Endpoint %s created (id %s)\n", ep.Name, ep.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&spec.Name, "name", "", "endpoint name (required)")
	cmd.Flags().StringVar(&spec.URL, "url", "", "registry URL, http or https (required)")
	cmd.Flags().StringVar(&spec.Username, "username", "", "access username")
	cmd.Flags().StringVar(&spec.Password, "password", "", "access secret")
	cmd.Flags().BoolVar(&spec.Insecure, "insecure", false, "skip TLS certificate verification")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("url")

	return cmd
}

func newEndpointListCommand() *cobra.Command {
	var nameFilter string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				endpoints, err := svc.Endpoints.List(ctx, nameFilter)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tURL\tUSERNAME\tINSECURE")
				for _, ep := range endpoints {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
						ep.ID, ep.Name, ep.URL, ep.Username, ep.Insecure)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "filter by name substring")

	return cmd
}

func newEndpointEditCommand() *cobra.Command {
	var (
		name, url, username, password string
		insecure                      bool
	)

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Update an endpoint",
		Long: `Update an endpoint. Only the given flags change; a password equal to
the stored-secret placeholder leaves the secret untouched. Endpoints
referenced by an enabled rule are read-only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := registry.Patch{}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("url") {
				patch.URL = &url
			}
			if cmd.Flags().Changed("username") {
				patch.Username = &username
			}
			if cmd.Flags().Changed("password") {
				patch.Password = &password
			}
			if cmd.Flags().Changed("insecure") {
				patch.Insecure = &insecure
			}

			return withService(func(ctx context.Context, svc *service.Service) error {
				ep, err := svc.Rules.UpdateEndpoint(ctx, args[0], patch)
				if err != nil {
					return err
				}
				fmt.Printf("Endpoint %s updated\n", ep.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&url, "url", "", "new registry URL")
	cmd.Flags().StringVar(&username, "username", "", "new access username")
	cmd.Flags().StringVar(&password, "password", "", "new access secret")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")

	return cmd
}

func newEndpointRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an endpoint",
		Long:    `Delete an endpoint. Endpoints referenced by any rule cannot be deleted.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				if err := svc.Rules.DeleteEndpoint(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Endpoint %s deleted\n", args[0])
				return nil
			})
		},
	}

	return cmd
}

func newEndpointTestCommand() *cobra.Command {
	var candidate struct {
		url, username, password string
		insecure                bool
	}

	cmd := &cobra.Command{
		Use:   "test [ID]",
		Short: "Probe endpoint connectivity",
		Long: `Probe endpoint connectivity. With an ID, the stored endpoint (and its
stored credentials) is probed; with --url, the given candidate is probed
before registering it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				var err error
				switch {
				case len(args) == 1:
					err = svc.Prober.TestEndpoint(ctx, args[0])
				case candidate.url != "":
					err = svc.Prober.Test(ctx, candidate.url, prober.Candidate{
						URL:      candidate.url,
						Username: candidate.username,
						Password: candidate.password,
						Insecure: candidate.insecure,
					})
				default:
					return fmt.Errorf("either an endpoint ID or --url is required")
				}
				if err != nil {
					return err
				}
				fmt.Println("Connection OK")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&candidate.url, "url", "", "registry URL to probe")
	cmd.Flags().StringVar(&candidate.username, "username", "", "access username")
	cmd.Flags().StringVar(&candidate.password, "password", "", "access secret")
	cmd.Flags().BoolVar(&candidate.insecure, "insecure", false, "skip TLS certificate verification")

	return cmd
}
