package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/lifecycle"
	"github.com/Ning0612/Regsync/internal/query"
	"github.com/Ning0612/Regsync/internal/registry"
	"github.com/Ning0612/Regsync/internal/service"
)

func newRuleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage replication rules",
	}

	cmd.AddCommand(newRuleCreateCommand())
	cmd.AddCommand(newRuleListCommand())
	cmd.AddCommand(newRuleEditCommand())
	cmd.AddCommand(newRuleEnableCommand())
	cmd.AddCommand(newRuleDisableCommand())
	cmd.AddCommand(newRuleRemoveCommand())
	cmd.AddCommand(newRuleFireCommand())

	return cmd
}

// scheduleFlags holds the --trigger family of flags shared by rule
// create and rule edit
type scheduleFlags struct {
	kind     string
	schedule string
	weekday  int
	time     string
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "trigger", string(domain.TriggerManual), "trigger kind: manual, scheduled or on-push")
	cmd.Flags().StringVar(&f.schedule, "schedule", string(domain.ScheduleDaily), "schedule type for scheduled triggers: daily or weekly")
	cmd.Flags().IntVar(&f.weekday, "weekday", int(time.Sunday), "weekday for weekly schedules (0 = Sunday)")
	cmd.Flags().StringVar(&f.time, "time", "00:00", "fire time for scheduled triggers, HH:MM in UTC")
}

func (f *scheduleFlags) spec() (domain.TriggerSpec, error) {
	spec := domain.TriggerSpec{Kind: domain.TriggerKind(f.kind)}
	if spec.Kind != domain.TriggerScheduled {
		return spec, nil
	}

	offtime, err := parseOfftime(f.time)
	if err != nil {
		return domain.TriggerSpec{}, err
	}
	spec.Schedule = &domain.Schedule{
		Type:    domain.ScheduleType(f.schedule),
		Weekday: time.Weekday(f.weekday),
		Offtime: offtime,
	}
	return spec, nil
}

// parseOfftime parses HH:MM into an offset from midnight
func parseOfftime(s string) (time.Duration, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

func newRuleCreateCommand() *cobra.Command {
	var (
		name, description, projectID, endpointID string
		sched                                    scheduleFlags
		dest                                     registry.CreateSpec
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a replication rule",
		Long: `Create a replication rule in the disabled state. The destination is
either an existing endpoint (--endpoint) or one created inline with the
--dest-* flags; if rule creation fails, an inline endpoint is removed
again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, err := sched.spec()
			if err != nil {
				return err
			}

			spec := lifecycle.RuleSpec{
				Name:        name,
				Description: description,
				ProjectID:   projectID,
				Trigger:     trigger,
				EndpointID:  endpointID,
			}
			if dest.Name != "" || dest.URL != "" {
				spec.NewEndpoint = &dest
			}

			return withService(func(ctx context.Context, svc *service.Service) error {
				rule, err := svc.Rules.CreateRule(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Printf("Rule %s created (id %s)\n", rule.Name, rule.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "rule name (required)")
	cmd.Flags().StringVar(&description, "description", "", "rule description")
	cmd.Flags().StringVar(&projectID, "project", "", "source project scope (empty = all projects)")
	cmd.Flags().StringVar(&endpointID, "endpoint", "", "existing destination endpoint id")
	cmd.Flags().StringVar(&dest.Name, "dest-name", "", "inline destination endpoint name")
	cmd.Flags().StringVar(&dest.URL, "dest-url", "", "inline destination registry URL")
	cmd.Flags().StringVar(&dest.Username, "dest-username", "", "inline destination username")
	cmd.Flags().StringVar(&dest.Password, "dest-password", "", "inline destination secret")
	cmd.Flags().BoolVar(&dest.Insecure, "dest-insecure", false, "inline destination skips TLS verification")
	sched.register(cmd)
	cmd.MarkFlagRequired("name")

	return cmd
}

func newRuleListCommand() *cobra.Command {
	var (
		nameFilter       string
		enabledOnly      bool
		disabledOnly     bool
		pageNum, pageLen int
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List rules, most recently started first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := query.RuleFilter{Name: nameFilter}
			switch {
			case enabledOnly && disabledOnly:
				return fmt.Errorf("--enabled and --disabled are mutually exclusive")
			case enabledOnly:
				filter.Enabled = query.EnabledOnly
			case disabledOnly:
				filter.Enabled = query.DisabledOnly
			}

			return withService(func(ctx context.Context, svc *service.Service) error {
				page, err := svc.Query.Rules(ctx, filter, query.Page{Number: pageNum, Size: pageLen})
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tENABLED\tTRIGGER\tPROJECT\tENDPOINT")
				for _, r := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n",
						r.ID, r.Name, r.Enabled, r.Trigger.Kind, r.ProjectID, r.EndpointID)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Printf("Page %d of %d rule(s)\n", page.Page.Number, page.Total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "filter by name substring")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only enabled rules")
	cmd.Flags().BoolVar(&disabledOnly, "disabled", false, "only disabled rules")
	cmd.Flags().IntVar(&pageNum, "page", 1, "page number")
	cmd.Flags().IntVar(&pageLen, "page-size", query.DefaultPageSize, "page size")

	return cmd
}

func newRuleEditCommand() *cobra.Command {
	var (
		name, description, projectID, endpointID string
		sched                                    scheduleFlags
	)

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Update a rule",
		Long: `Update a rule. Only the given flags change. The destination endpoint
of an enabled rule is read-only; disable the rule first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := lifecycle.RulePatch{}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("project") {
				patch.ProjectID = &projectID
			}
			if cmd.Flags().Changed("endpoint") {
				patch.EndpointID = &endpointID
			}
			if cmd.Flags().Changed("trigger") || cmd.Flags().Changed("schedule") ||
				cmd.Flags().Changed("weekday") || cmd.Flags().Changed("time") {
				trigger, err := sched.spec()
				if err != nil {
					return err
				}
				patch.Trigger = &trigger
			}

			return withService(func(ctx context.Context, svc *service.Service) error {
				rule, err := svc.Rules.EditRule(ctx, args[0], patch)
				if err != nil {
					return err
				}
				fmt.Printf("Rule %s updated\n", rule.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new rule name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&projectID, "project", "", "new source project scope")
	cmd.Flags().StringVar(&endpointID, "endpoint", "", "new destination endpoint id")
	sched.register(cmd)

	return cmd
}

func newRuleEnableCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enable ID",
		Short: "Enable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				rule, err := svc.Rules.Enable(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Rule %s enabled\n", rule.Name)
				return nil
			})
		},
	}

	return cmd
}

func newRuleDisableCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disable ID",
		Short: "Disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				rule, err := svc.Rules.Disable(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Rule %s disabled\n", rule.Name)
				return nil
			})
		},
	}

	return cmd
}

func newRuleRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a rule",
		Long:    `Delete a rule. Enabled rules must be disabled first. Job history survives.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				if err := svc.Rules.DeleteRule(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Rule %s deleted\n", args[0])
				return nil
			})
		},
	}

	return cmd
}

func newRuleFireCommand() *cobra.Command {
	var repositories []string

	cmd := &cobra.Command{
		Use:   "fire ID",
		Short: "Fire a rule by hand",
		Long: `Fire an enabled rule by hand, recording pending jobs for the external
replication engine. --repository narrows the firing; without it the
rule's own project scope is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *service.Service) error {
				if err := svc.FireRule(ctx, args[0], repositories); err != nil {
					return err
				}
				if n := len(repositories); n > 0 {
					fmt.Printf("Fired rule %s for %d repository(ies)\n", args[0], n)
				} else {
					fmt.Printf("Fired rule %s\n", args[0])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&repositories, "repository", nil, "repository to fire for (repeatable)")

	return cmd
}
