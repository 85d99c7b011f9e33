package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/query"
	"github.com/Ning0612/Regsync/internal/service"
)

func newJobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect replication jobs",
	}

	cmd.AddCommand(newJobListCommand())

	return cmd
}

func newJobListCommand() *cobra.Command {
	var (
		statuses, repository, ruleID string
		from, to                     string
		pageNum, pageLen             int
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List jobs, newest first",
		Long: `List jobs, newest first. Filters combine: --status takes a comma
separated list, --from/--to bound the creation date (YYYY-MM-DD, the
upper bound covers its whole day), --repository matches a substring.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := query.JobFilter{
				Statuses:   splitStatuses(statuses),
				Repository: repository,
				RuleID:     ruleID,
			}

			var err error
			if filter.From, err = parseDate(from); err != nil {
				return err
			}
			if filter.To, err = parseDate(to); err != nil {
				return err
			}

			return withService(func(ctx context.Context, svc *service.Service) error {
				page, err := svc.Query.Jobs(ctx, filter, query.Page{Number: pageNum, Size: pageLen})
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tRULE\tREPOSITORY\tOPERATION\tSTATUS\tCREATED")
				for _, j := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						j.ID, j.RuleID, j.Repository, j.Operation, j.Status,
						j.CreatedAt.Format(time.RFC3339))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Printf("Page %d of %d job(s)\n", page.Page.Number, page.Total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statuses, "status", "", "comma-separated status filter (pending,running,error,retrying,stopped,finished,canceled)")
	cmd.Flags().StringVar(&repository, "repository", "", "filter by repository substring")
	cmd.Flags().StringVar(&ruleID, "rule", "", "filter by owning rule id")
	cmd.Flags().StringVar(&from, "from", "", "inclusive lower creation date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "inclusive upper creation date, YYYY-MM-DD")
	cmd.Flags().IntVar(&pageNum, "page", 1, "page number")
	cmd.Flags().IntVar(&pageLen, "page-size", query.DefaultPageSize, "page size")

	return cmd
}

// splitStatuses parses a comma-separated status list. Unknown values
// are passed through; the query engine rejects them.
func splitStatuses(s string) []domain.JobStatus {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	statuses := make([]domain.JobStatus, 0, len(parts))
	for _, p := range parts {
		statuses = append(statuses, domain.JobStatus(strings.TrimSpace(p)))
	}
	return statuses
}

// parseDate parses a YYYY-MM-DD date; empty input yields the zero time
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
