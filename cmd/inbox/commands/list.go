package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/office-orders/internal/application/inbox"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

func newListCommand(get func() *app) *cobra.Command {
	var (
		filter inbox.Filter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		Short:   "List the active tasks held by you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if _, err := a.inbox.BadgeOptions(cmd.Context()); err != nil {
				return err
			}
			page, err := a.inbox.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, page)
			}
			a.printPage(page)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Status, "status", "", "only tasks with this status")
	cmd.Flags().StringVar(&filter.Search, "search", "", "match cover page no, employee, subject or place")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.PageSize, "page-size", 0, "tasks per page (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func newBadgeCommand(get func() *app) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "badge <coverPageNo> <status>",
		Args:  cobra.ExactArgs(2),
		Short: "Change only the status of a task",
		Long:  "Change only the status of a task. Use \"badge options\" to list the statuses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.inbox.BadgeOptions(cmd.Context()); err != nil {
				return err
			}

			if employeeID == "" {
				employeeID = a.employeeOf(cmd.Context(), args[0])
			}
			page, err := a.inbox.ChangeBadge(cmd.Context(), &entity.Task{
				CoverPageNo: args[0],
				EmployeeID:  employeeID,
			}, args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%s is now %s\n\n", args[0], args[1])
			a.printPage(page)
			return nil
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	cmd.AddCommand(newBadgeOptionsCommand(get))

	return cmd
}

func newBadgeOptionsCommand(get func() *app) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "options [coverPageNo]",
		Args:  cobra.MaximumNArgs(1),
		Short: "List the status options",
		Long:  "List the status options. With a cover page number, only the statuses that task can be moved to now are listed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var (
				options []entity.BadgeOption
				err     error
			)
			if len(args) == 0 {
				options, err = a.inbox.BadgeOptions(cmd.Context())
			} else {
				if employeeID == "" {
					employeeID = a.employeeOf(cmd.Context(), args[0])
				}
				options, err = a.inbox.BadgeOptionsFor(cmd.Context(), &entity.Task{
					CoverPageNo: args[0],
					EmployeeID:  employeeID,
				})
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS")
			for _, opt := range options {
				fmt.Fprintf(tw, "%d\t%s\n", opt.StatusID, opt.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")
	return cmd
}

func newExportCommand(get func() *app) *cobra.Command {
	var (
		out    string
		filter inbox.Filter
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Args:  cobra.NoArgs,
		Short: "Export your inbox as an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()

			var buf bytes.Buffer
			var err error
			if remote {
				err = a.backend.Export(cmd.Context(), &buf)
			} else {
				err = a.inbox.Export(cmd.Context(), &buf, filter)
			}
			if err != nil {
				return err
			}
			return a.writeOutput(out, buf.Bytes())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "inbox.xlsx", "output file, - for stdout")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only tasks with this status")
	cmd.Flags().StringVar(&filter.Search, "search", "", "only tasks matching this text")
	cmd.Flags().BoolVar(&remote, "remote", false, "let the server build the workbook (filters are ignored)")

	return cmd
}

func (a *app) printPage(page *inbox.Page) {
	if page.TotalItems == 0 {
		fmt.Fprintln(a.out, "No tasks.")
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COVER PAGE NO\tEMPLOYEE\tSUBJECT\tVISIT\tDAYS\tSTATUS")
	for _, t := range page.Tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			t.CoverPageNo,
			t.Employee.Name,
			t.OfficeOrder.Subject,
			visitLine(t),
			t.Duration(),
			a.inbox.Badge(t),
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(a.out, "\nPage %d of %d (%d tasks)\n", page.Page, page.TotalPages, page.TotalItems)
}

func visitLine(t *entity.Task) string {
	place := t.Visit.City
	if t.Visit.Country != "" {
		if place != "" {
			place += ", "
		}
		place += t.Visit.Country
	}
	if t.Visit.From.IsZero() {
		return place
	}
	return fmt.Sprintf("%s %s..%s", place, t.Visit.From.Format(entity.DateLayout), t.Visit.To.Format(entity.DateLayout))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
