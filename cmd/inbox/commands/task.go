package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/office-orders/internal/application/lifecycle"
	"github.com/garyjia/office-orders/internal/application/validation"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

func newShowCommand(get func() *app) *cobra.Command {
	var (
		employeeID string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "show <coverPageNo>",
		Args:  cobra.ExactArgs(1),
		Short: "Show one task and the actions you may take on it",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctrl, task, err := a.open(cmd.Context(), args[0], employeeID)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if asJSON {
				return writeJSON(a.out, task)
			}
			a.printTask(task, ctrl.PermittedActions())
			return nil
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func newSaveCommand(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <task-file>",
		Args:  cobra.ExactArgs(1),
		Short: "Create or update a draft from a task file (JSON or YAML)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			task, err := readTask(args[0])
			if err != nil {
				return err
			}

			ctrl, err := a.hold(cmd.Context(), task)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			saved, err := ctrl.Perform(cmd.Context(), lifecycle.ActionRequest{Action: workflow.TriggerSave, Edited: task})
			if err != nil {
				return err
			}
			a.printResult("Saved", saved)
			return nil
		},
	}
}

func newSubmitCommand(get func() *app) *cobra.Command {
	var remarks, employeeID string

	cmd := &cobra.Command{
		Use:   "submit <coverPageNo|task-file>",
		Args:  cobra.ExactArgs(1),
		Short: "Send a task on to the next participant",
		Long: "Send a task on to the next participant. A task file is saved first " +
			"when it has no cover page number yet; a cover page number forwards the saved task as is.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if !isTaskFile(args[0]) {
				return a.act(cmd.Context(), args[0], employeeID, "Submitted", lifecycle.ActionRequest{
					Action:  workflow.TriggerSubmit,
					Remarks: remarks,
				})
			}

			task, err := readTask(args[0])
			if err != nil {
				return err
			}

			ctrl, err := a.hold(cmd.Context(), task)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			req := lifecycle.ActionRequest{Action: workflow.TriggerSubmit, Edited: task, Remarks: remarks}
			if task.IsNew() {
				// nothing is saved when the task could not be submitted anyway
				if remarks != "" {
					task.OfficeOrder.Remarks = remarks
				}
				if err := a.validator.Validate(workflow.TriggerSubmit, validation.InputFrom(task, a.session.Role, "")); err != nil {
					return err
				}
				// the backend creates tasks on their first save
				if _, err := ctrl.Perform(cmd.Context(), lifecycle.ActionRequest{Action: workflow.TriggerSave, Edited: task}); err != nil {
					return err
				}
				req.Edited = nil
			}

			submitted, err := ctrl.Perform(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printResult("Submitted", submitted)
			return nil
		},
	}
	cmd.Flags().StringVarP(&remarks, "remarks", "r", "", "remarks passed on with the task")
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	return cmd
}

func newApproveCommand(get func() *app) *cobra.Command {
	var remarks, employeeID string

	cmd := &cobra.Command{
		Use:   "approve <coverPageNo>",
		Args:  cobra.ExactArgs(1),
		Short: "Approve a task held by you",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().act(cmd.Context(), args[0], employeeID, "Approved", lifecycle.ActionRequest{
				Action:  workflow.TriggerApprove,
				Remarks: remarks,
			})
		},
	}
	cmd.Flags().StringVarP(&remarks, "remarks", "r", "", "approval remarks")
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	return cmd
}

func newRejectCommand(get func() *app) *cobra.Command {
	var remarks, returnTo, employeeID string

	cmd := &cobra.Command{
		Use:   "reject <coverPageNo>",
		Args:  cobra.ExactArgs(1),
		Short: "Return a task to an earlier participant",
		Long:  "Return a task to an earlier participant. \"returnable <coverPageNo>\" lists who it may go back to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().act(cmd.Context(), args[0], employeeID, "Returned", lifecycle.ActionRequest{
				Action:   workflow.TriggerRejectReturn,
				Remarks:  remarks,
				ReturnTo: returnTo,
			})
		},
	}
	cmd.Flags().StringVarP(&remarks, "remarks", "r", "", "reason for returning")
	cmd.Flags().StringVar(&returnTo, "return-to", "", "user id to return the task to")
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	return cmd
}

func newDeleteCommand(get func() *app) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "delete <coverPageNo>",
		Args:  cobra.ExactArgs(1),
		Short: "Delete a task held by you",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().act(cmd.Context(), args[0], employeeID, "Deleted", lifecycle.ActionRequest{
				Action: workflow.TriggerDelete,
			})
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	return cmd
}

func newCommentsCommand(get func() *app) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "comments <coverPageNo>",
		Args:  cobra.ExactArgs(1),
		Short: "Show the comment history of a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctrl, _, err := a.open(cmd.Context(), args[0], employeeID)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			comments, err := ctrl.Comments(cmd.Context())
			if err != nil {
				return err
			}
			if len(comments) == 0 {
				fmt.Fprintln(a.out, "No comments.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tWHO\tROLE\tCOMMENT")
			for _, c := range comments {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Timestamp.Local().Format("2006-01-02 15:04"), c.Commenter, c.Role, c.Text)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	return cmd
}

func newReturnableCommand(get func() *app) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "returnable <coverPageNo>",
		Args:  cobra.ExactArgs(1),
		Short: "List who a task may be returned to",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctrl, _, err := a.open(cmd.Context(), args[0], employeeID)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			users, err := ctrl.ReturnableUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(a.out, "Nobody to return to.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER ID\tNAME\tROLE")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.UserID, u.Name, u.Role)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	return cmd
}

// hold returns a controller holding task: the saved record when the task has
// a cover page number, a fresh draft otherwise
func (a *app) hold(ctx context.Context, task *entity.Task) (*lifecycle.Controller, error) {
	if !task.IsNew() {
		ctrl, _, err := a.open(ctx, task.CoverPageNo, task.EmployeeID)
		return ctrl, err
	}

	ctrl, err := a.controller()
	if err != nil {
		return nil, err
	}
	ctrl.NewDraft(task)
	return ctrl, nil
}

// act opens a saved task and performs one action on it
func (a *app) act(ctx context.Context, coverPageNo, employeeID, verb string, req lifecycle.ActionRequest) error {
	ctrl, _, err := a.open(ctx, coverPageNo, employeeID)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	task, err := ctrl.Perform(ctx, req)
	if err != nil {
		return err
	}
	a.printResult(verb, task)
	return nil
}

func (a *app) printResult(verb string, task *entity.Task) {
	fmt.Fprintf(a.out, "%s %s (%s)", verb, task.CoverPageNo, task.Status)
	if task.AssignedTo != "" && task.AssignedTo != a.session.UserID {
		fmt.Fprintf(a.out, ", now with %s", task.AssignedTo)
	}
	fmt.Fprintln(a.out)
}

func (a *app) printTask(task *entity.Task, actions []workflow.Trigger) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", label, value)
		}
	}

	row("Cover Page No", task.CoverPageNo)
	row("Status", task.Status)
	row("Assigned To", task.AssignedTo)
	row("Employee", strings.TrimSpace(task.Employee.Name+" ("+task.EmployeeID+")"))
	row("Department", task.Employee.Department)
	row("Designation", task.Employee.Designation)
	row("Visit", visitLine(task))
	if d := task.Duration(); d > 0 {
		row("Duration", fmt.Sprintf("%d days", d))
	}
	row("Nature of Visit", task.Visit.NatureOfVisit)
	row("Subject", task.OfficeOrder.Subject)
	row("Reference No", task.OfficeOrder.ReferenceNumber)
	row("Signing Authority", task.OfficeOrder.SigningAuthority)
	row("To Section", strings.Join(task.OfficeOrder.ToSection, "; "))
	row("Remarks", task.OfficeOrder.Remarks)
	_ = tw.Flush()

	if body := task.OfficeOrder.Body.PlainText(); body != "" {
		fmt.Fprintf(a.out, "\n%s\n", body)
	}

	names := make([]string, len(actions))
	for i, t := range actions {
		names[i] = strings.ToLower(strings.ReplaceAll(t.String(), "_", " "))
	}
	if len(names) == 0 {
		names = []string{"none"}
	}
	fmt.Fprintf(a.out, "\nActions: %s\n", strings.Join(names, ", "))
}
