package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/document"
)

func newPreviewCommand(get func() *app) *cobra.Command {
	var format, out, employeeID string

	cmd := &cobra.Command{
		Use:   "preview <coverPageNo|task-file>",
		Args:  cobra.ExactArgs(1),
		Short: "Render the office order of a saved task or a task file",
		Long: "Render the office order of a saved task or a task file. Saved tasks are " +
			"rendered by the server; task files are rendered locally without saving.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()

			var (
				doc []byte
				err error
			)
			if isTaskFile(args[0]) {
				task, rerr := readTask(args[0])
				if rerr != nil {
					return rerr
				}
				doc, err = a.previewer.FromDraft(task, format)
			} else {
				ctrl, task, oerr := a.open(cmd.Context(), args[0], employeeID)
				if oerr != nil {
					return oerr
				}
				ctrl.Close()
				doc, err = a.previewer.FromSaved(cmd.Context(), task.TaskID, format)
			}
			if err != nil {
				return err
			}

			if out == "" {
				out = "office-order." + format
			}
			return a.writeOutput(out, doc)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", port.FormatPDF, "pdf, html or png")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default office-order.<format>)")
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee the task belongs to (default: looked up in your inbox)")

	return cmd
}

func newDraftCommand(get func() *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "draft <task-file>",
		Args:  cobra.ExactArgs(1),
		Short: "Ask the server to suggest an office order body for a task file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			task, err := readTask(args[0])
			if err != nil {
				return err
			}

			body, err := a.backend.DraftBody(cmd.Context(), payload.Encode(task))
			if err != nil {
				return err
			}
			if body.IsEmpty() {
				fmt.Fprintln(a.out, "The server suggested an empty body.")
				return nil
			}
			return a.writeOutput(out, []byte(document.RenderHTML(body)+"\n"))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file for the suggested body HTML")

	return cmd
}
