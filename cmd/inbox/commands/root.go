package commands

import (
	"io"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Command output goes to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &Options{}
	var a *app

	rootCmd := &cobra.Command{
		Use:           "inbox",
		Short:         "Work the office order inbox from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = newApp(opts, out)
			return err
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a config file")
	flags.StringVar(&opts.Server, "server", "", "backend base URL (default from config)")
	flags.StringVar(&opts.Token, "token", "", "bearer token (default $OFFICE_ORDERS_TOKEN)")
	flags.StringVar(&opts.Key, "key", "", "envelope secret (default $ENVELOPE_SECRET)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug output to stderr")

	// subcommands read the app built by PersistentPreRunE
	get := func() *app { return a }

	rootCmd.AddCommand(
		newListCommand(get),
		newShowCommand(get),
		newSaveCommand(get),
		newSubmitCommand(get),
		newApproveCommand(get),
		newRejectCommand(get),
		newDeleteCommand(get),
		newBadgeCommand(get),
		newCommentsCommand(get),
		newReturnableCommand(get),
		newPreviewCommand(get),
		newExportCommand(get),
		newDraftCommand(get),
	)

	return rootCmd
}
