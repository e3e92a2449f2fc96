package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/s0up4200/qbitprune/cleaner"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a run would remove without changing anything",
	Long: `Classify every torrent, compute the eviction plan and list dangling files
exactly like run does, but never remove torrents, delete files or write the journal.`,
	PreRunE: initializeApp,
	RunE:    runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&requiredSpace, "required-space", "", "override the free space target, e.g. 500GiB")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext(cmd.Context())
	defer cancel()

	fs := afero.NewReadOnlyFs(afero.NewOsFs())
	opts, err := cleanerOptions(cmd, fs)
	if err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	c := cleaner.New(client, newReconciler(fs), logger)
	report, err := c.Plan(ctx, opts)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}
