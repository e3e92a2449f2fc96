package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var checkLatest bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&checkLatest, "check", false, "check GitHub for a newer release")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "qbitprune %s\nBuild time: %s\nGo: %s %s/%s\n", version, buildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	if !checkLatest {
		return nil
	}

	latest, err := latestRelease(cmd.Context())
	if err != nil {
		return err
	}

	current, ok := currentVersion()
	switch {
	case !ok:
		fmt.Fprintf(out, "Latest release: %s\n", latest.Version())
	case latest.LessOrEqual(current.String()):
		fmt.Fprintln(out, "✓ Up to date")
	default:
		fmt.Fprintf(out, "A newer release is available: %s (run `qbitprune update`)\n", latest.Version())
	}
	return nil
}
