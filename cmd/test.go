package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/s0up4200/qbitprune/cleaner"
	"github.com/s0up4200/qbitprune/filter"
	"github.com/s0up4200/qbitprune/fsutil"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:     "test",
	Short:   "Test the qBittorrent connection and the rules file",
	Long:    `Log in to qBittorrent, validate the rules file and show the torrents and folders a run would work with.`,
	PreRunE: initializeApp,
	RunE:    runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext(cmd.Context())
	defer cancel()
	out := cmd.OutOrStdout()

	opts, err := cleanerOptions(cmd, afero.NewReadOnlyFs(afero.NewOsFs()))
	if err != nil {
		return err
	}
	printRulesCheck(out, cfg.Cleanup.RulesFile, opts)

	fmt.Fprintf(out, "Testing connection to qBittorrent at %s...\n", cfg.QBittorrent.URL)
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "✓ Connection successful!")

	torrents, err := client.GetAllTorrents(ctx)
	if err != nil {
		return fmt.Errorf("failed to get torrents: %w", err)
	}

	type bucket struct {
		count int
		size  int64
	}
	categories := make(map[string]*bucket)
	for _, t := range torrents {
		b, ok := categories[t.Category]
		if !ok {
			b = &bucket{}
			categories[t.Category] = b
		}
		b.count++
		b.size += t.Size
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintf(out, "\nqBittorrent has %d torrents:\n", len(torrents))
	tw := newTable(out, table.Row{"Category", "Torrents", "Size"}, 2, 3)
	var total int64
	for _, name := range names {
		label := name
		if label == "" {
			label = "(none)"
		}
		tw.AppendRow(table.Row{label, categories[name].count, bytesCell(categories[name].size)})
		total += categories[name].size
	}
	tw.AppendFooter(table.Row{"Total", len(torrents), bytesCell(total)})
	tw.Render()

	fmt.Fprintln(out, "\nDownload folders:")
	tw = newTable(out, table.Row{"Folder", "Total", "Free", "Status"}, 2, 3)
	for _, folder := range opts.Folders {
		usage, err := fsutil.Usage(folder)
		if err != nil {
			tw.AppendRow(table.Row{folder, "-", "-", err.Error()})
			continue
		}
		tw.AppendRow(table.Row{folder, bytesCell(usage.Total), bytesCell(usage.Free), "ok"})
	}
	tw.Render()
	fmt.Fprintf(out, "Target free space: %s\n", bytesCell(opts.RequiredSpace))

	return nil
}

func printRulesCheck(w io.Writer, path string, opts cleaner.Options) {
	fmt.Fprintf(w, "✓ Rules file %s: %d rules, %d folders\n", path, len(opts.Rules), len(opts.Folders))
	fmt.Fprintf(w, "  Filter variables: %s\n", strings.Join(filter.Variables(), ", "))
}
