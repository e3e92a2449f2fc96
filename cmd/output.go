package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/s0up4200/qbitprune/cleaner"
	"github.com/s0up4200/qbitprune/qbittorrent"
	"github.com/s0up4200/qbitprune/retention"
)

// newTable returns a rounded table that renders to w. The given 1-based
// column numbers are right aligned.
func newTable(w io.Writer, header table.Row, rightAligned ...int) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, n := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	return tw
}

func bytesCell(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}

// torrentTable lists torrents with their value, ages, ratio and size
func torrentTable(w io.Writer) table.Writer {
	return newTable(w, table.Row{"Value", "Seed days", "Inactive days", "Ratio", "Size", "Category", "Tracker", "Name"}, 1, 2, 3, 4, 5)
}

func torrentRow(t *qbittorrent.TorrentInfo, now time.Time) table.Row {
	seedDays := float64(t.SeedingTime) / float64(retention.Day)
	inactiveDays := max(0, float64(now.Sub(t.LastActivity))/float64(retention.Day))

	return table.Row{
		strconv.FormatFloat(retention.Score(t, now), 'f', 0, 64),
		strconv.FormatFloat(seedDays, 'f', 1, 64),
		strconv.FormatFloat(inactiveDays, 'f', 1, 64),
		strconv.FormatFloat(t.Ratio, 'f', 2, 64),
		bytesCell(t.Size),
		t.Category,
		t.TrackerHost,
		t.Name,
	}
}

func printDecisions(w io.Writer, title string, decisions []retention.Decision, now time.Time) {
	fmt.Fprintf(w, "\n=== %s (%d) ===\n", title, len(decisions))
	if len(decisions) == 0 {
		return
	}

	tw := torrentTable(w)
	for _, d := range decisions {
		tw.AppendRow(torrentRow(d.Torrent, now))
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", bytesCell(retention.TotalSize(decisions))})
	tw.Render()
}

func printReport(w io.Writer, report *cleaner.Report) {
	now := report.Started
	verb := "Removed"
	if report.DryRun {
		verb = "Would remove"
	}

	usage := report.Usage
	fmt.Fprintln(w, "=== Disk space ===")
	disk := newTable(w, table.Row{"Total", "Used", "Free", "Target free"}, 1, 2, 3, 4)
	disk.AppendRow(table.Row{bytesCell(usage.Total), bytesCell(usage.Used), bytesCell(usage.Free), bytesCell(report.RequiredSpace)})
	disk.Render()

	if cls := report.Classification; cls != nil {
		if len(cls.Stats) > 0 {
			fmt.Fprintln(w, "\n=== Rules ===")
			tw := newTable(w, table.Row{"Rule", "Torrents", "Size"}, 2, 3)
			for _, s := range cls.Stats {
				tw.AppendRow(table.Row{s.Rule, s.Count, bytesCell(s.Size)})
			}
			tw.Render()
		}

		printDecisions(w, verb+": satisfied their rule", cls.MustRemove, now)
	}

	if report.Eviction.Deficit > 0 {
		printDecisions(w, verb+": needed for disk space", report.Eviction.Selected, now)
	} else {
		fmt.Fprintln(w, "\nNo further torrents need to be removed.")
	}
	if report.Shortfall() > 0 {
		fmt.Fprintf(w, "WARNING: running out of disk space with no additional torrents to remove (%s short)\n",
			bytesCell(report.Shortfall()))
	}

	printDecisions(w, "Met their requirements but kept", report.Kept, now)
	if len(report.Kept) > 0 {
		fmt.Fprintf(w, "%s; %.0f points avg.\n", bytesCell(report.KeptSize()), report.AverageScore())
	}

	if len(report.Folders) > 0 {
		fmt.Fprintln(w, "\n=== Dangling files and folders ===")
		tw := newTable(w, table.Row{"Folder", "Dangling", "Removed", "Hardlinked", "Failed", "Reclaimed"}, 2, 3, 4, 5, 6)
		for _, f := range report.Folders {
			tw.AppendRow(table.Row{f.Root, len(f.Dangling), len(f.Removed), len(f.Shared), len(f.Failed), bytesCell(f.Reclaimed)})
		}
		tw.AppendFooter(table.Row{"", "", "", "", "Total", bytesCell(report.Reclaimed())})
		tw.Render()
		if report.DryRun {
			for _, f := range report.Folders {
				for _, p := range f.Dangling {
					fmt.Fprintf(w, "  %s\n", p)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n=== Not handled by any rule (%d) ===\n", len(report.Unhandled))
	if len(report.Unhandled) > 0 {
		tw := torrentTable(w)
		for _, t := range report.Unhandled {
			tw.AppendRow(torrentRow(t, now))
		}
		tw.Render()
	}

	for _, err := range report.Failures {
		fmt.Fprintf(w, "FAILED: %v\n", err)
	}
}
