package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/fetcher"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

var recordKinds = []string{"pages", "abilities", "artifacts", "definitions", "conditions", "faqs", "errata"}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

// printSummary renders the end-of-crawl report.
func printSummary(w io.Writer, result *types.Result, summary *exportSummary, cfg config.StorageConfig) {
	t := newTable(w, "Crawl summary")
	t.AppendHeader(table.Row{"Records", "Count"})
	totals := result.Totals()
	for _, kind := range recordKinds {
		t.AppendRow(table.Row{kind, totals[kind]})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"visited", result.Visited})
	t.AppendRow(table.Row{"skipped", result.Skipped})
	if summary.Stats != nil {
		t.AppendRow(table.Row{"refused (budget)", summary.Stats["visits_refused"]})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"stored", summary.Stored})
	t.AppendRow(table.Row{"dropped", summary.Dropped})
	t.AppendFooter(table.Row{"elapsed", summary.Elapsed.Round(time.Millisecond)})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()

	counts := result.CategoryCounts()
	if len(counts) > 0 {
		labels := make([]string, 0, len(counts))
		for label := range counts {
			labels = append(labels, label)
		}
		slices.Sort(labels)

		ct := newTable(w, "Pages by category")
		ct.AppendHeader(table.Row{"Category", "Pages"})
		for _, label := range labels {
			ct.AppendRow(table.Row{label, counts[label]})
		}
		ct.Render()
	}

	switch cfg.Type {
	case "mongodb":
		fmt.Fprintf(w, "Output: %s/%s.%s\n", cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		fmt.Fprintf(w, "Output: %s (%s)\n", cfg.OutputPath, cfg.Type)
	}
}

// classification is one row of the classify report.
type classification struct {
	URL      string
	Category types.Category
	Listing  bool
}

func printClassifications(w io.Writer, rows []classification) {
	t := newTable(w, "")
	t.AppendHeader(table.Row{"URL", "Category", "Page"})
	for _, r := range rows {
		kind := "detail"
		switch {
		case r.Category == types.CategoryUnknown:
			kind = "-"
		case r.Listing:
			kind = "listing"
		}
		t.AppendRow(table.Row{r.URL, r.Category.String(), kind})
	}
	t.Render()
}

func printProbes(w io.Writer, results []*fetcher.ProbeResult) {
	t := newTable(w, "")
	t.AppendHeader(table.Row{"URL", "Status", "Encoding", "Bytes", "Latency", "Title"})
	for _, r := range results {
		enc := r.Encoding
		if enc == "" {
			enc = "identity"
		}
		t.AppendRow(table.Row{r.URL, r.Status, enc, r.Bytes, r.Latency.Round(time.Millisecond), r.Title})
	}
	t.Render()
}
