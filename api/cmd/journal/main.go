// Command journal lists or purges analysis journal entries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/config"
	"docgpt/api/internal/store"
)

func main() {
	n := flag.Int("n", 20, "number of recent entries to list")
	purge := flag.Duration("purge", 0, "delete entries older than this (e.g. 720h) instead of listing")
	flag.Parse()

	if err := run(*n, *purge); err != nil {
		log.Fatal(err)
	}
}

func run(n int, purge time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.SetupLogging()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := store.NewJournalRepo(db)

	if purge > 0 {
		removed, err := repo.PurgeOlderThan(ctx, purge)
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		fmt.Printf("removed %d entries older than %s\n", removed, purge)
		return nil
	}

	entries, err := repo.Recent(ctx, n)
	if err != nil {
		return fmt.Errorf("recent: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "At", "Channel", "Category", "File", "Outcome", "Condition", "Confidence", "Severity", "Latency"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.AppendBulk(rows(entries))
	table.Render()
	return nil
}

var (
	okStyle     = color.New(color.FgGreen)
	failedStyle = color.New(color.FgRed, color.OpBold)
)

func rows(entries []store.Entry) [][]string {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		outcome := okStyle.Render(string(e.Outcome))
		confidence := fmt.Sprintf("%.1f%%", e.Confidence*100)
		if e.Outcome == store.OutcomeFailed {
			outcome = failedStyle.Render(string(e.Outcome))
			confidence = "-"
		}
		out = append(out, []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			string(e.Channel),
			e.Category,
			e.FileName,
			outcome,
			e.Condition,
			confidence,
			e.Severity,
			e.Latency.Round(time.Millisecond).String(),
		})
	}
	return out
}
