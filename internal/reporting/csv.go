package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RenderPositionsCSV renders positions as CSV string.
func RenderPositionsCSV(rows []PositionRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("id,side,entry_time,entry_price,quantity,exit_time,exit_price,commission,pnl,exit_reason\n")

	// Rows
	for _, p := range rows {
		exitTime := ""
		if p.ExitTime != nil {
			exitTime = p.ExitTime.UTC().Format(time.RFC3339)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			p.ID,
			p.Side,
			p.EntryTime.UTC().Format(time.RFC3339),
			p.EntryPrice,
			p.Quantity,
			exitTime,
			p.ExitPrice,
			p.Commission,
			p.PnL,
			p.ExitReason,
		))
	}

	return sb.String()
}

// RenderEquityCSV renders equity curve rows as CSV string.
func RenderEquityCSV(rows []EquityRow) string {
	var sb strings.Builder
	sb.WriteString("timestamp,equity,drawdown\n")
	for _, e := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s\n", e.Timestamp.UTC().Format(time.RFC3339), e.Equity, e.Drawdown))
	}
	return sb.String()
}

// Output file names written by WriteFiles.
const (
	MarkdownFile  = "report.md"
	PositionsFile = "positions.csv"
	EquityFile    = "equity.csv"
)

// WriteFiles writes the Markdown report and both CSVs into dir, creating it
// if needed. Returns the written paths in that order.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{MarkdownFile, RenderMarkdown(r)},
		{PositionsFile, RenderPositionsCSV(r.Positions)},
		{EquityFile, RenderEquityCSV(r.Equity)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
