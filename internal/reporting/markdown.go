package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	title := r.StrategyName
	if title == "" {
		title = r.StrategyID
	}
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("| Run | %s |\n", r.RunID))
	}
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", r.StrategyID))
	if len(r.StrategyHash) >= 12 {
		sb.WriteString(fmt.Sprintf("| Definition | %s |\n", r.StrategyHash[:12]))
	}
	if r.Symbol != "" {
		sb.WriteString(fmt.Sprintf("| Symbol | %s |\n", r.Symbol))
	}
	if !r.StartDate.IsZero() || !r.EndDate.IsZero() {
		sb.WriteString(fmt.Sprintf("| Period | %s to %s |\n", formatDate(r.StartDate), formatDate(r.EndDate)))
	}
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.BarCount))
	sb.WriteString("\n")

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %s |\n", s.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Final Capital | %s |\n", s.FinalCapital))
	sb.WriteString(fmt.Sprintf("| Net Profit | %s |\n", s.NetProfit))
	sb.WriteString(fmt.Sprintf("| Total Return | %s%% |\n", s.TotalReturn))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %s |\n", s.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s%% |\n", s.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Win Rate | %s%% |\n", s.WinRate))
	sb.WriteString("\n")

	// Performance
	p := r.Performance
	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Trades | Wins | Losses | Avg Win | Avg Loss | Profit Factor |\n")
	sb.WriteString("|--------|------|--------|---------|----------|---------------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %d | %s | %s | %s |\n",
		p.TotalTrades, p.WinningTrades, p.LosingTrades, p.AvgWin, p.AvgLoss, p.ProfitFactor))
	sb.WriteString("\n")

	// Signals
	if len(r.SignalCounts) > 0 {
		sb.WriteString("## Signals\n\n")
		sb.WriteString("| Signal | Count |\n")
		sb.WriteString("|--------|-------|\n")
		keys := make([]string, 0, len(r.SignalCounts))
		for k := range r.SignalCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", k, r.SignalCounts[k]))
		}
		sb.WriteString("\n")
	}

	// Positions
	sb.WriteString("## Positions\n\n")
	if len(r.Positions) > 0 {
		sb.WriteString("| # | Side | Entry | Entry Price | Qty | Exit | Exit Price | Commission | PnL | Reason |\n")
		sb.WriteString("|---|------|-------|-------------|-----|------|------------|------------|-----|--------|\n")
		for i, pos := range r.Positions {
			exit := "-"
			if pos.ExitTime != nil {
				exit = formatDate(*pos.ExitTime)
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				i+1, pos.Side, formatDate(pos.EntryTime), pos.EntryPrice, pos.Quantity,
				exit, dash(pos.ExitPrice), pos.Commission, dash(pos.PnL), dash(pos.ExitReason)))
		}
	} else {
		sb.WriteString("No positions were opened.\n")
	}
	sb.WriteString("\n")

	// Equity Curve
	sb.WriteString("## Equity Curve\n\n")
	if len(r.Equity) > 0 {
		writeEquityTable(&sb, r.Equity)
	} else {
		sb.WriteString("No closed positions.\n")
	}
	sb.WriteString("\n")

	// Drawdowns
	sb.WriteString("## Significant Drawdowns\n\n")
	if len(r.Drawdowns) > 0 {
		writeEquityTable(&sb, r.Drawdowns)
	} else {
		sb.WriteString("None.\n")
	}
	sb.WriteString("\n")

	// History
	if h := r.History; h != nil {
		sb.WriteString("## Strategy History\n\n")
		sb.WriteString("| Runs | Trades | Mean Return | Median Return | Best | Worst | Worst Drawdown | Mean Win Rate |\n")
		sb.WriteString("|------|--------|-------------|---------------|------|-------|----------------|---------------|\n")
		sb.WriteString(fmt.Sprintf("| %d | %d | %s%% | %s%% | %s%% | %s%% | %s%% | %s%% |\n",
			h.RunCount, h.TotalTrades, h.MeanReturn, h.MedianReturn,
			h.BestReturn, h.WorstReturn, h.WorstDrawdown, h.MeanWinRate))
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeEquityTable(sb *strings.Builder, rows []EquityRow) {
	sb.WriteString("| Time | Equity | Drawdown |\n")
	sb.WriteString("|------|--------|----------|\n")
	for _, e := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s%% |\n", formatDate(e.Timestamp), e.Equity, e.Drawdown))
	}
}

// formatDate drops the clock for midnight UTC timestamps.
func formatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
