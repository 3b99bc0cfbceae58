package reporter

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

// RenderGridVisualization renders the level-by-level grid snapshot as a
// console table, highest price first.
func RenderGridVisualization(viz models.GridVisualization) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s grid @ %.4f", viz.Symbol, viz.CurrentPrice))
	t.AppendHeader(table.Row{"Level", "Side", "Price", "Qty", "Status", "Fill %", "Profit %", "Dist %"})

	for _, l := range viz.Levels {
		t.AppendRow(table.Row{
			l.Level,
			l.Side,
			fmt.Sprintf("%.4f", l.Price),
			fmt.Sprintf("%.6f", l.Quantity),
			l.Status,
			fmt.Sprintf("%.0f", l.FillPct),
			fmt.Sprintf("%+.2f", l.ProfitPotentialPct),
			fmt.Sprintf("%.2f", l.DistanceFromMarketPct),
		})
	}

	t.AppendFooter(table.Row{
		"", "",
		fmt.Sprintf("range %.2f%%", viz.GridRangePct),
		"",
		fmt.Sprintf("%d levels", viz.TotalLevels),
		"",
		fmt.Sprintf("$%.2f filled", viz.FilledCapital),
		fmt.Sprintf("$%.2f pending", viz.PendingCapital),
	})
	return t.Render()
}

// RenderRoadmap renders the four-phase roadmap with per-phase progress.
func RenderRoadmap(status models.RoadmapStatus) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Capital roadmap")
	t.AppendHeader(table.Row{"Phase", "Status", "Capital", "Target", "Cycles", "Target cycles"})

	for _, p := range status.Overview.Phases {
		labelText := "PENDING"
		switch {
		case p.IsComplete:
			labelText = "COMPLETE"
		case p.PhaseNumber == status.Overview.CurrentPhase:
			labelText = "ACTIVE"
		}
		t.AppendRow(table.Row{
			p.PhaseNumber,
			labelText,
			fmt.Sprintf("$%.2f", p.CurrentCapital),
			fmt.Sprintf("$%.0f", p.TargetCapital),
			p.CompletedCycles,
			p.TargetCycles,
		})
	}

	eta := "unknown"
	if status.CompletionEstimate.Known {
		eta = fmt.Sprintf("%.1f days (%s)",
			status.CompletionEstimate.EstimatedDays,
			status.CompletionEstimate.EstimatedDate.Format("2006-01-02"))
	}
	t.AppendFooter(table.Row{
		"", "",
		fmt.Sprintf("profit $%.2f", status.Overview.TotalProfit),
		"",
		status.Overview.TotalCyclesCompleted,
		"ETA " + eta,
	})
	return t.Render()
}

// RenderActiveGrids renders the active-grid summary table.
func RenderActiveGrids(status models.ActiveGridsStatus) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Active grids")
	t.AppendHeader(table.Row{"Grid", "Symbol", "Spacing %", "Orders", "Invested", "Realized P&L", "Cycles", "Win %"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 16, WidthMaxEnforcer: text.Trim},
	})

	for _, g := range status.Grids {
		t.AppendRow(table.Row{
			g.GridID,
			g.Config.Symbol,
			fmt.Sprintf("%.2f", g.Config.GridSpacingPct),
			g.Stats.ActiveOrders,
			fmt.Sprintf("$%.2f", g.TotalInvested),
			fmt.Sprintf("$%+.2f", g.RealizedPnL),
			g.Stats.TotalCycles,
			fmt.Sprintf("%.1f", g.Stats.WinRate),
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d grids", status.TotalActiveGrids),
		"", "",
		status.TotalActiveOrders,
		fmt.Sprintf("$%.2f", status.TotalCapitalUsed),
		"", "", "",
	})
	return t.Render()
}

// RenderLivePnL renders the headline P&L block.
func RenderLivePnL(status models.LivePnLStatus) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Live P&L")
	t.AppendRows([]table.Row{
		{"Today", fmt.Sprintf("$%+.2f", status.PnL.TodayPnL)},
		{"This week", fmt.Sprintf("$%+.2f", status.PnL.WeekPnL)},
		{"Total profit", fmt.Sprintf("$%+.2f", status.PnL.TotalProfit)},
		{"Total cycles", status.PnL.TotalCycles},
		{"Avg ROI / cycle", fmt.Sprintf("%.2f%%", status.PnL.AvgROIPerCycle)},
		{"Capital", fmt.Sprintf("$%.2f (from $%.2f)", status.PnL.CurrentCapital, status.PnL.StartingCapital)},
		{"Phase", fmt.Sprintf("%d (%.0f%% cycles, %.0f%% capital)",
			status.PhaseProgress.PhaseNumber,
			status.PhaseProgress.CycleProgressPct,
			status.PhaseProgress.CapitalProgressPct)},
	})
	return t.Render()
}
