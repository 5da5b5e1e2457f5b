package orb

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// RenderStatus formats the per-symbol table plus the day's counters. The
// worker logs it on a fixed cadence and the status endpoint serves it.
func RenderStatus(rows []StatusRow, counters *DailyCounters) string {
	var sb strings.Builder

	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Symbol", "ORB High", "ORB Low", "In Pos", "Traded", "Type", "Retest", "Bars"})

	for _, row := range rows {
		retest := "-"
		bars := "-"
		if row.PendingRetest {
			retest = "pending"
			bars = fmt.Sprintf("%d", row.BarsSince)
		}

		rangeHigh := "-"
		rangeLow := "-"
		if row.ORBHigh > row.ORBLow {
			rangeHigh = fmt.Sprintf("%.2f", row.ORBHigh)
			rangeLow = fmt.Sprintf("%.2f", row.ORBLow)
		}

		table.Append([]string{
			row.Symbol,
			rangeHigh,
			rangeLow,
			fmt.Sprintf("%t", row.InPosition),
			fmt.Sprintf("%t", row.HasTradedToday),
			string(row.TradeType),
			retest,
			bars,
		})
	}

	table.Render()

	total, byType, byReason := counters.Snapshot()
	sb.WriteString(fmt.Sprintf("trades: %d (breakout %d, retest %d)\n",
		total, byType[models.TradeTypeBreakout], byType[models.TradeTypeRetest]))

	if len(byReason) > 0 {
		sb.WriteString("filtered:")
		for _, reason := range []models.FilterReason{
			models.FilterReasonVolume, models.FilterReasonBody,
			models.FilterReasonSustainability, models.FilterReasonConfirmation,
			models.FilterReasonMarket, models.FilterReasonCooldown,
			models.FilterReasonTrend, models.FilterReasonStructure,
			models.FilterReasonRiskReward, models.FilterReasonData,
		} {
			if count := byReason[reason]; count > 0 {
				sb.WriteString(fmt.Sprintf(" %s=%d", reason, count))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
