package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pharmaguard-client/internal/service"
	"github.com/pharmaguard-client/pkg/classification"
)

var tierColors = map[classification.Tier]lipgloss.Color{
	classification.TierGreen:  lipgloss.Color("2"),
	classification.TierAmber:  lipgloss.Color("3"),
	classification.TierOrange: lipgloss.Color("208"),
	classification.TierRed:    lipgloss.Color("1"),
	classification.TierPurple: lipgloss.Color("5"),
	classification.TierDanger: lipgloss.Color("9"),
	classification.TierMuted:  lipgloss.Color("8"),
}

// renderSummary prints the stats line and one table row per result, colored
// by the result's risk accent. Color is dropped when out is not a terminal.
func renderSummary(out io.Writer, items []service.ResultItem, stats service.Stats) {
	r := lipgloss.NewRenderer(out)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		gene := ""
		if item.Result.Profile != nil {
			gene = item.Result.Profile.PrimaryGene
		}
		activity := ""
		if item.Annotation.Activity != nil {
			activity = item.Annotation.Activity.Label
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Index + 1),
			item.Result.Drug,
			gene,
			item.Annotation.Phenotype.Label,
			item.Annotation.RiskLabel,
			item.Annotation.Severity.Label,
			activity,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("#", "DRUG", "GENE", "PHENOTYPE", "RISK", "SEVERITY", "ACTIVITY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 4 && row >= 0 && row < len(items) {
				if color, ok := tierColors[items[row].Annotation.Accent]; ok {
					return cell.Foreground(color).Bold(true)
				}
			}
			return cell
		})

	fmt.Fprintf(out, "%d results: %d safe, %d adjust dosage, %d high risk\n",
		stats.Total, stats.Safe, stats.Adjust, stats.HighRisk)
	if len(items) > 0 {
		fmt.Fprintln(out, t.String())
	}
}
