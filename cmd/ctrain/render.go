package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hylla/ctrain/internal/adapters/storage/sqlite"
	"github.com/hylla/ctrain/internal/app"
)

var (
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	sectionStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
)

// newTable returns a rounded table with a bold header row.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// renderCatalog renders the activity rates, rotational awards and goals.
func renderCatalog(cat app.Catalog) string {
	activities := newTable("Activity", "Rate", "Input", "Cap")
	for _, def := range cat.Activities {
		activities.Row(def.Name, def.Descriptor, def.Rule.InputLabel(), dashIfEmpty(def.CapNote()))
	}

	rotational := newTable("Months", "Credits")
	for _, award := range cat.Rotational {
		rotational.Row(strconv.Itoa(award.Months), formatCredits(award.Credits))
	}

	goals := newTable("Qualification", "Goal")
	for _, q := range cat.Qualifications {
		goals.Row(q.Qualification, formatCredits(q.Goal))
	}
	goals.Row("(other)", formatCredits(cat.DefaultGoal))

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Activities") + "\n")
	b.WriteString(activities.Render() + "\n\n")
	b.WriteString(sectionStyle.Render("Rotational assignments") + "\n")
	b.WriteString(rotational.Render() + "\n\n")
	b.WriteString(sectionStyle.Render("Goals") + "\n")
	b.WriteString(goals.Render() + "\n")
	return b.String()
}

// renderHistory renders recent form saves, newest first.
func renderHistory(events []sqlite.FormEvent) string {
	if len(events) == 0 {
		return "no saves yet\n"
	}
	t := newTable("When", "Actor", "Type", "Records", "Credits")
	for _, event := range events {
		t.Row(
			event.OccurredAt.Local().Format(time.DateTime),
			event.ActorID,
			string(event.ActorType),
			strconv.Itoa(event.RecordCount),
			formatCredits(event.TotalCredits),
		)
	}
	return t.Render() + "\n"
}

func formatCredits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

