package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/dipdup-net/acquire/internal/selector"
	"github.com/jedib0t/go-pretty/v6/table"
)

// PeriodCoverage -
type PeriodCoverage struct {
	Period    int `json:"period"`
	Known     int `json:"known"`
	Retrieved int `json:"retrieved"`
}

// Report - summary of the checkpoint
type Report struct {
	Population      int                     `json:"population"`
	Completed       int                     `json:"completed"`
	Pending         int                     `json:"pending"`
	ByStatus        map[string]int          `json:"byStatus"`
	Incomplete      map[selector.Reason]int `json:"incomplete"`
	Coverage        []PeriodCoverage        `json:"coverage"`
	RelatedRecords  int                     `json:"relatedRecords"`
	CallsInLastHour int                     `json:"callsInLastHour"`
	LastRun         *time.Time              `json:"lastRun,omitempty"`
	Runs            []models.RunRecord      `json:"runs"`
}

// Build - report of the store over the entity population. A nil population counts only known entities.
func Build(store *progress.Store, population []models.Entity) Report {
	r := Report{
		Completed:       store.CompletedCount,
		ByStatus:        make(map[string]int),
		Incomplete:      make(map[selector.Reason]int),
		Coverage:        make([]PeriodCoverage, 0),
		CallsInLastHour: store.APICallsInLastHour,
		LastRun:         store.LastRunTimestamp,
		Runs:            store.Runs,
	}

	if population == nil {
		r.Population = len(store.ProcessedEntities)
	} else {
		seen := make(map[string]struct{}, len(population))
		for i := range population {
			if _, ok := seen[population[i].ID]; ok {
				continue
			}
			seen[population[i].ID] = struct{}{}
			if !store.IsTerminal(population[i].ID) {
				r.Pending++
			}
		}
		r.Population = len(seen)
	}
	if r.Pending > 0 {
		r.ByStatus[models.StatusPending.String()] = r.Pending
	}

	periods := make(map[int]*PeriodCoverage)
	for _, record := range store.ProcessedEntities {
		r.ByStatus[record.Status.String()]++
		r.RelatedRecords += len(record.RelatedRecords)

		if reason, _, ok := selector.Classify(record); ok {
			r.Incomplete[reason]++
		}

		for _, period := range record.KnownPeriods {
			coverage(periods, period).Known++
		}
		for _, period := range record.RetrievedPeriods {
			coverage(periods, period).Retrieved++
		}
	}

	for _, c := range periods {
		r.Coverage = append(r.Coverage, *c)
	}
	sort.Slice(r.Coverage, func(i, j int) bool {
		return r.Coverage[i].Period < r.Coverage[j].Period
	})
	return r
}

func coverage(periods map[int]*PeriodCoverage, period int) *PeriodCoverage {
	c, ok := periods[period]
	if !ok {
		c = &PeriodCoverage{Period: period}
		periods[period] = c
	}
	return c
}

// Render - human readable tables
func (r Report) Render(w io.Writer) {
	summary := newTable(w)
	summary.SetTitle("Acquisition progress")
	summary.AppendRow(table.Row{"Population", r.Population})
	summary.AppendRow(table.Row{"Completed", r.Completed})
	summary.AppendRow(table.Row{"Pending", r.Pending})
	summary.AppendRow(table.Row{"Related records", r.RelatedRecords})
	summary.AppendRow(table.Row{"Calls in last hour", r.CallsInLastHour})
	lastRun := "never"
	if r.LastRun != nil {
		lastRun = r.LastRun.Format(time.RFC3339)
	}
	summary.AppendRow(table.Row{"Last run", lastRun})
	summary.Render()

	statuses := newTable(w)
	statuses.AppendHeader(table.Row{"Status", "Entities"})
	for _, status := range models.Statuses {
		if count, ok := r.ByStatus[status.String()]; ok {
			statuses.AppendRow(table.Row{status.String(), count})
		}
	}
	if r.Pending > 0 {
		statuses.AppendRow(table.Row{models.StatusPending.String(), r.Pending})
	}
	for _, reason := range []selector.Reason{selector.ReasonMissingCoverage, selector.ReasonNoData, selector.ReasonMissingRelated} {
		if count := r.Incomplete[reason]; count > 0 {
			statuses.AppendFooter(table.Row{fmt.Sprintf("incomplete: %s", reason), count})
		}
	}
	statuses.Render()

	if len(r.Coverage) > 0 {
		periods := newTable(w)
		periods.AppendHeader(table.Row{"Period", "Known", "Retrieved", "Coverage"})
		for _, c := range r.Coverage {
			periods.AppendRow(table.Row{c.Period, c.Known, c.Retrieved, percent(c.Retrieved, c.Known)})
		}
		periods.Render()
	}

	if len(r.Runs) > 0 {
		runs := newTable(w)
		runs.AppendHeader(table.Row{"Run", "Started", "Mode", "Entities", "Calls", "Error"})
		for _, run := range r.Runs {
			mode := "normal"
			if run.Recovery {
				mode = "recovery"
			}
			runs.AppendRow(table.Row{run.ID, run.StartedAt.Format(time.RFC3339), mode, run.Entities, run.Calls, run.Error})
		}
		runs.Render()
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func percent(part, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}
