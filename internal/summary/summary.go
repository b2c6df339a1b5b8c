// Package summary turns a resolution into the view handed to callers:
// JSON for the HTTP adapter and --json, a table for the terminal.
package summary

import (
	"fmt"
	"io"
	"kanji/internal/collector"
	"kanji/internal/resolver"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Slot struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SlotScore struct {
	Slot
	Attendance   int  `json:"attendance"`
	PriorityFree int  `json:"priority_free"`
	Satisfies    bool `json:"satisfies_hard_constraints"`
	Score        int  `json:"score"`
	Excluded     bool `json:"excluded,omitempty"`
}

type Failure struct {
	Participant string `json:"participant"`
	Source      string `json:"source"`
	Error       string `json:"error"`
}

// Summary is the caller-facing outcome of one resolution.
type Summary struct {
	ResolutionID             string      `json:"resolution_id"`
	Title                    string      `json:"title,omitempty"`
	Found                    bool        `json:"found"`
	Slot                     *Slot       `json:"slot,omitempty"`
	Attendance               int         `json:"attendance"`
	PriorityFree             int         `json:"priority_free"`
	PriorityTotal            int         `json:"priority_total"`
	RegularTotal             int         `json:"regular_total"`
	SatisfiesHardConstraints bool        `json:"satisfies_hard_constraints"`
	Caveat                   string      `json:"caveat,omitempty"`
	Pending                  []string    `json:"pending"`
	Failures                 []Failure   `json:"failures"`
	Trace                    []SlotScore `json:"trace"`
}

// New builds the summary of a resolution.
func New(title string, report *collector.Report, result resolver.Result) Summary {
	s := Summary{
		ResolutionID:             report.ID,
		Title:                    title,
		Found:                    result.Found,
		Attendance:               result.Attendance,
		PriorityFree:             result.PriorityFree,
		PriorityTotal:            len(report.Request.Priority),
		RegularTotal:             len(report.Request.Regular),
		SatisfiesHardConstraints: result.SatisfiesHardConstraints,
		Caveat:                   result.Caveat(),
		Pending:                  append([]string{}, report.Pending...),
		Failures:                 make([]Failure, 0, len(report.Failures)),
		Trace:                    make([]SlotScore, 0, len(result.Trace)),
	}
	if result.Found {
		s.Slot = &Slot{Label: result.Slot.Label, Start: result.Slot.Start, End: result.Slot.End}
	}
	for _, f := range report.Failures {
		s.Failures = append(s.Failures, Failure{Participant: f.Participant, Source: f.Source, Error: f.Err.Error()})
	}
	for _, tr := range result.Trace {
		s.Trace = append(s.Trace, SlotScore{
			Slot:         Slot{Label: tr.Slot.Label, Start: tr.Slot.Start, End: tr.Slot.End},
			Attendance:   tr.Attendance,
			PriorityFree: tr.PriorityFree,
			Satisfies:    tr.Satisfies,
			Score:        tr.Score,
			Excluded:     tr.Excluded,
		})
	}
	return s
}

// Render writes a plain-text report followed by the per-slot table.
func (s Summary) Render(w io.Writer) {
	if s.Title != "" {
		fmt.Fprintf(w, "Meeting:    %s\n", s.Title)
	}
	if !s.Found {
		fmt.Fprintln(w, "Result:     no slot found")
	} else {
		fmt.Fprintf(w, "Best slot:  %s (%s - %s)\n", s.Slot.Label, s.Slot.Start.Format("Mon 15:04"), s.Slot.End.Format("Mon 15:04 MST"))
		fmt.Fprintf(w, "Attendance: %d/%d regular, %d/%d priority\n", s.Attendance, s.RegularTotal, s.PriorityFree, s.PriorityTotal)
	}
	if s.Caveat != "" {
		fmt.Fprintf(w, "Caveat:     %s\n", s.Caveat)
	}
	if len(s.Pending) > 0 {
		fmt.Fprintf(w, "Pending:    %s\n", strings.Join(s.Pending, ", "))
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "Failed:     %s (%s): %s\n", f.Participant, f.Source, f.Error)
	}

	if len(s.Trace) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Slot", "Score", "Attendance", "Priority free", "Hard constraints", ""})
	for _, tr := range s.Trace {
		mark := ""
		switch {
		case tr.Excluded:
			mark = "outside time of day"
		case s.Slot != nil && tr.Label == s.Slot.Label:
			mark = "selected"
		}
		tw.AppendRow(table.Row{tr.Label, tr.Score, tr.Attendance, fmt.Sprintf("%d/%d", tr.PriorityFree, s.PriorityTotal), tr.Satisfies, mark})
	}
	tw.Render()
}
