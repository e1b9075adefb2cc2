package portal

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

func TestParseRegistrationDate(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"finds term row", registrationsPage("2026SP", "Nov 12, 2025 8:00 AM"), "Nov 12, 2025 8:00 AM"},
		{"term missing", registrationsPage("2025FA", "Apr 1, 2025"), "Not found"},
		{"single cell row", `<table><tr><td>2026SP</td></tr></table>`, "Not found"},
		{"empty date cell", `<table><tr><td>2026SP</td><td>  </td></tr></table>`, "Not found"},
		{"not html at all", "", "Not found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseRegistrationDate(tc.source, "2026SP"); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestParseSchedule_MeetingDetailsFlattened(t *testing.T) {
	row := `<tr><td>
<span id="x_lblCourse">BIOSC-119   Fundamentals</span>
<span id="x_lblDates">01/20/2026 -
 05/22/2026</span>
<table class="course-details-grid">
  <tr><td>TTh</td><td>9:35AM-12:00PM</td><td><span id="x_lblLocation">PS-112</span></td>
      <td><table class="grid-faculty-names"><tr><td>Lee, A.</td><td>Park, B.</td></tr></table></td></tr>
  <tr><td>ONLINE</td><td><span id="y_lblLocation">Canvas</span></td></tr>
  <tr><td> </td></tr>
</table>
</td></tr>`

	entries, err := ParseSchedule(schedulePage(row))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.CourseTitle != "BIOSC-119 Fundamentals" {
		t.Errorf("unexpected title %q", e.CourseTitle)
	}
	if e.DateRange != "01/20/2026 - 05/22/2026" {
		t.Errorf("unexpected dates %q", e.DateRange)
	}
	want := []string{"TTh 9:35AM-12:00PM PS-112 Lee, A. Park, B.", "ONLINE Canvas"}
	if strings.Join(e.MeetingDetails, "|") != strings.Join(want, "|") {
		t.Errorf("expected details %q, got %q", want, e.MeetingDetails)
	}
}

func TestParseSchedule_MissingDetailsTable(t *testing.T) {
	row := `<tr><td><span id="a_lblCourse">PE-100</span><span id="a_lblDates">TBA</span></td></tr>`

	entries, err := ParseSchedule(schedulePage(row))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected partial entry, got %d entries", len(entries))
	}
	if entries[0].MeetingDetails == nil || len(entries[0].MeetingDetails) != 0 {
		t.Fatalf("expected empty, non-nil details, got %#v", entries[0].MeetingDetails)
	}
}

func TestParseSchedule_RowMissingDatesIsSkipped(t *testing.T) {
	rows := []string{
		`<tr><td><span id="a_lblCourse">ORPHAN</span></td></tr>`,
		courseRow("CHEM-120", "01/20/2026 - 05/22/2026", "MW PS-201"),
		spacerRow,
	}

	entries, err := ParseSchedule(schedulePage(rows...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].CourseTitle != "CHEM-120" {
		t.Fatalf("expected only CHEM-120, got %+v", entries)
	}
}

func TestParseSchedule_NoGrid(t *testing.T) {
	_, err := ParseSchedule(`<html><body><p>Session expired</p></body></html>`)
	if !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
}

func TestScheduleReport_JSONShape(t *testing.T) {
	data := &PortalData{
		Term: "2026SP",
		Courses: []models.ScheduleEntry{{
			CourseTitle:    "MATH-193",
			DateRange:      "01/20/2026 - 05/22/2026",
			MeetingDetails: []string{"MW 9:00AM MH-101"},
		}},
	}

	report := data.ScheduleReport()
	if !strings.Contains(report, "\n  {\n    \"course\": \"MATH-193\"") {
		t.Fatalf("expected two-space indented JSON, got %s", report)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(report), &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	for _, key := range []string{"course", "dates", "details"} {
		if _, ok := decoded[0][key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestScheduleReport_Error(t *testing.T) {
	data := &PortalData{Term: "2026SP", ScheduleErr: errors.New("boom")}
	if got := data.ScheduleReport(); got != "Error retrieving schedule: boom" {
		t.Fatalf("unexpected report %q", got)
	}
}
