package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/models"
)

const registrationDateNotFound = "Not found"

// PortalData is one fresh scrape. ScheduleErr is set when the schedule half
// degraded; the registration date is still meaningful in that case.
type PortalData struct {
	Term             string
	RegistrationDate string
	Courses          []models.ScheduleEntry
	ScheduleErr      error
}

// ScheduleReport renders the schedule the way the assistant consumes it.
func (d *PortalData) ScheduleReport() string {
	if d.ScheduleErr != nil {
		return fmt.Sprintf("Error retrieving schedule: %v", d.ScheduleErr)
	}
	if len(d.Courses) == 0 {
		return fmt.Sprintf("No classes registered for %s.", d.Term)
	}
	out, err := json.MarshalIndent(d.Courses, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error retrieving schedule: %v", err)
	}
	return string(out)
}

// Extractor reads the registration date and schedule reports from an
// authenticated browser.
type Extractor struct {
	pages   Pages
	timings Timings
	term    string
}

func NewExtractor(pages Pages, timings Timings, term string) *Extractor {
	return &Extractor{pages: pages, timings: timings, term: term}
}

// Fetch never fails; each half degrades on its own.
func (e *Extractor) Fetch(ctx context.Context, userID string, b Browser) *PortalData {
	data := &PortalData{Term: e.term}
	data.RegistrationDate = e.registrationDate(ctx, userID, b)
	data.Courses, data.ScheduleErr = e.schedule(ctx, b)
	if data.ScheduleErr != nil {
		logger.WithUser(userID).WithError(data.ScheduleErr).Warn("schedule extraction degraded")
	}
	return data
}

func (e *Extractor) registrationDate(ctx context.Context, userID string, b Browser) string {
	log := logger.WithUser(userID)

	if err := b.Navigate(ctx, e.pages.RegistrationDates); err != nil {
		log.WithError(err).Warn("registration dates page unavailable")
		return registrationDateNotFound
	}
	if err := sleep(ctx, e.timings.RegDateSettle); err != nil {
		return registrationDateNotFound
	}
	source, err := b.Source(ctx)
	if err != nil {
		log.WithError(err).Warn("registration dates page unreadable")
		return registrationDateNotFound
	}
	return ParseRegistrationDate(source, e.term)
}

func (e *Extractor) schedule(ctx context.Context, b Browser) ([]models.ScheduleEntry, error) {
	if err := b.Navigate(ctx, e.pages.Schedule); err != nil {
		return nil, err
	}

	dropdown, err := b.WaitFor(ctx, selTermDropdown, e.timings.ScheduleWait)
	if err != nil {
		return nil, err
	}
	if err := dropdown.SelectText(ctx, e.term); err != nil {
		return nil, fmt.Errorf("select term %s: %w", e.term, err)
	}

	if _, err := b.WaitFor(ctx, selCoursesGrid, e.timings.ScheduleWait); err != nil {
		return nil, err
	}

	source, err := b.Source(ctx)
	if err != nil {
		return nil, err
	}
	return ParseSchedule(source)
}

// ParseRegistrationDate returns the second cell of the first row that has a
// cell mentioning term, or "Not found".
func ParseRegistrationDate(source, term string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return registrationDateNotFound
	}

	result := registrationDateNotFound
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		matched := cells.FilterFunction(func(_ int, td *goquery.Selection) bool {
			return strings.Contains(td.Text(), term)
		})
		if matched.Length() == 0 || cells.Length() < 2 {
			return true
		}
		if date := flattenText(cells.Eq(1)); date != "" {
			result = date
		}
		return false
	})
	return result
}

// ParseSchedule reads the course grid. Rows without a title or date range
// are skipped; a course without a details table has no meeting details.
func ParseSchedule(source string) ([]models.ScheduleEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse schedule page: %w", err)
	}

	grid := doc.Find(selCoursesGrid).First()
	if grid.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selCoursesGrid)
	}

	entries := []models.ScheduleEntry{}
	directRows(grid).Each(func(_ int, row *goquery.Selection) {
		if entry, ok := parseCourseRow(row); ok {
			entries = append(entries, entry)
		}
	})
	return entries, nil
}

func parseCourseRow(row *goquery.Selection) (models.ScheduleEntry, bool) {
	title := flattenText(row.Find(selCourseTitle).First())
	dates := flattenText(row.Find(selCourseDates).First())
	if title == "" || dates == "" {
		return models.ScheduleEntry{}, false
	}

	entry := models.ScheduleEntry{CourseTitle: title, DateRange: dates, MeetingDetails: []string{}}

	details := row.Find(selDetailsGrid).First()
	if details.Length() == 0 {
		return entry, true
	}

	directRows(details).Each(func(_ int, dr *goquery.Selection) {
		if meeting := meetingText(dr); meeting != "" {
			entry.MeetingDetails = append(entry.MeetingDetails, meeting)
		}
	})
	return entry, true
}

// meetingText is the detail row as rendered: days, times, room and
// instructor names in one blob, left for the reader to interpret.
func meetingText(dr *goquery.Selection) string {
	return flattenText(dr)
}

// directRows returns the rows owned by table itself, not by tables nested in it.
func directRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})
}

// flattenText joins the visible text nodes of sel with single spaces.
func flattenText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			parts = append(parts, strings.Fields(n.Data)...)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
