package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"restocheck/internal/models"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InspectionSource is the slice of the inspection store the aggregator needs.
type InspectionSource interface {
	FindInRange(ctx context.Context, from, to time.Time, sectionIDs []primitive.ObjectID) ([]models.Inspection, error)
}

// CatalogSource resolves the names joined into report rows.
type CatalogSource interface {
	RestaurantsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Restaurant, error)
	SectionsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Section, error)
	SectionsByRestaurants(ctx context.Context, restaurantIDs []primitive.ObjectID) ([]models.Section, error)
	EmployeesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Employee, error)
}

// ReportResult is the ephemeral output of one aggregation run, consumed by
// the delivery channels or returned to the caller.
type ReportResult struct {
	Success        bool      `json:"success"`
	FilePath       string    `json:"file_path"`
	Filename       string    `json:"filename"`
	CSVUrl         string    `json:"csv_url"`
	CSVContent     string    `json:"-"`
	RecordCount    int       `json:"record_count"`
	IsEmpty        bool      `json:"is_empty"`
	PassedCount    int       `json:"passed_count"`
	AttentionCount int       `json:"attention_count"`
	GeneratedAt    time.Time `json:"generated_at"`
}

const defaultDateRangeDays = 30

var csvHeader = []string{
	"Employee", "Sent Date", "Send Time", "Done Date", "Done Time",
	"Restaurant", "Section", "Status", "Responses",
}

type ReportService struct {
	inspections InspectionSource
	catalog     CatalogSource

	reportsDir      string
	baseURL         string
	defaultTimeZone string
}

func NewReportService(inspections InspectionSource, catalog CatalogSource, reportsDir, baseURL, defaultTimeZone string) *ReportService {
	return &ReportService{
		inspections:     inspections,
		catalog:         catalog,
		reportsDir:      reportsDir,
		baseURL:         strings.TrimRight(baseURL, "/"),
		defaultTimeZone: defaultTimeZone,
	}
}

// Generate aggregates inspections matching the config's filters into a CSV
// file on disk. Zero matching inspections is not an error: the result carries
// a valid header-only CSV with IsEmpty set.
func (s *ReportService) Generate(ctx context.Context, config *models.NotificationConfig) (*ReportResult, error) {
	days := config.Filters.DateRangeDays
	if days <= 0 {
		days = defaultDateRangeDays
	}
	now := time.Now()
	from := now.AddDate(0, 0, -days)

	sectionIDs, err := s.resolveSectionScope(ctx, config.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve report scope: %w", err)
	}

	inspections, err := s.inspections.FindInRange(ctx, from, now, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}

	loc := s.location(config.TimeZone)

	var rows [][]string
	passed, attention := 0, 0
	if len(inspections) > 0 {
		lookups, err := s.buildLookups(ctx, inspections)
		if err != nil {
			return nil, err
		}
		for _, inspection := range inspections {
			rows = append(rows, s.buildRow(inspection, lookups, loc))
			switch inspection.Status {
			case models.InspectionStatusPassed:
				passed++
			case models.InspectionStatusAttention:
				attention++
			}
		}
	}

	csvContent := encodeCSV(csvHeader, rows)

	filename := reportFilename(config.Name, now)
	if err := os.MkdirAll(s.reportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	filePath := filepath.Join(s.reportsDir, filename)
	if err := os.WriteFile(filePath, []byte(csvContent), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report file: %w", err)
	}

	result := &ReportResult{
		Success:        true,
		FilePath:       filePath,
		Filename:       filename,
		CSVUrl:         fmt.Sprintf("%s/uploads/reports/%s", s.baseURL, filename),
		CSVContent:     csvContent,
		RecordCount:    len(inspections),
		IsEmpty:        len(inspections) == 0,
		PassedCount:    passed,
		AttentionCount: attention,
		GeneratedAt:    now,
	}

	log.WithFields(log.Fields{
		"report":  config.Name,
		"records": result.RecordCount,
		"file":    filename,
	}).Info("inspection report generated")

	return result, nil
}

// resolveSectionScope turns the restaurant/section filters into a concrete
// section id list. Nil means no section filter.
func (s *ReportService) resolveSectionScope(ctx context.Context, filters models.ReportFilters) ([]primitive.ObjectID, error) {
	var fromRestaurants []primitive.ObjectID
	if filters.Restaurants == models.FilterScopeSpecific && len(filters.SelectedRestaurants) > 0 {
		sections, err := s.catalog.SectionsByRestaurants(ctx, filters.SelectedRestaurants)
		if err != nil {
			return nil, err
		}
		for _, section := range sections {
			fromRestaurants = append(fromRestaurants, section.ID)
		}
		// A restaurant scope that owns no sections must match nothing, not
		// fall through to an unfiltered query.
		if len(fromRestaurants) == 0 {
			fromRestaurants = []primitive.ObjectID{primitive.NilObjectID}
		}
	}

	sectionFilter := filters.Sections == models.FilterScopeSpecific && len(filters.SelectedSections) > 0
	switch {
	case sectionFilter && len(fromRestaurants) > 0:
		allowed := make(map[primitive.ObjectID]bool, len(fromRestaurants))
		for _, id := range fromRestaurants {
			allowed[id] = true
		}
		var intersection []primitive.ObjectID
		for _, id := range filters.SelectedSections {
			if allowed[id] {
				intersection = append(intersection, id)
			}
		}
		// An empty intersection must not fall through to "no filter".
		if len(intersection) == 0 {
			intersection = []primitive.ObjectID{primitive.NilObjectID}
		}
		return intersection, nil
	case sectionFilter:
		return filters.SelectedSections, nil
	default:
		return fromRestaurants, nil
	}
}

type reportLookups struct {
	employees   map[primitive.ObjectID]string
	sections    map[primitive.ObjectID]models.Section
	restaurants map[primitive.ObjectID]string
	questions   map[primitive.ObjectID]string
}

// buildLookups batch-resolves the names referenced by the inspection set.
// One query per collection, never per row.
func (s *ReportService) buildLookups(ctx context.Context, inspections []models.Inspection) (*reportLookups, error) {
	employeeIDs := map[primitive.ObjectID]bool{}
	sectionIDs := map[primitive.ObjectID]bool{}
	for _, inspection := range inspections {
		employeeIDs[inspection.EmployeeID] = true
		sectionIDs[inspection.SectionID] = true
	}

	lookups := &reportLookups{
		employees:   map[primitive.ObjectID]string{},
		sections:    map[primitive.ObjectID]models.Section{},
		restaurants: map[primitive.ObjectID]string{},
		questions:   map[primitive.ObjectID]string{},
	}

	employees, err := s.catalog.EmployeesByIDs(ctx, keys(employeeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve employees: %w", err)
	}
	for _, employee := range employees {
		lookups.employees[employee.ID] = employee.Name
	}

	sections, err := s.catalog.SectionsByIDs(ctx, keys(sectionIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sections: %w", err)
	}
	restaurantIDs := map[primitive.ObjectID]bool{}
	for _, section := range sections {
		lookups.sections[section.ID] = section
		restaurantIDs[section.RestaurantID] = true
		for _, question := range section.Questions {
			lookups.questions[question.ID] = question.Text
		}
	}

	restaurants, err := s.catalog.RestaurantsByIDs(ctx, keys(restaurantIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve restaurants: %w", err)
	}
	for _, restaurant := range restaurants {
		lookups.restaurants[restaurant.ID] = restaurant.Name
	}

	return lookups, nil
}

func (s *ReportService) buildRow(inspection models.Inspection, lookups *reportLookups, loc *time.Location) []string {
	employee := lookups.employees[inspection.EmployeeID]
	if employee == "" {
		employee = "Unknown Employee"
	}

	sectionName := "Unknown Section"
	restaurantName := "Unknown Restaurant"
	if section, ok := lookups.sections[inspection.SectionID]; ok {
		sectionName = section.Name
		if name, ok := lookups.restaurants[section.RestaurantID]; ok {
			restaurantName = name
		}
	}

	var parts []string
	for _, response := range inspection.Responses {
		question := lookups.questions[response.QuestionID]
		if question == "" {
			question = fmt.Sprintf("Question %s", response.QuestionID.Hex())
		}
		verdict := "N/A"
		if response.Passed != nil {
			if *response.Passed {
				verdict = "Passed"
			} else {
				verdict = "Failed"
			}
		}
		part := fmt.Sprintf("%s: %s", question, verdict)
		if response.Comment != "" {
			part = fmt.Sprintf("%s (%s)", part, response.Comment)
		}
		parts = append(parts, part)
	}

	sentAt := inspection.SentAt.In(loc)
	doneAt := inspection.DoneAt.In(loc)

	return []string{
		employee,
		sentAt.Format("2006-01-02"),
		sentAt.Format("15:04:05"),
		doneAt.Format("2006-01-02"),
		doneAt.Format("15:04:05"),
		restaurantName,
		sectionName,
		statusLabel(inspection.Status),
		strings.Join(parts, "; "),
	}
}

// location resolves the config zone with fallback to the service default,
// then UTC. A civil "09:00 America/Toronto" must follow DST, so zones are
// loaded, never fixed offsets.
func (s *ReportService) location(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
		log.Warnf("invalid report time zone %q, falling back to %s", name, s.defaultTimeZone)
	}
	if loc, err := time.LoadLocation(s.defaultTimeZone); err == nil {
		return loc
	}
	return time.UTC
}

func statusLabel(status string) string {
	switch status {
	case models.InspectionStatusPassed:
		return "Passed"
	case models.InspectionStatusAttention:
		return "Attention"
	default:
		return status
	}
}

// encodeCSV renders rows with every value quoted and inner quotes doubled.
// Question text and comments are free-form; they may contain commas, quotes
// and newlines, so quoting is unconditional.
func encodeCSV(header []string, rows [][]string) string {
	var b strings.Builder
	writeCSVLine(&b, header)
	for _, row := range rows {
		writeCSVLine(&b, row)
	}
	return b.String()
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
}

// reportFilename builds a name safe for both the filesystem and a URL path:
// every non-alphanumeric rune of the config name becomes an underscore.
func reportFilename(name string, at time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	if strings.Trim(slug, "_") == "" {
		slug = "inspection_report"
	}
	return fmt.Sprintf("%s_%s.csv", slug, at.Format("2006-01-02_15-04-05"))
}

func keys(set map[primitive.ObjectID]bool) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
