package event_import

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/event"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidRow    = errors.New("invalid row")
)

var requiredColumns = []string{"name", "slug", "starts_at", "ends_at"}

// Row is one parsed CSV line. StartsAtText keeps the cell as written for reporting.
type Row struct {
	Line         int
	StartsAtText string
	Event        event.Event
}

// ParseCSV reads events from a CSV export with a header line. Times use layout in loc.
// Flags are true only when the cell is "1"; empty description and haunted_by become null.
func ParseCSV(r io.Reader, layout string, loc *time.Location) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidRow, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	rows := make([]Row, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, line, err)
		}
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		startsAt, err := time.ParseInLocation(layout, cell("starts_at"), loc)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: starts_at: %v", ErrInvalidRow, line, err)
		}
		endsAt, err := time.ParseInLocation(layout, cell("ends_at"), loc)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: ends_at: %v", ErrInvalidRow, line, err)
		}

		rows = append(rows, Row{
			Line:         line,
			StartsAtText: cell("starts_at"),
			Event: event.Event{
				Name:        cell("name"),
				Slug:        cell("slug"),
				StartsAt:    startsAt,
				EndsAt:      endsAt,
				Description: nullable(cell("description")),
				IsFeatured:  cell("is_featured") == "1",
				IsHasEndsAt: cell("is_has_ends_at") == "1",
				IsAllDay:    cell("is_all_day") == "1",
				IsActive:    cell("is_active") == "1",
				HauntedBy:   nullable(cell("haunted_by")),
			},
		})
	}
	return rows, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
