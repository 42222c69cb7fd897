package event_import

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/event"
	log "github.com/sirupsen/logrus"
)

type Importer struct {
	events   event.Service
	layout   string
	location *time.Location
}

func NewImporter(events event.Service, cfg config.Events) *Importer {
	return &Importer{events: events, layout: cfg.ImportLayout, location: cfg.Location()}
}

// Import upserts every row keyed by slug and start time and describes what happened to each.
// Rows before a failing one stay imported.
func (i *Importer) Import(ctx context.Context, r io.Reader) ([]string, error) {
	rows, err := ParseCSV(r, i.layout, i.location)
	if err != nil {
		return nil, err
	}

	results := make([]string, 0, len(rows))
	for _, row := range rows {
		_, created, err := i.events.Upsert(ctx, row.Event)
		if err != nil {
			return results, fmt.Errorf("line %d: %w", row.Line, err)
		}
		verb := "Updated"
		if created {
			verb = "Created"
		}
		results = append(results, fmt.Sprintf("%s %s @ %s", verb, row.Event.Name, row.StartsAtText))
	}
	log.Infof("Imported %d events", len(results))
	return results, nil
}
