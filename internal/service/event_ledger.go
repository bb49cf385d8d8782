package service

import (
	"fmt"

	"github.com/rusa-rba/route-assign/internal/models"
)

// EventLedger is a per-request working copy of a region's events. Change
// records are staged on it before the batch is sent to the calendar backend,
// so nothing is persisted until the backend accepts the whole batch.
type EventLedger struct {
	events map[int]models.Event
}

// NewEventLedger copies events into a fresh ledger.
func NewEventLedger(events []models.Event) *EventLedger {
	l := &EventLedger{events: make(map[int]models.Event, len(events))}
	for _, e := range events {
		if e.RouteID != nil {
			id := *e.RouteID
			e.RouteID = &id
		}
		l.events[e.ID] = e
	}
	return l
}

// Get returns the staged state of an event.
func (l *EventLedger) Get(id int) (models.Event, bool) {
	e, ok := l.events[id]
	return e, ok
}

// SetRoute assigns a route; 0 stages TBD.
func (l *EventLedger) SetRoute(id int, routeID int) error {
	e, ok := l.events[id]
	if !ok {
		return fmt.Errorf("event %d not in ledger", id)
	}
	if routeID == 0 {
		e.RouteID = nil
	} else {
		r := routeID
		e.RouteID = &r
	}
	l.events[id] = e
	return nil
}

// SetDistance overrides the calendared distance.
func (l *EventLedger) SetDistance(id int, distance float64) error {
	e, ok := l.events[id]
	if !ok {
		return fmt.Errorf("event %d not in ledger", id)
	}
	e.Distance = distance
	l.events[id] = e
	return nil
}

// Apply stages every record.
func (l *EventLedger) Apply(records []models.ChangeRecord) error {
	for _, r := range records {
		if r.RouteChanged {
			if err := l.SetRoute(r.EventID, r.RouteID); err != nil {
				return err
			}
		}
		if r.DistanceOverride != nil {
			if err := l.SetDistance(r.EventID, *r.DistanceOverride); err != nil {
				return err
			}
		}
	}
	return nil
}
