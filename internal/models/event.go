package models

import "time"

// EventType is the calendar code of an event.
type EventType string

const (
	EventTypeACPBrevet     EventType = "ACPB"
	EventTypeACPFleche     EventType = "ACPF"
	EventTypeRM            EventType = "RM"
	EventTypeRUSABrevet    EventType = "RUSAB"
	EventTypeRUSADart      EventType = "RUSAF"
	EventTypeRUSAPopulaire EventType = "RUSAP"
)

// IsTeam reports team events, which are never listed or edited here.
func (t EventType) IsTeam() bool {
	return t == EventTypeACPFleche || t == EventTypeRUSADart
}

// AllowsRouteDistance reports whether the calendared distance may be replaced
// by the assigned route's distance. Only RUSA-sanctioned types allow it.
func (t EventType) AllowsRouteDistance() bool {
	switch t {
	case EventTypeRUSABrevet, EventTypeRUSAPopulaire, EventTypeRM:
		return true
	}
	return false
}

// Event is a calendared ride. RouteID nil means no route is assigned (TBD).
type Event struct {
	ID               int       `db:"id" json:"id"`
	RegionID         int       `db:"region_id" json:"regionId"`
	Type             EventType `db:"type" json:"type"`
	Distance         float64   `db:"distance" json:"distance"`
	Date             time.Time `db:"event_date" json:"date"`
	ResultsSubmitted bool      `db:"results_submitted" json:"resultsSubmitted"`
	RouteID          *int      `db:"route_id" json:"routeId,omitempty"`
}

// CurrentRouteID returns the assigned route, with TBD reported as 0.
func (e Event) CurrentRouteID() int {
	if e.RouteID == nil {
		return 0
	}
	return *e.RouteID
}

// Editable reports whether the event may still receive a change.
func (e Event) Editable() bool {
	return !e.ResultsSubmitted && !e.Type.IsTeam()
}
