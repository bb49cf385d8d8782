package service

import "github.com/rusa-rba/route-assign/internal/models"

// DiffEdits compares submitted rows with persisted events and returns one
// record per event that actually changes, in submission order. Rows without
// a route selection, rows for unknown events and rows for events that can no
// longer be edited produce nothing.
func DiffEdits(edits []models.EventEdit, persisted map[int]models.Event, routes map[int]models.Route) []models.ChangeRecord {
	records := make([]models.ChangeRecord, 0, len(edits))
	index := make(map[int]int, len(edits))

	for _, edit := range edits {
		if !edit.HasSelection() {
			continue
		}
		event, ok := persisted[edit.EventID]
		if !ok || !event.Editable() {
			continue
		}

		selected := edit.SelectedRoute()
		record := models.ChangeRecord{EventID: event.ID}
		changed := false

		if selected != event.CurrentRouteID() {
			record.RouteChanged = true
			record.RouteID = selected
			changed = true
		}

		if edit.DistanceOption == models.DistanceUseRoute && selected > 0 {
			if route, ok := routes[selected]; ok && route.Distance != event.Distance {
				d := route.Distance
				record.DistanceOverride = &d
				changed = true
			}
		}

		if !changed {
			continue
		}
		if i, seen := index[event.ID]; seen {
			records[i] = mergeRecords(records[i], record)
			continue
		}
		index[event.ID] = len(records)
		records = append(records, record)
	}
	return records
}

func mergeRecords(a, b models.ChangeRecord) models.ChangeRecord {
	if b.RouteChanged {
		a.RouteChanged = true
		a.RouteID = b.RouteID
	}
	if b.DistanceOverride != nil {
		a.DistanceOverride = b.DistanceOverride
	}
	return a
}

// ChangedEventIDs returns the set of events touched by records.
func ChangedEventIDs(records []models.ChangeRecord) map[int]bool {
	out := make(map[int]bool, len(records))
	for _, r := range records {
		out[r.EventID] = true
	}
	return out
}
