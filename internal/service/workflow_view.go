package service

import (
	"fmt"
	"sort"

	"github.com/rusa-rba/route-assign/internal/dto"
	"github.com/rusa-rba/route-assign/internal/models"
)

// Selector and read-only labels.
const (
	LabelUnassignRoute     = "-- Unassign Route --"
	LabelSelectRoute       = "-- Select Route --"
	LabelNoRoutesAvailable = "-- No Routes Available --"
	LabelTBD               = "-- TBD --"
)

const (
	instructionsSelectRegion = "Select your region and enter your RUSA number and your club's ACP code. " +
		"Only the RBA of a region may assign routes to its events."
	instructionsEditRoutes = "Choose a route for each event. Only routes at least as long as the event's minimum distance are listed. " +
		"For RUSA events you may replace the calendared distance with the route's distance. " +
		"Events with results already submitted cannot be changed."
	instructionsConfirm = "Review your changes below. Changed events are marked. " +
		"Submit to save them, go back to make corrections, or cancel to discard them."
	instructionsFinished = "Your changes have been saved. You can return here at any time to make further changes."
	instructionsAborted  = "No changes were saved."
)

// Result messages.
const (
	MessageSaved            = "Your updates have been saved."
	MessageNotificationSent = "Notification e-mail has been sent."
	MessageDiscarded        = "Your changes have been discarded."
	MessageCancelUnconfirm  = "Please confirm that you want to cancel."
)

func sortEventsByDate(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
}

func regionOptions(regions []models.Region) []dto.RegionOption {
	options := make([]dto.RegionOption, 0, len(regions))
	for _, r := range regions {
		if !r.Active {
			continue
		}
		options = append(options, dto.RegionOption{ID: r.ID, Label: r.Name()})
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Label < options[j].Label
	})
	return options
}

func regionSelectionView(regions []models.Region) dto.WorkflowView {
	return dto.WorkflowView{
		Stage:        models.StageAwaitingRegionSelection,
		Instructions: instructionsSelectRegion,
		Regions:      regionOptions(regions),
		Fields:       []string{"regionId", "memberId", "acpCode"},
		Actions:      []models.Action{models.ActionSubmit},
	}
}

func regionSummary(snap *regionSnapshot) *dto.RegionSummary {
	return &dto.RegionSummary{
		RegionName: snap.region.Name(),
		ClubName:   snap.clubName,
		RBAName:    snap.rba.FullName(),
	}
}

// routeLine renders an event's assignment for read-only rows.
func routeLine(routeID *int, routes map[int]models.Route) string {
	if routeID == nil {
		return LabelTBD
	}
	if route, ok := routes[*routeID]; ok {
		return route.Label()
	}
	return fmt.Sprintf("Route %d", *routeID)
}

// editingView renders the event table seeded with edits. Seeded rows take
// precedence over persisted values so corrections are not lost.
func editingView(snap *regionSnapshot, edits []models.EventEdit) dto.WorkflowView {
	seeded := make(map[int]models.EventEdit, len(edits))
	for _, e := range edits {
		seeded[e.EventID] = e
	}

	rows := make([]dto.EventRow, 0, len(snap.events))
	for _, event := range snap.events {
		row := dto.EventRow{
			EventID:  event.ID,
			Type:     event.Type,
			Distance: event.Distance,
			Date:     event.Date,
			Locked:   event.ResultsSubmitted,
		}
		eligible := snap.eligible(event)
		row.NoRoutesAvailable = len(eligible) == 0

		switch {
		case row.Locked:
			row.RouteLine = routeLine(event.RouteID, snap.routesByID)
		case row.NoRoutesAvailable:
			row.RouteLine = LabelNoRoutesAvailable
		default:
			row.Editable = true
			row.RouteOptions = make([]dto.RouteOption, 0, len(eligible))
			for _, r := range eligible {
				row.RouteOptions = append(row.RouteOptions, dto.RouteOption{ID: r.ID, Label: r.Label()})
			}
			row.EmptyOptionLabel = LabelSelectRoute
			if event.RouteID != nil {
				row.EmptyOptionLabel = LabelUnassignRoute
			}
			row.SelectedRouteID = event.CurrentRouteID()
			row.ShowDistanceOption = event.Type.AllowsRouteDistance()
			if edit, ok := seeded[event.ID]; ok {
				if edit.HasSelection() {
					row.SelectedRouteID = edit.SelectedRoute()
				}
				if row.ShowDistanceOption {
					row.DistanceOption = edit.DistanceOption
				}
			}
		}
		rows = append(rows, row)
	}

	return dto.WorkflowView{
		Stage:        models.StageEditingRoutes,
		Instructions: instructionsEditRoutes,
		Region:       regionSummary(snap),
		Events:       rows,
		Actions:      []models.Action{models.ActionCancel, models.ActionSubmit},
	}
}

// recapView renders the pending changes as they would look once committed.
func recapView(snap *regionSnapshot, records []models.ChangeRecord) dto.WorkflowView {
	ledger := NewEventLedger(snap.events)
	_ = ledger.Apply(records)
	changed := ChangedEventIDs(records)

	rows := make([]dto.EventRow, 0, len(snap.events))
	for _, persisted := range snap.events {
		event, _ := ledger.Get(persisted.ID)
		row := dto.EventRow{
			EventID:           event.ID,
			Type:              event.Type,
			Distance:          event.Distance,
			Date:              event.Date,
			Locked:            event.ResultsSubmitted,
			Changed:           changed[event.ID],
			SelectedRouteID:   event.CurrentRouteID(),
			NoRoutesAvailable: len(snap.eligible(persisted)) == 0,
		}
		if row.NoRoutesAvailable && !row.Locked {
			row.RouteLine = LabelNoRoutesAvailable
		} else {
			row.RouteLine = routeLine(event.RouteID, snap.routesByID)
		}
		rows = append(rows, row)
	}

	return dto.WorkflowView{
		Stage:        models.StageConfirmingChanges,
		Instructions: instructionsConfirm,
		Region:       regionSummary(snap),
		Events:       rows,
		Actions:      []models.Action{models.ActionCancel, models.ActionBack, models.ActionSubmit},
	}
}

func finishedView(commit *models.CommitResult) dto.WorkflowView {
	view := dto.WorkflowView{
		Stage:        models.StageFinished,
		Instructions: instructionsFinished,
		Messages:     []string{MessageSaved},
	}
	if commit != nil && commit.NotificationSent {
		view.Messages = append(view.Messages, MessageNotificationSent)
	}
	return view
}

func abortedView() dto.WorkflowView {
	return dto.WorkflowView{
		Stage:        models.StageAborted,
		Instructions: instructionsAborted,
		Messages:     []string{MessageDiscarded},
	}
}
