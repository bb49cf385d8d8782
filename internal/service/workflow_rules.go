package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/rusa-rba/route-assign/internal/dto"
	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

// regionSnapshot is everything a transition derives from repository reads for
// one region. It is rebuilt on every request.
type regionSnapshot struct {
	region     models.Region
	clubName   string
	rba        models.Official
	events     []models.Event
	eventsByID map[int]models.Event
	routes     []models.Route
	routesByID map[int]models.Route
}

func newRegionSnapshot(region models.Region, events []models.Event, routes []models.Route) *regionSnapshot {
	snap := &regionSnapshot{
		region:     region,
		eventsByID: make(map[int]models.Event, len(events)),
		routesByID: make(map[int]models.Route, len(routes)),
	}
	for _, e := range events {
		if e.Type.IsTeam() || e.RegionID != region.ID {
			continue
		}
		snap.events = append(snap.events, e)
		snap.eventsByID[e.ID] = e
	}
	sortEventsByDate(snap.events)
	for _, r := range routes {
		if !r.Active || r.RegionID != region.ID {
			continue
		}
		snap.routes = append(snap.routes, r)
		snap.routesByID[r.ID] = r
	}
	return snap
}

// eligible recomputes the eligible set for a single event.
func (s *regionSnapshot) eligible(e models.Event) []models.Route {
	return EligibleRoutes(s.routes, s.region.ID, e.Distance)
}

// CheckIdentity verifies the claimed RBA and club against the region. Both
// checks always run.
func CheckIdentity(region models.Region, sel dto.RegionSelection) []appErrors.Detail {
	var details []appErrors.Detail
	if sel.MemberID != region.RBAID {
		details = append(details, appErrors.NewDetail(appErrors.ErrIdentityMismatch, "memberId",
			fmt.Sprintf("Member with id %d is not the RBA for the selected region. Please try again.", sel.MemberID)))
	}
	if sel.ACPCode != region.OrgClub {
		details = append(details, appErrors.NewDetail(appErrors.ErrIdentityMismatch, "acpCode",
			fmt.Sprintf("Club with acpcode %s is not the organizing club for the selected region. Please try again.", sel.ACPCode)))
	}
	return details
}

// CheckEdits runs the per-row rules of the editing stage and then the change
// tracker. Records are rebuilt from scratch on every call.
func CheckEdits(snap *regionSnapshot, rows []models.EventEdit) ([]appErrors.Detail, []models.ChangeRecord) {
	var details []appErrors.Detail
	for i, row := range rows {
		if d, ok := checkRow(snap, i, row); !ok {
			details = append(details, d)
		}
	}

	records := DiffEdits(rows, snap.eventsByID, snap.routesByID)
	if len(records) == 0 {
		details = append(details, appErrors.NewDetail(appErrors.ErrNoChangesSubmitted, "", ""))
	}
	return details, records
}

func checkRow(snap *regionSnapshot, i int, row models.EventEdit) (appErrors.Detail, bool) {
	event, ok := snap.eventsByID[row.EventID]
	if !ok {
		return appErrors.RowDetail(appErrors.ErrEventNotEditable, i,
			fmt.Sprintf("event %d is not on this region's calendar", row.EventID)), false
	}
	if !row.HasSelection() {
		return appErrors.Detail{}, true
	}

	selected := row.SelectedRoute()
	current := event.CurrentRouteID()
	if !event.Editable() || len(snap.eligible(event)) == 0 {
		if selected != current || row.DistanceOption == models.DistanceUseRoute {
			return appErrors.RowDetail(appErrors.ErrEventNotEditable, i,
				fmt.Sprintf("event %d cannot be changed", event.ID)), false
		}
		return appErrors.Detail{}, true
	}

	if row.DistanceOption == models.DistanceUseRoute && !event.Type.AllowsRouteDistance() {
		return appErrors.RowDetail(appErrors.ErrValidation, i,
			fmt.Sprintf("%s events must keep their calendared distance", event.Type)), false
	}
	if selected == 0 {
		return appErrors.Detail{}, true
	}

	route, known := snap.routesByID[selected]
	if selected != current && (!known || !RouteEligible(route, snap.region.ID, event.Distance)) {
		return appErrors.RowDetail(appErrors.ErrRouteNotEligible, i,
			fmt.Sprintf("route %d is not available for a %skm event", selected, models.FormatKm(event.Distance))), false
	}
	if known && row.DistanceOption == models.DistanceKeepCalendared && event.Distance > route.Distance {
		return appErrors.RowDetail(appErrors.ErrDistanceIncompatible, i, ""), false
	}
	return appErrors.Detail{}, true
}

// editBatch wraps rows so uniqueness can be expressed as a struct tag.
type editBatch struct {
	Rows []models.EventEdit `validate:"unique=EventID,dive"`
}

var rowIndexPattern = regexp.MustCompile(`Rows\[(\d+)\]`)

// validateRows rejects malformed rows before any rule runs.
func validateRows(v *validator.Validate, rows []models.EventEdit) []appErrors.Detail {
	err := v.Struct(editBatch{Rows: rows})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []appErrors.Detail{appErrors.NewDetail(appErrors.ErrValidation, "rows", err.Error())}
	}
	details := make([]appErrors.Detail, 0, len(verrs))
	for _, fe := range verrs {
		if m := rowIndexPattern.FindStringSubmatch(fe.Namespace()); m != nil {
			row, _ := strconv.Atoi(m[1])
			details = append(details, appErrors.RowDetail(appErrors.ErrValidation, row,
				fmt.Sprintf("%s failed %s", lowerFirst(fe.Field()), fe.Tag())))
			continue
		}
		details = append(details, appErrors.NewDetail(appErrors.ErrValidation, "rows", "each event may be submitted only once"))
	}
	return details
}

// validateSelection checks the identity form fields.
func validateSelection(v *validator.Validate, sel dto.RegionSelection) []appErrors.Detail {
	err := v.Struct(sel)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []appErrors.Detail{appErrors.NewDetail(appErrors.ErrValidation, "", err.Error())}
	}
	details := make([]appErrors.Detail, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		details = append(details, appErrors.NewDetail(appErrors.ErrValidation, field, selectionMessages[field]))
	}
	return details
}

var selectionMessages = map[string]string{
	"regionId": "Please select a region.",
	"memberId": "Please enter the RBA's RUSA number.",
	"acpCode":  "Please enter the organizing club's ACP number.",
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	// ID and ACP are initialisms; keep the json spelling.
	switch string(b) {
	case "regionID":
		return "regionId"
	case "memberID":
		return "memberId"
	case "aCPCode":
		return "acpCode"
	case "eventID":
		return "eventId"
	case "routeID":
		return "routeId"
	}
	return string(b)
}

// rejection folds collected details into one error. A single distinct code
// keeps its own template; mixed failures are reported as a validation error.
func rejection(details []appErrors.Detail) *appErrors.Error {
	if len(details) == 0 {
		return nil
	}
	code := details[0].Code
	for _, d := range details[1:] {
		if d.Code != code {
			return appErrors.WithDetails(appErrors.ErrValidation, details...)
		}
	}
	for _, tmpl := range []*appErrors.Error{
		appErrors.ErrIdentityMismatch,
		appErrors.ErrDistanceIncompatible,
		appErrors.ErrNoChangesSubmitted,
		appErrors.ErrBackendCommitFailed,
		appErrors.ErrRouteNotEligible,
		appErrors.ErrEventNotEditable,
	} {
		if tmpl.Code == code {
			return appErrors.WithDetails(tmpl, details...)
		}
	}
	return appErrors.WithDetails(appErrors.ErrValidation, details...)
}
