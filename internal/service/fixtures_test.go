package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/rusa-rba/route-assign/internal/models"
)

const (
	testRegionID = 7
	testRBAID    = 1234
	testACPCode  = "905014"
)

func intPtr(v int) *int { return &v }

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 7, 0, 0, 0, time.UTC)
}

func testRegion() models.Region {
	return models.Region{ID: testRegionID, State: "CA", City: "San Francisco", OrgClub: testACPCode, RBAID: testRBAID, Active: true}
}

func testRoutes() []models.Route {
	return []models.Route{
		{ID: 15, RegionID: testRegionID, Active: true, Distance: 410, Name: "Valley Ford"},
		{ID: 11, RegionID: testRegionID, Active: true, Distance: 205, Name: "Point Reyes"},
		{ID: 13, RegionID: testRegionID, Active: true, Distance: 320, Name: "Healdsburg"},
		{ID: 14, RegionID: testRegionID, Active: true, Distance: 390, Name: "Sonoma Loop"},
		{ID: 16, RegionID: testRegionID, Active: false, Distance: 600, Name: "Retired"},
		{ID: 17, RegionID: 8, Active: true, Distance: 320, Name: "Elsewhere"},
	}
}

// testEvents covers every row shape of the editing table:
// 101 unassigned RUSA 300, 102 RUSA 400 carrying the 390km route,
// 103 locked, 104 team, 105 without eligible routes, 106 ACP with a route.
func testEvents() []models.Event {
	return []models.Event{
		{ID: 102, RegionID: testRegionID, Type: models.EventTypeRUSABrevet, Distance: 400, Date: day(time.April, 5), RouteID: intPtr(14)},
		{ID: 101, RegionID: testRegionID, Type: models.EventTypeRUSABrevet, Distance: 300, Date: day(time.March, 1)},
		{ID: 103, RegionID: testRegionID, Type: models.EventTypeACPBrevet, Distance: 200, Date: day(time.February, 1), ResultsSubmitted: true, RouteID: intPtr(11)},
		{ID: 104, RegionID: testRegionID, Type: models.EventTypeACPFleche, Distance: 360, Date: day(time.April, 20)},
		{ID: 105, RegionID: testRegionID, Type: models.EventTypeRM, Distance: 1200, Date: day(time.June, 1)},
		{ID: 106, RegionID: testRegionID, Type: models.EventTypeACPBrevet, Distance: 200, Date: day(time.January, 15), RouteID: intPtr(11)},
	}
}

func testSnapshot() *regionSnapshot {
	snap := newRegionSnapshot(testRegion(), testEvents(), testRoutes())
	snap.clubName = "San Francisco Randonneurs"
	snap.rba = models.Official{MemberID: testRBAID, FirstName: "Rob", LastName: "Hawks", Email: "rba@sfrandonneurs.org"}
	return snap
}

type regionStub struct {
	regions []models.Region
	err     error
}

func (s *regionStub) ListActive(ctx context.Context) ([]models.Region, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Region, 0, len(s.regions))
	for _, r := range s.regions {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *regionStub) GetByID(ctx context.Context, id int) (*models.Region, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.regions {
		if r.ID == id {
			copy := r
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

type eventStub struct {
	events []models.Event
}

func (s *eventStub) ListByRegion(ctx context.Context, regionID int) ([]models.Event, error) {
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		if e.RegionID == regionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type routeStub struct {
	routes  []models.Route
	minSeen float64
}

func (s *routeStub) ListByRegion(ctx context.Context, regionID int) ([]models.Route, error) {
	out := make([]models.Route, 0, len(s.routes))
	for _, r := range s.routes {
		if r.RegionID == regionID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *routeStub) ListByMinDistance(ctx context.Context, regionID int, minDistance float64) ([]models.Route, error) {
	s.minSeen = minDistance
	all, _ := s.ListByRegion(ctx, regionID)
	out := make([]models.Route, 0, len(all))
	for _, r := range all {
		if r.Distance >= minDistance {
			out = append(out, r)
		}
	}
	return out, nil
}

type directoryStub struct {
	clubs     map[string]string
	officials map[int]models.Official
}

func newDirectoryStub() *directoryStub {
	return &directoryStub{
		clubs: map[string]string{testACPCode: "San Francisco Randonneurs"},
		officials: map[int]models.Official{
			testRBAID: {MemberID: testRBAID, FirstName: "Rob", LastName: "Hawks", Email: "rba@sfrandonneurs.org"},
		},
	}
}

func (s *directoryStub) GetClubName(ctx context.Context, acpCode string) (string, error) {
	name, ok := s.clubs[acpCode]
	if !ok {
		return "", sql.ErrNoRows
	}
	return name, nil
}

func (s *directoryStub) GetOfficial(ctx context.Context, memberID int) (*models.Official, error) {
	o, ok := s.officials[memberID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &o, nil
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

// backendRecorder captures committed batches and answers with result/err.
type backendRecorder struct {
	batches [][]models.Event
	result  *models.BackendResult
	err     error
}

func (b *backendRecorder) CommitChanges(ctx context.Context, events []models.Event) (*models.BackendResult, error) {
	b.batches = append(b.batches, events)
	if b.err != nil {
		return nil, b.err
	}
	if b.result != nil {
		return b.result, nil
	}
	return &models.BackendResult{Success: true}, nil
}

type notifierRecorder struct {
	sent []models.Notification
	err  error
}

func (n *notifierRecorder) Notify(ctx context.Context, note models.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, note)
	return nil
}
