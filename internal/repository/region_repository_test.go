package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "state", "city", "org_club", "rba_id", "active"}).
		AddRow(3, "AZ", "Phoenix", "903001", 55, true).
		AddRow(7, "CA", "San Francisco", "905014", 1234, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM regions WHERE active = TRUE")).WillReturnRows(rows)

	regions, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "CA San Francisco", regions[1].Name())
	assert.Equal(t, "905014", regions[1].OrgClub)
}

func TestRegionRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM regions WHERE id = $1")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEventRepositoryListByRegion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	date := time.Date(2026, time.March, 1, 7, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "region_id", "type", "distance", "event_date", "results_submitted", "route_id"}).
		AddRow(101, 7, "RUSAB", 300.0, date, false, nil).
		AddRow(106, 7, "ACPB", 200.0, date.AddDate(0, 1, 0), false, 11)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE region_id = $1 ORDER BY event_date, id")).
		WithArgs(7).
		WillReturnRows(rows)

	events, err := repo.ListByRegion(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Nil(t, events[0].RouteID)
	assert.Equal(t, 11, events[1].CurrentRouteID())
	assert.True(t, events[0].Date.Equal(date))
}

func TestEventRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	rows := sqlmock.NewRows([]string{"id", "region_id", "type", "distance", "event_date", "results_submitted", "route_id"}).
		AddRow(103, 7, "ACPB", 200.0, time.Now(), true, 11)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).WithArgs(103).WillReturnRows(rows)

	event, err := repo.GetByID(context.Background(), 103)
	require.NoError(t, err)
	assert.True(t, event.ResultsSubmitted)
	assert.False(t, event.Editable())
}

func TestRouteRepositoryListByMinDistance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRouteRepository(db)

	rows := sqlmock.NewRows([]string{"id", "region_id", "active", "distance", "name"}).
		AddRow(13, 7, true, 320.0, "Healdsburg")
	mock.ExpectQuery(regexp.QuoteMeta("AND active = TRUE AND distance >= $2")).
		WithArgs(7, 300.0).
		WillReturnRows(rows)

	routes, err := repo.ListByMinDistance(context.Background(), 7, 300)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "13: Healdsburg (320km)", routes[0].Label())
}

func TestRouteRepositoryListByRegion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRouteRepository(db)

	rows := sqlmock.NewRows([]string{"id", "region_id", "active", "distance", "name"}).
		AddRow(11, 7, true, 205.0, "Point Reyes").
		AddRow(13, 7, true, 320.0, "Healdsburg")
	mock.ExpectQuery(regexp.QuoteMeta("FROM routes WHERE region_id = $1 AND active = TRUE ORDER BY distance, id")).
		WithArgs(7).
		WillReturnRows(rows)

	routes, err := repo.ListByRegion(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func TestDirectoryRepository(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clubs WHERE acp_code = $1")).
		WithArgs("905014").
		WillReturnRows(sqlmock.NewRows([]string{"acp_code", "name"}).AddRow("905014", "San Francisco Randonneurs"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM officials WHERE member_id = $1")).
		WithArgs(1234).
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "first_name", "last_name", "email"}).
			AddRow(1234, "Rob", "Hawks", "rba@sfrandonneurs.org"))

	name, err := repo.GetClubName(context.Background(), "905014")
	require.NoError(t, err)
	assert.Equal(t, "San Francisco Randonneurs", name)

	official, err := repo.GetOfficial(context.Background(), 1234)
	require.NoError(t, err)
	assert.Equal(t, "Rob Hawks", official.FullName())
	require.NoError(t, mock.ExpectationsWereMet())
}
