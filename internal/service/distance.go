package service

import (
	"math"
	"sort"

	"github.com/rusa-rba/route-assign/internal/models"
)

// EligibleMinimum is the shortest route an event of the given calendared
// distance may use: the distance rounded down to the nearest 100km, but never
// below 95% of the calendared distance.
func EligibleMinimum(eventDistance float64) float64 {
	standard := math.Floor(eventDistance/100) * 100
	return math.Max(eventDistance*0.95, standard)
}

// RouteEligible reports whether route may be assigned to an event of the
// given region and distance.
func RouteEligible(route models.Route, regionID int, eventDistance float64) bool {
	return route.Active && route.RegionID == regionID && route.Distance >= EligibleMinimum(eventDistance)
}

// EligibleRoutes filters routes for one event. The result is ordered by
// distance then id and is never shared between events.
func EligibleRoutes(routes []models.Route, regionID int, eventDistance float64) []models.Route {
	out := make([]models.Route, 0, len(routes))
	for _, route := range routes {
		if RouteEligible(route, regionID, eventDistance) {
			out = append(out, route)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}
