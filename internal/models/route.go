package models

import (
	"fmt"
	"strconv"
)

// Route is an approved course owned by a region.
type Route struct {
	ID       int     `db:"id" json:"id"`
	RegionID int     `db:"region_id" json:"regionId"`
	Active   bool    `db:"active" json:"active"`
	Distance float64 `db:"distance" json:"distance"`
	Name     string  `db:"name" json:"name"`
}

// Label is the display line used in selectors, recaps and notifications.
func (r Route) Label() string {
	return fmt.Sprintf("%d: %s (%skm)", r.ID, r.Name, FormatKm(r.Distance))
}

// FormatKm prints a distance without trailing zeros.
func FormatKm(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
