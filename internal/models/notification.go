package models

import "time"

// NotificationEvent describes one committed event.
type NotificationEvent struct {
	EventID  int       `json:"eventId"`
	Date     time.Time `json:"date"`
	Route    string    `json:"route"`
	Distance float64   `json:"distance"`
}

// Notification is raised after route changes are committed.
type Notification struct {
	RegionName string              `json:"regionName"`
	RBAID      int                 `json:"rbaId"`
	RBAName    string              `json:"rbaName"`
	Recipients []string            `json:"recipients"`
	Events     []NotificationEvent `json:"events"`
}
