package models

import "time"

// Stage is the position of a workflow instance in the fixed RBA sequence.
type Stage string

const (
	StageStart                   Stage = ""
	StageAwaitingRegionSelection Stage = "AWAITING_REGION_SELECTION"
	StageEditingRoutes           Stage = "EDITING_ROUTES"
	StageConfirmingChanges       Stage = "CONFIRMING_CHANGES"
	StageFinished                Stage = "FINISHED"
	StageAborted                 Stage = "ABORTED"
)

// Terminal reports stages from which no transition is accepted.
func (s Stage) Terminal() bool {
	return s == StageFinished || s == StageAborted
}

// Action is the user trigger accompanying a submission.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionBack   Action = "back"
	ActionCancel Action = "cancel"
)

// DistanceOption selects which distance an event keeps after a route change.
type DistanceOption int

const (
	DistanceKeepCalendared DistanceOption = 0
	DistanceUseRoute       DistanceOption = 1
)

// EventEdit is one submitted row of the route editing stage. RouteID nil
// means the row carried no selection; 0 means "unassign".
type EventEdit struct {
	EventID        int            `json:"eventId" validate:"required,gt=0"`
	RouteID        *int           `json:"routeId" validate:"omitempty,gte=0"`
	DistanceOption DistanceOption `json:"distanceOption" validate:"oneof=0 1"`
}

// HasSelection reports whether the row carries a numeric route selection.
func (e EventEdit) HasSelection() bool {
	return e.RouteID != nil
}

// SelectedRoute returns the selected route id, 0 when unassigning or absent.
func (e EventEdit) SelectedRoute() int {
	if e.RouteID == nil {
		return 0
	}
	return *e.RouteID
}

// ChangeRecord is the computed delta for one event. RouteID is the new
// assignment when RouteChanged is set; 0 unassigns (TBD).
type ChangeRecord struct {
	EventID          int      `json:"eventId"`
	RouteChanged     bool     `json:"routeChanged"`
	RouteID          int      `json:"routeId"`
	DistanceOverride *float64 `json:"distanceOverride,omitempty"`
}

// Unassigns reports a route removal.
func (c ChangeRecord) Unassigns() bool {
	return c.RouteChanged && c.RouteID == 0
}

// WorkflowState is the caller-held state of one workflow instance. It is a
// value: transitions return a new copy and never mutate their input.
type WorkflowState struct {
	ID          string      `json:"id"`
	Stage       Stage       `json:"stage"`
	RegionID    int         `json:"regionId,omitempty"`
	RBAID       int         `json:"rbaId,omitempty"`
	ClubACPCode string      `json:"clubAcpCode,omitempty"`
	Edits       []EventEdit `json:"edits,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// With returns a copy moved to stage with the given edits.
func (s WorkflowState) With(stage Stage, edits []EventEdit, now time.Time) WorkflowState {
	next := s
	next.Stage = stage
	next.Edits = cloneEdits(edits)
	next.UpdatedAt = now
	return next
}

func cloneEdits(edits []EventEdit) []EventEdit {
	if len(edits) == 0 {
		return nil
	}
	out := make([]EventEdit, len(edits))
	for i, e := range edits {
		out[i] = e
		if e.RouteID != nil {
			id := *e.RouteID
			out[i].RouteID = &id
		}
	}
	return out
}

// BackendResult is the calendar backend's verdict on a commit.
type BackendResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// CommitResult reports a commit and, separately, its notification.
type CommitResult struct {
	Committed         bool                `json:"committed"`
	BackendError      string              `json:"backendError,omitempty"`
	Events            []NotificationEvent `json:"events,omitempty"`
	NotificationSent  bool                `json:"notificationSent"`
	NotificationError string              `json:"notificationError,omitempty"`
	Receipt           *Receipt            `json:"receipt,omitempty"`
}

// Receipt is a signed link to the PDF recap of a committed batch.
type Receipt struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
