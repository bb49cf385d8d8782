package dto

import (
	"time"

	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

// RegionSelection is the identity claim submitted in the first stage.
type RegionSelection struct {
	RegionID int    `json:"regionId" validate:"required,gt=0"`
	MemberID int    `json:"memberId" validate:"required,gt=0"`
	ACPCode  string `json:"acpCode" validate:"required,max=16"`
}

// TransitionRequest is the body of every workflow step after start. Region
// and rows are validated by the stage that consumes them.
type TransitionRequest struct {
	State           string             `json:"state" validate:"required"`
	Action          models.Action      `json:"action" validate:"required,oneof=submit back cancel"`
	CancelConfirmed bool               `json:"cancelConfirmed"`
	Region          RegionSelection    `json:"region" validate:"-"`
	Rows            []models.EventEdit `json:"rows" validate:"-"`
}

// TransitionInput is what the state machine consumes alongside the prior state.
type TransitionInput struct {
	Action          models.Action
	CancelConfirmed bool
	Region          RegionSelection
	Rows            []models.EventEdit
}

// RegionOption is one entry of the region picker.
type RegionOption struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// RegionSummary heads the event table.
type RegionSummary struct {
	RegionName string `json:"regionName"`
	ClubName   string `json:"clubName"`
	RBAName    string `json:"rbaName"`
}

// RouteOption is one selectable route.
type RouteOption struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// EventRow is one line of the event table, editable or read-only.
type EventRow struct {
	EventID            int                   `json:"eventId"`
	Type               models.EventType      `json:"type"`
	Distance           float64               `json:"distance"`
	Date               time.Time             `json:"date"`
	Editable           bool                  `json:"editable"`
	Locked             bool                  `json:"locked"`
	NoRoutesAvailable  bool                  `json:"noRoutesAvailable"`
	Changed            bool                  `json:"changed"`
	RouteOptions       []RouteOption         `json:"routeOptions,omitempty"`
	EmptyOptionLabel   string                `json:"emptyOptionLabel,omitempty"`
	SelectedRouteID    int                   `json:"selectedRouteId"`
	ShowDistanceOption bool                  `json:"showDistanceOption"`
	DistanceOption     models.DistanceOption `json:"distanceOption"`
	RouteLine          string                `json:"routeLine,omitempty"`
}

// WorkflowView is the view-model of the current stage.
type WorkflowView struct {
	Stage        models.Stage    `json:"stage"`
	Instructions string          `json:"instructions,omitempty"`
	Regions      []RegionOption  `json:"regions,omitempty"`
	Fields       []string        `json:"fields,omitempty"`
	Region       *RegionSummary  `json:"region,omitempty"`
	Events       []EventRow      `json:"events,omitempty"`
	Actions      []models.Action `json:"actions,omitempty"`
	Messages     []string        `json:"messages,omitempty"`
}

// TransitionResult is returned by every transition. Rejection is set when
// validation kept (or reset) the workflow on an input stage.
type TransitionResult struct {
	State     models.WorkflowState
	View      WorkflowView
	Rejection *appErrors.Error
	Commit    *models.CommitResult
}

// WorkflowResponse is the transport shape of a TransitionResult.
type WorkflowResponse struct {
	State  string               `json:"state"`
	Stage  models.Stage         `json:"stage"`
	View   WorkflowView         `json:"view"`
	Commit *models.CommitResult `json:"commit,omitempty"`
}

// EligibleRoutesResponse lists the routes a given event distance may use.
type EligibleRoutesResponse struct {
	RegionID        int           `json:"regionId"`
	EventDistance   float64       `json:"eventDistance"`
	MinimumDistance float64       `json:"minimumDistance"`
	Routes          []RouteOption `json:"routes"`
}
