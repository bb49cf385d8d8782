package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/rusa-rba/route-assign/internal/dto"
	"github.com/rusa-rba/route-assign/internal/models"
	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
	"github.com/rusa-rba/route-assign/pkg/response"
)

type workflowService interface {
	Start(ctx context.Context) (*dto.TransitionResult, error)
	Transition(ctx context.Context, state models.WorkflowState, in dto.TransitionInput) (*dto.TransitionResult, error)
}

type stateCodec interface {
	Encode(state models.WorkflowState) (string, error)
	Decode(token string) (models.WorkflowState, error)
}

type routeService interface {
	EligibleForDistance(ctx context.Context, regionID int, distance float64) (*dto.EligibleRoutesResponse, error)
}

// WorkflowHandler exposes the RBA route assignment workflow.
type WorkflowHandler struct {
	workflow  workflowService
	routes    routeService
	codec     stateCodec
	validator *validator.Validate
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(workflow workflowService, routes routeService, codec stateCodec, validate *validator.Validate) *WorkflowHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &WorkflowHandler{workflow: workflow, routes: routes, codec: codec, validator: validate}
}

// Start godoc
// @Summary Start an RBA route assignment workflow
// @Tags Workflow
// @Produce json
// @Success 201 {object} response.Envelope{data=dto.WorkflowResponse}
// @Router /rba/workflow [post]
func (h *WorkflowHandler) Start(c *gin.Context) {
	result, err := h.workflow.Start(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, http.StatusCreated, result)
}

// Transition godoc
// @Summary Advance the workflow by one step
// @Description Submit, go back, or cancel. Rejected steps return 422 (or 502 when the calendar refused the commit) with the re-rendered view and a new state token.
// @Tags Workflow
// @Accept json
// @Produce json
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope{data=dto.WorkflowResponse}
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope{data=dto.WorkflowResponse}
// @Router /rba/workflow/transition [post]
func (h *WorkflowHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "state and a valid action are required"))
		return
	}
	state, err := h.codec.Decode(req.State)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.workflow.Transition(c.Request.Context(), state, dto.TransitionInput{
		Action:          req.Action,
		CancelConfirmed: req.CancelConfirmed,
		Region:          req.Region,
		Rows:            req.Rows,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, result)
}

// EligibleRoutes godoc
// @Summary List routes eligible for an event distance
// @Tags Routes
// @Produce json
// @Param regionId path int true "Region ID"
// @Param distance query number true "Calendared event distance in km"
// @Success 200 {object} response.Envelope{data=dto.EligibleRoutesResponse}
// @Failure 404 {object} response.Envelope
// @Router /rba/regions/{regionId}/routes/eligible [get]
func (h *WorkflowHandler) EligibleRoutes(c *gin.Context) {
	regionID, err := strconv.Atoi(c.Param("regionId"))
	if err != nil || regionID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid region id"))
		return
	}
	distance, err := strconv.ParseFloat(c.Query("distance"), 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "distance must be a number"))
		return
	}
	resp, err := h.routes.EligibleForDistance(c.Request.Context(), regionID, distance)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

func (h *WorkflowHandler) respond(c *gin.Context, status int, result *dto.TransitionResult) {
	token, err := h.codec.Encode(result.State)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode workflow state"))
		return
	}
	payload := dto.WorkflowResponse{
		State:  token,
		Stage:  result.State.Stage,
		View:   result.View,
		Commit: result.Commit,
	}
	if result.Rejection != nil {
		response.Rejected(c, payload, result.Rejection)
		return
	}
	response.JSON(c, status, payload)
}
