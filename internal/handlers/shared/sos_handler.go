package handlers

import (
	"errors"
	"io"
	"net/http"

	"lifeline/internal/models"
	"lifeline/internal/services"
	"lifeline/internal/utils"
	"lifeline/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SOSHandler struct {
	sosService services.SOSService
}

func NewSOSHandler(sosService services.SOSService) *SOSHandler {
	return &SOSHandler{
		sosService: sosService,
	}
}

type triggerSOSRequest struct {
	TriggerMethod models.TriggerMethod `json:"trigger_method" binding:"required"`
	Location      models.GeoPoint      `json:"location" binding:"required"`
	TripID        *primitive.ObjectID  `json:"trip_id,omitempty"`
	DriverID      *primitive.ObjectID  `json:"driver_id,omitempty"`
	BatteryLevel  *int                 `json:"battery_level,omitempty"`
	NetworkType   string               `json:"network_type,omitempty"`
}

type cancelSOSRequest struct {
	Reason string `json:"reason,omitempty"`
}

type verifyCancellationRequest struct {
	Pin string `json:"pin" binding:"required"`
}

type respondRequest struct {
	Action           models.AgentAction `json:"action" binding:"required"`
	Notes            string             `json:"notes,omitempty"`
	EscalationReason string             `json:"escalation_reason,omitempty"`
}

type falseAlarmRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TriggerSOS opens (or refreshes) the caller's SOS incident.
func (h *SOSHandler) TriggerSOS(c *gin.Context) {
	var request triggerSOSRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := &models.TriggerSOSParams{
		UserID:        userID,
		TripID:        request.TripID,
		DriverID:      request.DriverID,
		TriggerMethod: request.TriggerMethod,
		Location:      request.Location,
		BatteryLevel:  request.BatteryLevel,
		NetworkType:   request.NetworkType,
	}
	if errs := validators.ValidateTriggerSOS(params); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Fields())
		return
	}

	incident, created, err := h.sosService.TriggerSOS(c.Request.Context(), params)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_TRIGGER_FAILED", "Failed to trigger SOS: "+err.Error())
		return
	}

	if created {
		utils.CreatedResponse(c, "SOS triggered", incident)
		return
	}
	utils.SuccessResponse(c, "SOS already active, location updated", incident)
}

// CancelSOS is the user-initiated cancel; above LEVEL_1 it responds with the
// PIN verification requirement instead of cancelling.
func (h *SOSHandler) CancelSOS(c *gin.Context) {
	incidentID, ok := incidentIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request cancelSOSRequest
	if err := c.ShouldBindJSON(&request); err != nil && err != io.EOF {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.sosService.CancelSOS(c.Request.Context(), incidentID, userID, request.Reason)
	if err != nil {
		respondServiceError(c, err, "SOS_CANCEL_FAILED")
		return
	}

	utils.SuccessResponse(c, result.Message, result)
}

// VerifyCancellation completes a PIN-gated cancel.
func (h *SOSHandler) VerifyCancellation(c *gin.Context) {
	incidentID, ok := incidentIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request verifyCancellationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.sosService.VerifyCancellation(c.Request.Context(), incidentID, userID, request.Pin)
	if err != nil {
		respondServiceError(c, err, "SOS_VERIFY_FAILED")
		return
	}

	utils.SuccessResponse(c, result.Message, result)
}

// StreamAudioChunk ingests one raw audio chunk from the client recorder.
func (h *SOSHandler) StreamAudioChunk(c *gin.Context) {
	incidentID, ok := incidentIDParam(c)
	if !ok {
		return
	}

	chunk, err := io.ReadAll(io.LimitReader(c.Request.Body, utils.MaxAudioChunkSize))
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read audio chunk")
		return
	}

	h.sosService.StreamAudioChunk(incidentID, chunk)
	utils.SuccessResponse(c, "Audio chunk received", gin.H{"bytes": len(chunk)})
}

// GetIncident returns one incident by ID.
func (h *SOSHandler) GetIncident(c *gin.Context) {
	incidentID, ok := incidentIDParam(c)
	if !ok {
		return
	}

	incident, err := h.sosService.GetIncident(incidentID)
	if err != nil {
		respondServiceError(c, err, "SOS_FETCH_FAILED")
		return
	}

	utils.SuccessResponse(c, "Incident retrieved", incident)
}

// GetIncidentTimeline returns the incident's full audit timeline.
func (h *SOSHandler) GetIncidentTimeline(c *gin.Context) {
	incidentID, ok := incidentIDParam(c)
	if !ok {
		return
	}

	entries, err := h.sosService.GetIncidentTimeline(incidentID)
	if err != nil {
		respondServiceError(c, err, "SOS_TIMELINE_FAILED")
		return
	}

	utils.SuccessResponseWithMeta(c, "Timeline retrieved", entries, &utils.Meta{Count: len(entries)})
}

// GetActiveIncidents lists every live incident for the ops dashboard.
func (h *SOSHandler) GetActiveIncidents(c *gin.Context) {
	incidents := h.sosService.GetActiveIncidents()
	utils.SuccessResponseWithMeta(c, "Active incidents retrieved", incidents, &utils.Meta{Count: len(incidents)})
}

// GetMyActiveSOS returns the caller's live incident, if any.
func (h *SOSHandler) GetMyActiveSOS(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	incident, found := h.sosService.GetActiveSOSForUser(userID)
	if !found {
		utils.NotFoundResponse(c, "Active SOS")
		return
	}

	utils.SuccessResponse(c, "Active SOS retrieved", incident)
}

// RespondToSOS applies one agent action to the incident.
func (h *SOSHandler) RespondToSOS(c *gin.Context) {
	incidentID, ok := incidentIDParam(c)
	if !ok {
		return
	}
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request respondRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	incident, err := h.sosService.RespondToSOS(c.Request.Context(), &models.SOSResponse{
		IncidentID:       incidentID,
		AgentID:          agentID,
		Action:           request.Action,
		Notes:            request.Notes,
		EscalationReason: request.EscalationReason,
	})
	if err != nil {
		respondServiceError(c, err, "SOS_RESPOND_FAILED")
		return
	}

	utils.SuccessResponse(c, "Response recorded", incident)
}

// MarkAsFalseAlarm closes the incident as a false alarm.
func (h *SOSHandler) MarkAsFalseAlarm(c *gin.Context) {
	incidentID, ok := incidentIDParam(c)
	if !ok {
		return
	}
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request falseAlarmRequest
	if err := c.ShouldBindJSON(&request); err != nil && err != io.EOF {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	incident, err := h.sosService.MarkAsFalseAlarm(c.Request.Context(), incidentID, agentID, request.Reason)
	if err != nil {
		respondServiceError(c, err, "SOS_FALSE_ALARM_FAILED")
		return
	}

	utils.SuccessResponse(c, "Incident marked as false alarm", incident)
}

// GetAgentIncidents lists the incidents currently assigned to the caller.
func (h *SOSHandler) GetAgentIncidents(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}

	incidents := h.sosService.GetAgentIncidents(agentID)
	utils.SuccessResponseWithMeta(c, "Assigned incidents retrieved", incidents, &utils.Meta{Count: len(incidents)})
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get(utils.ContextUserID)
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}

	return userObjectID, true
}

func incidentIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	incidentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid incident ID")
		return primitive.NilObjectID, false
	}
	return incidentID, true
}

func respondServiceError(c *gin.Context, err error, code string) {
	switch {
	case errors.Is(err, services.ErrIncidentNotFound):
		utils.NotFoundResponse(c, "Incident")
	case errors.Is(err, services.ErrAgentNotFound):
		utils.NotFoundResponse(c, "Safety agent")
	case errors.Is(err, services.ErrNotAuthorized):
		utils.ForbiddenResponse(c)
	case errors.Is(err, services.ErrIncidentNotLive):
		utils.ConflictResponse(c, "Incident is already closed")
	case errors.Is(err, services.ErrUnknownAction):
		utils.BadRequestResponse(c, "Unknown agent action")
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, code, err.Error())
	}
}
