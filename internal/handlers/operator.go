package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/requestdata"
	"github.com/yungbote/shopfloor-backend/internal/services"
)

// OperatorHandler serves the station UI: the job queue, operation
// start/stop/complete, and the operator's own session state.
type OperatorHandler struct {
	jobService     services.JobService
	sessionService services.SessionService
}

func NewOperatorHandler(jobService services.JobService, sessionService services.SessionService) *OperatorHandler {
	return &OperatorHandler{jobService: jobService, sessionService: sessionService}
}

func (oh *OperatorHandler) ListJobs(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "", fmt.Errorf("not authenticated"))
		return
	}
	views, err := oh.jobService.ListWorkable(c.Request.Context(), rd.CompanyID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"jobs": views})
}

func (oh *OperatorHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid job id"))
		return
	}
	detail, err := oh.jobService.GetWithOperations(c.Request.Context(), nil, jobID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (oh *OperatorHandler) StartOperation(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "", fmt.Errorf("not authenticated"))
		return
	}
	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid operation id"))
		return
	}
	result, err := oh.sessionService.StartOperation(c.Request.Context(), operationID, rd.OperatorID, rd.CompanyID, rd.OperationTypeID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

type stopRequest struct {
	Notes string `json:"notes"`
}

func (oh *OperatorHandler) StopOperation(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "", fmt.Errorf("not authenticated"))
		return
	}
	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid operation id"))
		return
	}
	var req stopRequest
	_ = c.ShouldBindJSON(&req)
	result, err := oh.sessionService.StopOperation(c.Request.Context(), operationID, rd.OperatorID, req.Notes)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

func (oh *OperatorHandler) CompleteOperation(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "", fmt.Errorf("not authenticated"))
		return
	}
	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid operation id"))
		return
	}
	var input services.CompleteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid completion payload: %w", err))
		return
	}
	result, err := oh.sessionService.CompleteOperation(c.Request.Context(), operationID, rd.OperatorID, input)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

func (oh *OperatorHandler) ActiveSession(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "", fmt.Errorf("not authenticated"))
		return
	}
	session, err := oh.sessionService.ActiveSession(c.Request.Context(), rd.OperatorID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	if session == nil {
		RespondOK(c, gin.H{"session": nil})
		return
	}
	RespondOK(c, gin.H{
		"session":         session,
		"elapsed_seconds": int64(session.Elapsed(time.Now().UTC()).Seconds()),
	})
}

func (oh *OperatorHandler) SessionHistory(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "", fmt.Errorf("not authenticated"))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, pErr := strconv.Atoi(raw); pErr == nil {
			limit = parsed
		}
	}
	sessions, err := oh.sessionService.SessionHistory(c.Request.Context(), rd.OperatorID, limit)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}
