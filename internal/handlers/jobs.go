package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/services"
)

// JobHandler covers supervisor actions: creating jobs, skipping and
// undoing operations, and pinning administrative statuses.
type JobHandler struct {
	jobService       services.JobService
	operationService services.OperationService
}

func NewJobHandler(jobService services.JobService, operationService services.OperationService) *JobHandler {
	return &JobHandler{jobService: jobService, operationService: operationService}
}

func (jh *JobHandler) Create(c *gin.Context) {
	var input services.CreateJobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid job payload: %w", err))
		return
	}
	detail, err := jh.jobService.Create(c.Request.Context(), nil, input)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, detail)
}

type skipRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (jh *JobHandler) SkipOperation(c *gin.Context) {
	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid operation id"))
		return
	}
	var req skipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("skip reason required"))
		return
	}
	result, err := jh.operationService.Skip(c.Request.Context(), nil, operationID, req.Reason)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

func (jh *JobHandler) UndoOperation(c *gin.Context) {
	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid operation id"))
		return
	}
	result, err := jh.operationService.Undo(c.Request.Context(), nil, operationID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (jh *JobHandler) SetStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid job id"))
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("status required"))
		return
	}
	job, err := jh.jobService.SetAdministrativeStatus(c.Request.Context(), nil, jobID, req.Status)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, job)
}

func (jh *JobHandler) ReleaseStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid job id"))
		return
	}
	job, err := jh.jobService.ReleaseAdministrativeStatus(c.Request.Context(), nil, jobID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, job)
}
