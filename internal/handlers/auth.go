package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/services"
	"github.com/yungbote/shopfloor-backend/internal/utils"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	CompanyID       uuid.UUID  `json:"company_id" binding:"required"`
	PIN             string     `json:"pin"`
	QRCodeID        string     `json:"qr_code_id"`
	OperationTypeID *uuid.UUID `json:"operation_type_id"`
}

// Login accepts either a PIN or a badge scan in one endpoint; stations
// do not know which credential the operator will present.
func (ah *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid login payload: %w", err))
		return
	}

	var (
		result *services.LoginResult
		err    error
	)
	switch {
	case req.QRCodeID != "":
		result, err = ah.authService.LoginWithQRCode(c.Request.Context(), req.CompanyID, req.QRCodeID, req.OperationTypeID, c.ClientIP())
	case req.PIN != "":
		result, err = ah.authService.LoginWithPIN(c.Request.Context(), req.CompanyID, req.PIN, req.OperationTypeID, c.ClientIP())
	default:
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("pin or qr_code_id required"))
		return
	}
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

// Logout is client-side token discard; operator tokens are stateless
// and short-lived, so the server only acknowledges.
func (ah *AuthHandler) Logout(c *gin.Context) {
	RespondOK(c, gin.H{"logged_out": true})
}

type hashPINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// HashPIN supports admin tooling that provisions operator badges.
func (ah *AuthHandler) HashPIN(c *gin.Context) {
	var req hashPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid payload: %w", err))
		return
	}
	hash, err := utils.HashPIN(req.PIN)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", err)
		return
	}
	RespondOK(c, gin.H{"pin_hash": hash})
}
