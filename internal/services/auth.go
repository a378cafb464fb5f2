package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/apierr"
	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/ratelimit"
	"github.com/yungbote/shopfloor-backend/internal/repos"
	"github.com/yungbote/shopfloor-backend/internal/requestdata"
	"github.com/yungbote/shopfloor-backend/internal/types"
	"github.com/yungbote/shopfloor-backend/internal/utils"
)

// JWTClaims is the operator token payload. OperationTypeID carries the
// station context picked at login so the UI can pre-filter work.
type JWTClaims struct {
	jwt.RegisteredClaims
	CompanyID       string  `json:"company_id"`
	OperatorName    string  `json:"operator_name"`
	OperationTypeID *string `json:"operation_type_id,omitempty"`
}

// LoginResult is the token plus the operator it authenticates.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Operator  *types.Operator `json:"operator"`
}

type AuthService interface {
	LoginWithPIN(ctx context.Context, companyID uuid.UUID, pin string, operationTypeID *uuid.UUID, remoteKey string) (*LoginResult, error)
	LoginWithQRCode(ctx context.Context, companyID uuid.UUID, qrCodeID string, operationTypeID *uuid.UUID, remoteKey string) (*LoginResult, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	operatorRepo repos.OperatorRepo
	limiter      ratelimit.Limiter
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	operatorRepo repos.OperatorRepo,
	limiter ratelimit.Limiter,
	jwtSecretKey string,
	accessTTL time.Duration,
) AuthService {
	serviceLog := baseLog.With("service", "AuthService")
	return &authService{
		db:           db,
		log:          serviceLog,
		operatorRepo: operatorRepo,
		limiter:      limiter,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

// LoginWithPIN authenticates an operator by their 4-6 digit PIN. PINs
// are not unique identifiers, so the hash is checked against every
// active operator of the company; bcrypt keeps this tolerable at shop
// headcounts.
func (as *authService) LoginWithPIN(ctx context.Context, companyID uuid.UUID, pin string, operationTypeID *uuid.UUID, remoteKey string) (*LoginResult, error) {
	if err := as.allow(ctx, remoteKey); err != nil {
		return nil, err
	}
	if vErr := utils.ValidatePINFormat(pin); vErr != nil {
		return nil, apierr.Unauthorized(fmt.Errorf("invalid PIN"))
	}

	operators, opErr := as.operatorRepo.GetActiveByCompany(ctx, nil, companyID)
	if opErr != nil {
		return nil, fmt.Errorf("Error retrieving operators: %w", opErr)
	}
	for _, operator := range operators {
		if utils.VerifyPIN(pin, operator.PinHash) {
			return as.issueToken(ctx, operator, operationTypeID)
		}
	}
	return nil, apierr.Unauthorized(fmt.Errorf("invalid PIN"))
}

// LoginWithQRCode authenticates by scanning an operator badge.
func (as *authService) LoginWithQRCode(ctx context.Context, companyID uuid.UUID, qrCodeID string, operationTypeID *uuid.UUID, remoteKey string) (*LoginResult, error) {
	if err := as.allow(ctx, remoteKey); err != nil {
		return nil, err
	}
	qrCodeID = strings.TrimSpace(qrCodeID)
	if qrCodeID == "" {
		return nil, apierr.Unauthorized(fmt.Errorf("missing badge code"))
	}

	operator, opErr := as.operatorRepo.GetActiveByQRCode(ctx, nil, companyID, qrCodeID)
	if opErr != nil {
		return nil, fmt.Errorf("Error retrieving operator by badge: %w", opErr)
	}
	if operator == nil {
		return nil, apierr.Unauthorized(fmt.Errorf("unknown badge"))
	}
	return as.issueToken(ctx, operator, operationTypeID)
}

func (as *authService) allow(ctx context.Context, remoteKey string) error {
	if as.limiter == nil || remoteKey == "" {
		return nil
	}
	ok, err := as.limiter.Allow(ctx, "login:"+remoteKey)
	if err != nil {
		as.log.Warn("Rate limiter unavailable, allowing login", "error", err)
		return nil
	}
	if !ok {
		return apierr.RateLimited(fmt.Errorf("too many login attempts"))
	}
	return nil
}

func (as *authService) issueToken(ctx context.Context, operator *types.Operator, operationTypeID *uuid.UUID) (*LoginResult, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(as.accessTTL)

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CompanyID:    operator.CompanyID.String(),
		OperatorName: operator.Name,
	}
	if operationTypeID != nil {
		s := operationTypeID.String()
		claims.OperationTypeID = &s
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, sErr := token.SignedString([]byte(as.jwtSecretKey))
	if sErr != nil {
		return nil, fmt.Errorf("Failed to sign token: %w", sErr)
	}

	if uErr := as.operatorRepo.UpdateFields(ctx, nil, operator.ID, map[string]interface{}{
		"last_login_at": now,
		"updated_at":    now,
	}); uErr != nil {
		as.log.Warn("Failed to record last login", "operator_id", operator.ID, "error", uErr)
	}
	lastLogin := now
	operator.LastLoginAt = &lastLogin

	return &LoginResult{Token: signed, ExpiresAt: expiresAt, Operator: operator}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, apierr.Unauthorized(fmt.Errorf("Failed to parse token: %w", err))
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, apierr.Unauthorized(fmt.Errorf("Invalid or expired token"))
	}
	operatorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized(fmt.Errorf("Invalid operator id in token: %w", err))
	}
	companyID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return ctx, apierr.Unauthorized(fmt.Errorf("Invalid company id in token: %w", err))
	}

	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		OperatorID:   operatorID,
		CompanyID:    companyID,
		OperatorName: claims.OperatorName,
	}
	if claims.OperationTypeID != nil {
		if otID, pErr := uuid.Parse(*claims.OperationTypeID); pErr == nil {
			rd.OperationTypeID = &otID
		}
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
