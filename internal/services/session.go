package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/apierr"
	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/repos"
	"github.com/yungbote/shopfloor-backend/internal/sse"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

// StartResult is the outcome of an arbitrated start: the operation, the
// freshly opened session, and the session that was superseded if this
// start took over from another operator.
type StartResult struct {
	Operation        *types.JobOperation    `json:"operation"`
	Session          *types.OperatorSession `json:"session"`
	Superseded       *types.OperatorSession `json:"superseded,omitempty"`
	JobStatusChanged bool                   `json:"job_status_changed"`
	NewJobStatus     string                 `json:"new_job_status,omitempty"`
}

// StopResult reports a paused session. The operation stays in_progress;
// stop is a pause, not a cancel.
type StopResult struct {
	Operation       *types.JobOperation    `json:"operation"`
	Session         *types.OperatorSession `json:"session"`
	DurationSeconds int64                  `json:"duration_seconds"`
}

// CompleteResult pairs the state-machine completion with the closed
// session.
type CompleteResult struct {
	TransitionResult
	Session         *types.OperatorSession `json:"session,omitempty"`
	DurationSeconds int64                  `json:"duration_seconds,omitempty"`
}

// SessionService arbitrates operator sessions over the operation state
// machine. It guarantees at most one active session per operation:
// pressing start at a station always wins, closing any prior session as
// superseded (the UI warns about an active worker; this layer does not
// reject). A conflict on a *different* operation of the same job is not
// a takeover and surfaces as AlreadyInProgress.
type SessionService interface {
	StartOperation(ctx context.Context, operationID, operatorID, companyID uuid.UUID, operationTypeID *uuid.UUID) (*StartResult, error)
	StopOperation(ctx context.Context, operationID, operatorID uuid.UUID, notes string) (*StopResult, error)
	CompleteOperation(ctx context.Context, operationID, operatorID uuid.UUID, input CompleteInput) (*CompleteResult, error)
	ActiveSession(ctx context.Context, operatorID uuid.UUID) (*types.OperatorSession, error)
	SessionHistory(ctx context.Context, operatorID uuid.UUID, limit int) ([]*types.OperatorSession, error)
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.OperatorSessionRepo
	opSvc    OperationService
	notify   FloorNotifier
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions repos.OperatorSessionRepo,
	opSvc OperationService,
	notify FloorNotifier,
) SessionService {
	return &sessionService{
		db:       db,
		log:      baseLog.With("service", "SessionService"),
		sessions: sessions,
		opSvc:    opSvc,
		notify:   notify,
	}
}

func (s *sessionService) StartOperation(ctx context.Context, operationID, operatorID, companyID uuid.UUID, operationTypeID *uuid.UUID) (*StartResult, error) {
	if operatorID == uuid.Nil {
		return nil, fmt.Errorf("missing operator id")
	}

	var result *StartResult
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		op, err := s.opSvc.GetByID(ctx, txx, operationID)
		if err != nil {
			return err
		}

		res := &StartResult{Operation: op}
		switch op.Status {
		case types.OperationStatusPending:
			tr, err := s.opSvc.Start(ctx, txx, operationID)
			if err != nil {
				return err
			}
			res.Operation = tr.Operation
			res.JobStatusChanged = tr.JobStatusChanged
			res.NewJobStatus = tr.NewJobStatus
		case types.OperationStatusInProgress:
			// Takeover or resume: the operation state is untouched.
		default:
			return apierr.InvalidTransition(fmt.Errorf("operation %s cannot be worked from status %q", operationID, op.Status))
		}

		now := time.Now().UTC()

		prior, err := s.sessions.GetActiveByOperationID(ctx, txx, operationID)
		if err != nil {
			return err
		}
		if prior != nil {
			if _, err := s.sessions.CloseIfActive(ctx, txx, prior.ID, now, types.SessionEndSuperseded, ""); err != nil {
				return err
			}
			endedAt := now
			prior.EndedAt = &endedAt
			prior.EndReason = types.SessionEndSuperseded
			if prior.OperatorID != operatorID {
				res.Superseded = prior
			}
		}

		// An operator works one thing at a time: close their own dangling
		// session elsewhere before opening the new one.
		if prior == nil || prior.OperatorID != operatorID {
			own, err := s.sessions.GetActiveByOperatorID(ctx, txx, operatorID)
			if err != nil {
				return err
			}
			if own != nil {
				if _, err := s.sessions.CloseIfActive(ctx, txx, own.ID, now, types.SessionEndSwitched, ""); err != nil {
					return err
				}
			}
		}

		session := &types.OperatorSession{
			ID:              uuid.New(),
			CompanyID:       companyID,
			OperatorID:      operatorID,
			JobID:           res.Operation.JobID,
			JobOperationID:  operationID,
			OperationTypeID: operationTypeID,
			StartedAt:       now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := s.sessions.Create(ctx, txx, []*types.OperatorSession{session}); err != nil {
			return err
		}
		res.Session = session
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.OperationTransitioned(sse.SSEEventOperationStarted, result.Operation)
		if result.JobStatusChanged {
			s.notify.JobStatusChanged(result.Operation.JobID, result.NewJobStatus)
		}
		if result.Superseded != nil {
			s.notify.SessionSuperseded(result.Superseded, operatorID)
		}
	}
	return result, nil
}

func (s *sessionService) StopOperation(ctx context.Context, operationID, operatorID uuid.UUID, notes string) (*StopResult, error) {
	var result *StopResult
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		op, err := s.opSvc.GetByID(ctx, txx, operationID)
		if err != nil {
			return err
		}

		session, err := s.sessions.GetActiveByOperationID(ctx, txx, operationID)
		if err != nil {
			return err
		}
		if session == nil {
			return apierr.NotFound(fmt.Errorf("no active session for operation %s", operationID))
		}
		if session.OperatorID != operatorID {
			return apierr.NotSessionOwner(fmt.Errorf("session %s belongs to another operator", session.ID))
		}

		now := time.Now().UTC()
		rows, err := s.sessions.CloseIfActive(ctx, txx, session.ID, now, types.SessionEndStopped, notes)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apierr.NotFound(fmt.Errorf("session %s already closed", session.ID))
		}

		endedAt := now
		session.EndedAt = &endedAt
		session.EndReason = types.SessionEndStopped
		if notes != "" {
			session.Notes = notes
		}
		result = &StopResult{
			Operation:       op,
			Session:         session,
			DurationSeconds: int64(session.Elapsed(now).Seconds()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteOperation closes the active session and completes the
// operation as one unit: if the state-machine transition fails the
// session stays open, and if the session close fails the transition
// rolls back.
func (s *sessionService) CompleteOperation(ctx context.Context, operationID, operatorID uuid.UUID, input CompleteInput) (*CompleteResult, error) {
	var result *CompleteResult
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		session, err := s.sessions.GetActiveByOperationID(ctx, txx, operationID)
		if err != nil {
			return err
		}
		if session != nil && session.OperatorID != operatorID {
			return apierr.NotSessionOwner(fmt.Errorf("session %s belongs to another operator", session.ID))
		}

		tr, err := s.opSvc.Complete(ctx, txx, operationID, input)
		if err != nil {
			return err
		}

		res := &CompleteResult{TransitionResult: *tr}
		if session != nil {
			now := time.Now().UTC()
			rows, err := s.sessions.CloseIfActive(ctx, txx, session.ID, now, types.SessionEndCompleted, input.Notes)
			if err != nil {
				return err
			}
			if rows == 0 {
				return apierr.NotFound(fmt.Errorf("session %s already closed", session.ID))
			}
			endedAt := now
			session.EndedAt = &endedAt
			session.EndReason = types.SessionEndCompleted
			res.Session = session
			res.DurationSeconds = int64(session.Elapsed(now).Seconds())
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.OperationTransitioned(sse.SSEEventOperationCompleted, result.Operation)
		if result.JobStatusChanged {
			s.notify.JobStatusChanged(result.Operation.JobID, result.NewJobStatus)
		}
	}
	return result, nil
}

func (s *sessionService) ActiveSession(ctx context.Context, operatorID uuid.UUID) (*types.OperatorSession, error) {
	return s.sessions.GetActiveByOperatorID(ctx, nil, operatorID)
}

func (s *sessionService) SessionHistory(ctx context.Context, operatorID uuid.UUID, limit int) ([]*types.OperatorSession, error) {
	return s.sessions.GetHistoryByOperatorID(ctx, nil, operatorID, limit)
}
