package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgcheckout "github.com/brewcart/brewcart-backend/pkg/checkout"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var fieldValidator = validator.New()

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Requester identifies who filed a request. Both ids are nil for anonymous visitors.
type Requester struct {
	StoreID *uuid.UUID
	UserID  *uuid.UUID
}

type Service interface {
	Create(ctx context.Context, requester Requester, input CreateInput) (*RequestDTO, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*pagination.Page[RequestDTO], error)
	ListAll(ctx context.Context, status string, params pagination.Params) (*pagination.Page[RequestDTO], error)
	Update(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, input UpdateInput) (*RequestDTO, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
	now    func() time.Time
}

func NewService(tx txRunner, repo Repository, emitter outbox.Emitter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("support repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, requester Requester, input CreateInput) (*RequestDTO, error) {
	req, err := buildRequest(requester, input)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert support request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSupportRequestCreated,
			AggregateType: enums.AggregateSupportRequest,
			AggregateID:   req.ID,
			Data: payloads.SupportRequestCreatedEvent{
				RequestID: req.ID,
				StoreID:   req.StoreID,
				Subject:   req.Subject,
				Status:    req.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(req), nil
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*pagination.Page[RequestDTO], error) {
	return s.list(ctx, ListFilter{StoreID: &storeID, Pagination: params})
}

func (s *service) ListAll(ctx context.Context, status string, params pagination.Params) (*pagination.Page[RequestDTO], error) {
	filter := ListFilter{Pagination: params}
	if strings.TrimSpace(status) != "" {
		parsed, err := enums.ParseSupportRequestStatus(strings.TrimSpace(status))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.Status = &parsed
	}
	return s.list(ctx, filter)
}

func (s *service) list(ctx context.Context, filter ListFilter) (*pagination.Page[RequestDTO], error) {
	if _, err := pagination.ParseCursor(filter.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list support requests")
	}
	page := pagination.Build(rows, filter.Pagination.Limit, func(r models.SupportRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := pagination.Page[RequestDTO]{Items: make([]RequestDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

// Update sets status and notes. resolved_at follows the status: set on the first move to a
// finished state, cleared when the request is reopened.
func (s *service) Update(ctx context.Context, actor outbox.ActorRef, id uuid.UUID, input UpdateInput) (*RequestDTO, error) {
	next, err := enums.ParseSupportRequestStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid support request status").
			WithDetails(map[string]any{"status": input.Status})
	}

	var result *models.SupportRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "support request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support request")
		}

		previous := req.Status
		req.Status = next
		if input.AdminNotes != nil {
			req.AdminNotes = trimmedOrNil(input.AdminNotes)
		}
		switch {
		case next.IsFinished() && req.ResolvedAt == nil:
			now := s.now()
			req.ResolvedAt = &now
		case !next.IsFinished():
			req.ResolvedAt = nil
		}
		req.UpdatedAt = s.now()
		if err := repo.Update(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update support request")
		}
		result = req

		if previous == next || req.StoreID == nil {
			return nil
		}
		notes := ""
		if req.AdminNotes != nil {
			notes = *req.AdminNotes
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSupportRequestUpdated,
			AggregateType: enums.AggregateSupportRequest,
			AggregateID:   req.ID,
			Actor:         &actor,
			Data: payloads.SupportRequestUpdatedEvent{
				RequestID:      req.ID,
				StoreID:        req.StoreID,
				Subject:        req.Subject,
				PreviousStatus: previous,
				Status:         next,
				AdminNotes:     notes,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(result), nil
}

func buildRequest(requester Requester, input CreateInput) (*models.SupportRequest, error) {
	details := map[string]any{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		details["name"] = "is required"
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := fieldValidator.Var(email, "required,email"); err != nil {
		details["email"] = "must be a valid email"
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		details["subject"] = "is required"
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		details["message"] = "is required"
	}
	phone := trimmedOrNil(input.Phone)
	if phone != nil && !pkgcheckout.ValidPhone(*phone) {
		details["phone"] = "must be a valid phone number"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid support request").WithDetails(details)
	}
	return &models.SupportRequest{
		StoreID: requester.StoreID,
		UserID:  requester.UserID,
		Name:    name,
		Email:   email,
		Phone:   phone,
		Subject: subject,
		Message: message,
		Status:  enums.SupportRequestStatusOpen,
	}, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
