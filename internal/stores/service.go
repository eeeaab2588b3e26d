package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes store operations for the dashboard and the storefront.
type Service interface {
	GetMyStore(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error)
	UpdateMyStore(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
	GetPublicBySlug(ctx context.Context, slug string) (*PublicStoreDTO, error)
	// ResolveActive returns the raw active store for storefront flows such as checkout.
	ResolveActive(ctx context.Context, slug string) (*models.Store, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
}

// NewService builds a store service with the provided repositories.
func NewService(tx txRunner, repo Repository, emitter outbox.Emitter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter}, nil
}

func (s *service) GetMyStore(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error) {
	store, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return FromModel(store), nil
}

func (s *service) UpdateMyStore(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}

	var updated *models.Store
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		store, err := repo.FindByID(ctx, storeID)
		if err != nil {
			return mapLoadError(err)
		}

		if input.Name != nil {
			store.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			store.Description = optionalString(input.Description)
		}
		if input.LogoURL != nil {
			store.LogoURL = optionalString(input.LogoURL)
		}
		if input.ContactEmail != nil {
			store.ContactEmail = optionalString(input.ContactEmail)
		}
		if input.ContactPhone != nil {
			store.ContactPhone = optionalString(input.ContactPhone)
		}

		if err := repo.Update(ctx, store); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
		}
		if err := EmitStoreUpdated(ctx, s.outbox, tx, &actor, store); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit store updated")
		}
		updated = store
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) GetPublicBySlug(ctx context.Context, slug string) (*PublicStoreDTO, error) {
	store, err := s.ResolveActive(ctx, slug)
	if err != nil {
		return nil, err
	}
	return PublicFromModel(store), nil
}

func (s *service) ResolveActive(ctx context.Context, slug string) (*models.Store, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	store, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, mapLoadError(err)
	}
	// inactive stores are indistinguishable from missing ones on the storefront
	if !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return store, nil
}

// EmitStoreUpdated queues store_updated carrying the full admin row.
func EmitStoreUpdated(ctx context.Context, emitter outbox.Emitter, tx *gorm.DB, actor *outbox.ActorRef, store *models.Store) error {
	record, err := json.Marshal(FromModel(store))
	if err != nil {
		return err
	}
	return emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStoreUpdated,
		AggregateType: enums.AggregateStore,
		AggregateID:   store.ID,
		Actor:         actor,
		Data:          payloads.StoreUpdatedEvent{StoreID: store.ID, Record: record},
	})
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
}
