package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
	"github.com/brewcart/brewcart-backend/pkg/storage/gcs"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type thresholdReader interface {
	Get(ctx context.Context, storeID uuid.UUID) (*settings.Settings, error)
}

type uploadSigner interface {
	SignedUploadURL(object, contentType string) (*gcs.SignedUpload, error)
}

// Service exposes catalog management for the dashboard and the storefront.
type Service interface {
	List(ctx context.Context, filter ListFilter) (*pagination.Page[ProductDTO], error)
	Get(ctx context.Context, storeID, productID uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, actor outbox.ActorRef, storeID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, actor outbox.ActorRef, storeID, productID uuid.UUID) error
	AdjustStock(ctx context.Context, actor outbox.ActorRef, storeID, productID uuid.UUID, delta int) (*ProductDTO, error)
	ImageUploadURL(ctx context.Context, storeID, productID uuid.UUID, contentType string) (*ImageUpload, error)

	ListPublic(ctx context.Context, filter ListFilter) (*pagination.Page[PublicProductDTO], error)
	GetPublic(ctx context.Context, storeID, productID uuid.UUID) (*PublicProductDTO, error)
}

type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Outbox   outbox.Emitter
	Uploads  uploadSigner
	Settings thresholdReader
}

type service struct {
	tx       txRunner
	repo     Repository
	outbox   outbox.Emitter
	uploads  uploadSigner
	settings thresholdReader
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Uploads == nil {
		return nil, fmt.Errorf("upload signer required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		outbox:   params.Outbox,
		uploads:  params.Uploads,
		settings: params.Settings,
	}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[ProductDTO], error) {
	rows, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, filter.Pagination.Limit, productCursor)
	out := pagination.Page[ProductDTO]{Items: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) list(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	if _, err := pagination.ParseCursor(filter.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}

func productCursor(p models.Product) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

func (s *service) Get(ctx context.Context, storeID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, storeID, productID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return FromModel(product), nil
}

func (s *service) Create(ctx context.Context, actor outbox.ActorRef, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	price, err := ParsePriceCents("price", input.Price, input.PriceCents)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price is required").
			WithDetails(map[string]any{"price": "send price or price_cents"})
	}
	compareAt, err := ParsePriceCents("compare_at_price", input.CompareAtPrice, input.CompareAtPriceCents)
	if err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}

	product := &models.Product{
		StoreID:             storeID,
		Name:                name,
		Description:         optionalString(input.Description),
		SKU:                 optionalString(input.SKU),
		Category:            optionalString(input.Category),
		PriceCents:          *price,
		CompareAtPriceCents: compareAt,
		Stock:               input.Stock,
		ImageURLs:           input.ImageURLs,
		IsActive:            input.IsActive == nil || *input.IsActive,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		return s.emitChanged(ctx, tx, actor, enums.ChangeInsert, product)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, actor outbox.ActorRef, storeID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	price, err := ParsePriceCents("price", input.Price, input.PriceCents)
	if err != nil {
		return nil, err
	}
	compareAt, err := ParsePriceCents("compare_at_price", input.CompareAtPrice, input.CompareAtPriceCents)
	if err != nil {
		return nil, err
	}

	var updated *models.Product
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, storeID, productID)
		if err != nil {
			return mapLoadError(err)
		}
		applyUpdate(product, input, price, compareAt)
		if err := repo.Update(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		updated = product
		return s.emitChanged(ctx, tx, actor, enums.ChangeUpdate, product)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func applyUpdate(product *models.Product, input UpdateProductInput, price, compareAt *int) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = optionalString(input.Description)
	}
	if input.SKU != nil {
		product.SKU = optionalString(input.SKU)
	}
	if input.Category != nil {
		product.Category = optionalString(input.Category)
	}
	if price != nil {
		product.PriceCents = *price
	}
	if compareAt != nil {
		product.CompareAtPriceCents = compareAt
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.ImageURLs != nil {
		product.ImageURLs = append(product.ImageURLs[:0:0], (*input.ImageURLs)...)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}

func (s *service) Delete(ctx context.Context, actor outbox.ActorRef, storeID, productID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, storeID, productID)
		if err != nil {
			return mapLoadError(err)
		}
		deleted, err := repo.Delete(ctx, storeID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return s.emitChanged(ctx, tx, actor, enums.ChangeDelete, product)
	})
}

func (s *service) AdjustStock(ctx context.Context, actor outbox.ActorRef, storeID, productID uuid.UUID, delta int) (*ProductDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	threshold := 0
	if delta < 0 {
		current, err := s.settings.Get(ctx, storeID)
		if err != nil {
			return nil, err
		}
		threshold = current.LowStockThreshold
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		remaining, ok, err := repo.AdjustStock(ctx, storeID, productID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust stock")
		}
		product, err := repo.FindByID(ctx, storeID, productID)
		if err != nil {
			return mapLoadError(err)
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock cannot go below zero").
				WithDetails(map[string]any{
					"product_ids": []uuid.UUID{productID},
					"stock":       product.Stock,
					"delta":       delta,
				})
		}
		updated = product
		if err := s.emitChanged(ctx, tx, actor, enums.ChangeUpdate, product); err != nil {
			return err
		}
		if delta < 0 && remaining <= threshold {
			return s.emitLowStock(ctx, tx, product, remaining, threshold)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) ImageUploadURL(ctx context.Context, storeID, productID uuid.UUID, contentType string) (*ImageUpload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]any{"content_type": contentType})
	}
	if _, err := s.repo.FindByID(ctx, storeID, productID); err != nil {
		return nil, mapLoadError(err)
	}

	object := ImageObjectKey(storeID, productID, uuid.New(), ext)
	signed, err := s.uploads.SignedUploadURL(object, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign image upload")
	}
	return &ImageUpload{
		UploadURL: signed.URL,
		Method:    signed.Method,
		Headers:   signed.Headers,
		ObjectKey: signed.Object,
		PublicURL: signed.PublicURL,
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// ImageObjectKey lays product images out per store and product.
func ImageObjectKey(storeID, productID, imageID uuid.UUID, ext string) string {
	return fmt.Sprintf("stores/%s/products/%s/%s.%s", storeID, productID, imageID, ext)
}

func (s *service) ListPublic(ctx context.Context, filter ListFilter) (*pagination.Page[PublicProductDTO], error) {
	active := true
	filter.Active = &active
	rows, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, filter.Pagination.Limit, productCursor)
	out := pagination.Page[PublicProductDTO]{Items: make([]PublicProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *PublicFromModel(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) GetPublic(ctx context.Context, storeID, productID uuid.UUID) (*PublicProductDTO, error) {
	product, err := s.repo.FindByID(ctx, storeID, productID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return PublicFromModel(product), nil
}

func (s *service) emitChanged(ctx context.Context, tx *gorm.DB, actor outbox.ActorRef, change enums.ChangeType, product *models.Product) error {
	record, err := json.Marshal(FromModel(product))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode product")
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventProductChanged,
		AggregateType: enums.AggregateProduct,
		AggregateID:   product.ID,
		Actor:         &actor,
		Data: payloads.ProductChangedEvent{
			ProductID: product.ID,
			StoreID:   product.StoreID,
			Change:    change,
			Record:    record,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit product changed")
	}
	return nil
}

func (s *service) emitLowStock(ctx context.Context, tx *gorm.DB, product *models.Product, remaining, threshold int) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventProductLowStock,
		AggregateType: enums.AggregateProduct,
		AggregateID:   product.ID,
		Data: payloads.ProductLowStockEvent{
			ProductID: product.ID,
			StoreID:   product.StoreID,
			Name:      product.Name,
			Stock:     remaining,
			Threshold: threshold,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit low stock")
	}
	return nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
