package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"creditledger/internal/model"
	"creditledger/internal/repository"
	"creditledger/pkg/money"

	"gorm.io/gorm"
)

// CatalogService manages the products a user can put on a debt.
type CatalogService struct {
	userRepo    *repository.UserRepository
	catalogRepo *repository.CatalogRepository
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		userRepo:    repository.NewUserRepository(db),
		catalogRepo: repository.NewCatalogRepository(db),
	}
}

type CreateCatalogItemRequest struct {
	UserID      int64       `json:"user_id" binding:"required"`
	Name        string      `json:"name" binding:"required,max=200"`
	Description string      `json:"description" binding:"max=500"`
	Price       money.Cents `json:"price" binding:"required"`
	Stock       int         `json:"stock"`
}

func (s *CatalogService) CreateItem(ctx context.Context, req *CreateCatalogItemRequest) (*model.CatalogItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ValidationError("name must not be empty")
	}
	if !req.Price.IsPositive() {
		return nil, ValidationError("price must be greater than zero")
	}
	if req.Stock < 0 {
		return nil, ValidationError("stock must not be negative")
	}
	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ValidationError("user %d does not exist", req.UserID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	item := &model.CatalogItem{
		UserID:      req.UserID,
		Name:        name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Active:      true,
	}
	if err := s.catalogRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create catalog item: %w", err)
	}
	return item, nil
}

// ListItems returns the user's active items by name.
func (s *CatalogService) ListItems(ctx context.Context, userID int64) ([]*model.CatalogItem, error) {
	items, err := s.catalogRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	return items, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, itemID int64) error {
	if err := s.catalogRepo.SoftDelete(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrCatalogItemNotFound) {
			return NotFoundError("item %d not found", itemID)
		}
		return fmt.Errorf("delete catalog item: %w", err)
	}
	log.Printf("[CatalogService] item deactivated: itemID=%d", itemID)
	return nil
}
