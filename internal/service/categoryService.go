package service

import (
	"context"
	"fmt"

	repository "github.com/pyop-labs/ticketing-backend/internal/database/postgres"
	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService создает новый экземпляр CategoryService
func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) CreateCategory(ctx context.Context, name string) (*entity.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", entity.ErrInvalidRequest)
	}

	category := &entity.Category{Name: name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (s *categoryService) GetAllCategories(ctx context.Context) ([]*entity.Category, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}
