package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
	"rechnungen/internal/storage"
)

// ErrCategoryDelete is returned when the storage layer refused a category deletion.
var ErrCategoryDelete = errors.New("category could not be deleted")

type CategoryStore interface {
	AddCategory(ctx context.Context, name string) (bool, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	DeleteCategory(ctx context.Context, id int64) bool
}

// CategoryService manages categories and keeps the session map in sync after
// every mutation.
type CategoryService struct {
	store   CategoryStore
	session *Session
	logger  *log.Logger
}

func NewCategoryService(store CategoryStore, session *Session, logger *log.Logger) *CategoryService {
	return &CategoryService{
		store:   store,
		session: session,
		logger:  logger.WithComponent(log.ComponentCategory),
	}
}

// Refresh reloads categories from storage and rebuilds the session map.
func (s *CategoryService) Refresh(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.session.SetCategories(cats)
	return cats, nil
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.Refresh(ctx)
}

// Add creates a category. Duplicate names yield storage.ErrDuplicateCategory.
func (s *CategoryService) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	if reservedCategoryName(name) {
		return fmt.Errorf("%w: %s", core.ErrReservedName, name)
	}
	created, err := s.store.AddCategory(ctx, name)
	if err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	if !created {
		s.logger.InfoContext(ctx, "Category already exists", log.FieldCategory, name)
		return fmt.Errorf("%w: %s", storage.ErrDuplicateCategory, name)
	}
	s.logger.InfoContext(ctx, "Category created", log.FieldCategory, name)
	_, err = s.Refresh(ctx)
	return err
}

// Delete removes a category; invoices referencing it become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if !s.store.DeleteCategory(ctx, id) {
		return fmt.Errorf("%w: id %d", ErrCategoryDelete, id)
	}
	s.logger.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id)
	_, err := s.Refresh(ctx)
	return err
}

// DeleteByName resolves name through the session map and deletes it.
func (s *CategoryService) DeleteByName(ctx context.Context, name string) error {
	id, err := s.Lookup(ctx, name)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

// Lookup resolves a category name, reloading the map once on a miss.
func (s *CategoryService) Lookup(ctx context.Context, name string) (int64, error) {
	if id, ok := s.session.CategoryID(name); ok {
		return id, nil
	}
	if _, err := s.Refresh(ctx); err != nil {
		return 0, err
	}
	if id, ok := s.session.CategoryID(name); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", core.ErrUnknownCategory, name)
}

// reservedCategoryName reports names the list filter and the invoice form use
// as sentinels for "every category" and "no category".
func reservedCategoryName(name string) bool {
	switch strings.ToLower(name) {
	case "all", "alle", strings.ToLower(NoCategory):
		return true
	}
	return false
}
