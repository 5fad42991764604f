package service

import (
	"context"
	"strings"

	"github.com/incidex/incidex/internal/ai"
	"github.com/incidex/incidex/internal/repository"
	apperrors "github.com/incidex/incidex/pkg/util"
)

// SuggestionService feeds a draft ticket plus the live catalogs to the
// metadata suggester. The suggester is a black box: it either returns a
// usable pick or nothing, never an error.
type SuggestionService struct {
	suggester ai.Suggester
	catalogs  repository.CatalogRepository
}

// NewSuggestionService builds the service.
func NewSuggestionService(suggester ai.Suggester, catalogs repository.CatalogRepository) *SuggestionService {
	return &SuggestionService{suggester: suggester, catalogs: catalogs}
}

// Suggest returns a metadata suggestion for a draft ticket, or nil when
// the model is unavailable or produced nothing usable.
func (s *SuggestionService) Suggest(ctx context.Context, title, description string) (*ai.Suggestion, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	categories, err := s.catalogs.Categories(ctx)
	if err != nil {
		return nil, err
	}
	priorities, err := s.catalogs.Priorities(ctx)
	if err != nil {
		return nil, err
	}
	departments, err := s.catalogs.Departments(ctx)
	if err != nil {
		return nil, err
	}

	return s.suggester.Suggest(ctx, ai.SuggestionInput{
		Title:       title,
		Description: description,
		Categories:  categories,
		Priorities:  priorities,
		Departments: departments,
	}), nil
}
