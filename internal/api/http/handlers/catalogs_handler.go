package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/incidex/incidex/internal/api/dto"
	"github.com/incidex/incidex/internal/repository"
	apperrors "github.com/incidex/incidex/pkg/util"
)

// CatalogsHandler serves the lookup tables and their admin maintenance,
// plus the bitacora listing.
type CatalogsHandler struct {
	catalogs repository.CatalogRepository
	audit    repository.AuditLogRepository
}

// NewCatalogsHandler constructs handler.
func NewCatalogsHandler(catalogs repository.CatalogRepository, audit repository.AuditLogRepository) *CatalogsHandler {
	return &CatalogsHandler{catalogs: catalogs, audit: audit}
}

// List GET /app/catalogs.
func (h *CatalogsHandler) List(c *fiber.Ctx) error {
	statuses, err := h.catalogs.Statuses(c.Context())
	if err != nil {
		return err
	}
	priorities, err := h.catalogs.Priorities(c.Context())
	if err != nil {
		return err
	}
	categories, err := h.catalogs.Categories(c.Context())
	if err != nil {
		return err
	}
	departments, err := h.catalogs.Departments(c.Context())
	if err != nil {
		return err
	}

	statusItems := make([]dto.StatusResponse, 0, len(statuses))
	for _, status := range statuses {
		statusItems = append(statusItems, dto.StatusResponse{
			ID:         status.ID,
			Name:       status.Name,
			IsTerminal: status.IsTerminal,
		})
	}
	priorityItems := make([]dto.NamedItem, 0, len(priorities))
	for _, priority := range priorities {
		priorityItems = append(priorityItems, dto.NamedItem{ID: priority.ID, Name: priority.Name})
	}
	categoryItems := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		categoryItems = append(categoryItems, dto.CategoryResponse{
			ID:          category.ID,
			Name:        category.Name,
			Description: category.Description,
		})
	}
	departmentItems := make([]dto.NamedItem, 0, len(departments))
	for _, dept := range departments {
		departmentItems = append(departmentItems, dto.NamedItem{ID: dept.ID, Name: dept.Name})
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"statuses":    statusItems,
		"priorities":  priorityItems,
		"categories":  categoryItems,
		"departments": departmentItems,
	}})
}

// CreateDepartment POST /admin/departments.
func (h *CatalogsHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	dept, err := h.catalogs.CreateDepartment(c.Context(), name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NamedItem{ID: dept.ID, Name: dept.Name}})
}

// DeleteDepartment DELETE /admin/departments/:id.
func (h *CatalogsHandler) DeleteDepartment(c *fiber.Ctx) error {
	id, err := parseCatalogID(c)
	if err != nil {
		return err
	}
	if err := h.catalogs.DeleteDepartment(c.Context(), id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"department_id": id}})
}

// CreateCategory POST /admin/categories.
func (h *CatalogsHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	category, err := h.catalogs.CreateCategory(c.Context(), name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
	}})
}

// DeleteCategory DELETE /admin/categories/:id.
func (h *CatalogsHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := parseCatalogID(c)
	if err != nil {
		return err
	}
	if err := h.catalogs.DeleteCategory(c.Context(), id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"category_id": id}})
}

// AuditLog GET /admin/audit.
func (h *CatalogsHandler) AuditLog(c *fiber.Ctx) error {
	filter := repository.AuditFilter{Limit: parseInt(c.Query("limit"), 100)}
	if usuario := c.Query("usuario"); usuario != "" {
		filter.Usuario = &usuario
	}
	if accion := c.Query("accion"); accion != "" {
		filter.Accion = &accion
	}
	if from := parseTime(c.Query("from")); from != nil {
		filter.From = from
	}
	if to := parseTime(c.Query("to")); to != nil {
		filter.To = to
	}

	entries, err := h.audit.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:        entry.ID,
			Usuario:   entry.Usuario,
			Rol:       entry.Rol,
			Accion:    entry.Accion,
			Resultado: entry.Resultado,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseCatalogID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}
