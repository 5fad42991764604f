package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/incidex/incidex/internal/api/dto"
	"github.com/incidex/incidex/internal/auth"
	"github.com/incidex/incidex/internal/domain"
	"github.com/incidex/incidex/internal/service"
	apperrors "github.com/incidex/incidex/pkg/util"
)

// TicketsHandler serves the ticket workflow endpoints.
type TicketsHandler struct {
	workflow    *service.WorkflowService
	suggestions *service.SuggestionService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(workflow *service.WorkflowService, suggestions *service.SuggestionService) *TicketsHandler {
	return &TicketsHandler{workflow: workflow, suggestions: suggestions}
}

// Create POST /app/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.CreateTicket(c.Context(), service.CreateTicketInput{
		RequesterID:  principal.User.ID,
		Subject:      req.Subject,
		Details:      req.Details,
		CategoryID:   req.CategoryID,
		DepartmentID: req.DepartmentID,
		PriorityID:   req.PriorityID,
		AssigneeID:   req.AssigneeID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.CreateTicketResponse{ID: ticket.ID, Code: ticket.Code},
	})
}

// List GET /app/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}

	page, err := h.workflow.ScopedList(c.Context(), principal.User.ID, principal.Roles, parseListQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketPageResponse(page)})
}

// Detail GET /app/tickets/:id.
func (h *TicketsHandler) Detail(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}

	bundle, err := h.workflow.Detail(c.Context(), ticketID, principal.User.ID, principal.Roles)
	if err != nil {
		return err
	}
	if bundle == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(bundle)})
}

// ChangeStatus POST /app/tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ToStatusID <= 0 {
		return apperrors.NewValidationError("to_status_id required", nil)
	}

	if err := h.workflow.ChangeStatus(c.Context(), ticketID, principal.User.ID, principal.Roles, req.ToStatusID, req.Note); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ticket_id": ticketID, "status_id": req.ToStatusID}})
}

// Reassign POST /app/tickets/:id/assignee.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.workflow.Reassign(c.Context(), ticketID, principal.User.ID, principal.Roles, req.AssigneeID, req.Note); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ticket_id": ticketID, "assignee_id": req.AssigneeID}})
}

// AddComment POST /app/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.workflow.AddComment(c.Context(), ticketID, principal.User.ID, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// AddAttachment POST /app/tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.AttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	attachment, err := h.workflow.AddAttachment(c.Context(), ticketID, principal.User.ID, service.AttachmentInput{
		FileName:       req.FileName,
		MimeType:       req.MimeType,
		FilePath:       req.FilePath,
		FileSize:       req.FileSize,
		ChecksumSHA256: req.ChecksumSHA256,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// Suggest POST /app/tickets/suggest.
func (h *TicketsHandler) Suggest(c *fiber.Ctx) error {
	var req dto.SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	suggestion, err := h.suggestions.Suggest(c.Context(), req.Title, req.Description)
	if err != nil {
		return err
	}
	if suggestion == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.SuggestionResponse{
		CategoryID:   &suggestion.CategoryID,
		PriorityID:   &suggestion.PriorityID,
		DepartmentID: &suggestion.DepartmentID,
		Reason:       suggestion.Reason,
	}})
}

// Dashboard GET /app/dashboard.
func (h *TicketsHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}

	dashboard, err := h.workflow.DashboardForUser(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	recent := make([]dto.TicketRowResponse, 0, len(dashboard.Recent))
	for i := range dashboard.Recent {
		recent = append(recent, ticketRowResponse(&dashboard.Recent[i]))
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Open:       dashboard.KPIs.Open,
		InProgress: dashboard.KPIs.InProgress,
		Closed:     dashboard.KPIs.Closed,
		Recent:     recent,
	}})
}

// Analysts GET /app/analysts. Maps each department to its analysts by
// ascending open-ticket load, for assignee pickers.
func (h *TicketsHandler) Analysts(c *fiber.Ctx) error {
	byDept, err := h.workflow.AnalystsByDepartment(c.Context())
	if err != nil {
		return err
	}
	result := make(map[string][]dto.AnalystLoadResponse, len(byDept))
	for deptID, analysts := range byDept {
		items := make([]dto.AnalystLoadResponse, 0, len(analysts))
		for _, analyst := range analysts {
			items = append(items, dto.AnalystLoadResponse{
				ID:       analyst.ID,
				FullName: analyst.FullName,
				Load:     analyst.Load,
			})
		}
		result[strconv.FormatInt(deptID, 10)] = items
	}
	return c.JSON(fiber.Map{"data": result})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func parseListQuery(c *fiber.Ctx) service.ListQuery {
	query := service.ListQuery{
		Search:  c.Query("q"),
		Page:    parseInt(c.Query("page"), 1),
		PerPage: parseInt(c.Query("per_page"), 10),
	}
	query.StatusID = parseOptionalID(c.Query("status_id"))
	query.PriorityID = parseOptionalID(c.Query("priority_id"))
	query.CategoryID = parseOptionalID(c.Query("category_id"))
	query.CreatedFrom = parseTime(c.Query("created_from"))
	query.CreatedTo = parseTime(c.Query("created_to"))
	return query
}

func parseOptionalID(val string) *int64 {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil || parsed <= 0 {
		return nil
	}
	return &parsed
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketRowResponse(row *domain.TicketRow) dto.TicketRowResponse {
	return dto.TicketRowResponse{
		ID:            row.ID,
		Code:          row.Code,
		Title:         row.Title,
		RequesterName: row.RequesterName,
		AssigneeName:  row.AssigneeName,
		CategoryName:  row.CategoryName,
		PriorityName:  row.PriorityName,
		StatusName:    row.StatusName,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func ticketPageResponse(page *service.TicketPage) dto.TicketPageResponse {
	items := make([]dto.TicketRowResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketRowResponse(&page.Items[i]))
	}
	return dto.TicketPageResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages,
		Filters: dto.FilterEcho{
			Search:      page.Query.Search,
			StatusID:    page.Query.StatusID,
			PriorityID:  page.Query.PriorityID,
			CategoryID:  page.Query.CategoryID,
			CreatedFrom: page.Query.CreatedFrom,
			CreatedTo:   page.Query.CreatedTo,
		},
		Catalogs: catalogsResponse(page.Catalogs),
	}
}

func ticketDetailResponse(bundle *service.TicketBundle) dto.TicketDetailResponse {
	detail := bundle.Ticket
	comments := make([]dto.CommentResponse, 0, len(bundle.Comments))
	for i := range bundle.Comments {
		comments = append(comments, commentResponse(&bundle.Comments[i]))
	}
	attachments := make([]dto.AttachmentResponse, 0, len(bundle.Attachments))
	for i := range bundle.Attachments {
		attachments = append(attachments, attachmentResponse(&bundle.Attachments[i]))
	}
	history := make([]dto.HistoryResponse, 0, len(bundle.History))
	for _, entry := range bundle.History {
		history = append(history, dto.HistoryResponse{
			ID:         entry.ID,
			ActorName:  entry.ActorName,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		ID:             detail.ID,
		Code:           detail.Code,
		Title:          detail.Title,
		Description:    detail.Description,
		RequesterName:  detail.RequesterName,
		AssigneeName:   detail.AssigneeName,
		DepartmentName: detail.DepartmentName,
		CategoryName:   detail.CategoryName,
		PriorityName:   detail.PriorityName,
		StatusName:     detail.StatusName,
		CreatedAt:      detail.CreatedAt,
		UpdatedAt:      detail.UpdatedAt,
		ResolvedAt:     detail.ResolvedAt,
		ClosedAt:       detail.ClosedAt,
		CanAct:         bundle.CanAct,
		Comments:       comments,
		Attachments:    attachments,
		History:        history,
	}
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		AuthorName: comment.AuthorName,
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
	}
}

func attachmentResponse(attachment *domain.TicketAttachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:        attachment.ID,
		FileName:  attachment.FileName,
		MimeType:  attachment.MimeType,
		FileSize:  attachment.FileSize,
		CreatedAt: attachment.CreatedAt,
	}
}

func catalogsResponse(catalogs domain.Catalogs) dto.CatalogsResponse {
	statuses := make([]dto.StatusResponse, 0, len(catalogs.Statuses))
	for _, status := range catalogs.Statuses {
		statuses = append(statuses, dto.StatusResponse{
			ID:         status.ID,
			Name:       status.Name,
			IsTerminal: status.IsTerminal,
		})
	}
	priorities := make([]dto.NamedItem, 0, len(catalogs.Priorities))
	for _, priority := range catalogs.Priorities {
		priorities = append(priorities, dto.NamedItem{ID: priority.ID, Name: priority.Name})
	}
	categories := make([]dto.CategoryResponse, 0, len(catalogs.Categories))
	for _, category := range catalogs.Categories {
		categories = append(categories, dto.CategoryResponse{
			ID:          category.ID,
			Name:        category.Name,
			Description: category.Description,
		})
	}
	return dto.CatalogsResponse{
		Statuses:   statuses,
		Priorities: priorities,
		Categories: categories,
	}
}
