package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/incidex/incidex/internal/domain"
	"github.com/incidex/incidex/internal/events"
	"github.com/incidex/incidex/internal/repository"
	apperrors "github.com/incidex/incidex/pkg/util"
)

const (
	permDeniedStatus   = "No tienes permiso para cambiar a este estado"
	permDeniedReassign = "No tienes permiso para reasignar este ticket"
	autoRouteNote      = "Asignado automáticamente al analista con menor carga"
	unassignedLabel    = "sin asignar"
)

// Notifier records user-facing notifications. Implementations are
// best-effort; they must never return an error into the workflow.
type Notifier interface {
	Push(ctx context.Context, userID, ticketID int64, kind domain.NotificationKind, message string)
}

// WorkflowService coordinates the ticket state-and-assignment workflow.
type WorkflowService struct {
	tickets     repository.TicketRepository
	catalogs    repository.CatalogRepository
	users       repository.UserRepository
	history     repository.TicketHistoryRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	notifier    Notifier
	dispatcher  events.Dispatcher
}

// WorkflowDependencies bundles repositories for the workflow service.
type WorkflowDependencies struct {
	TicketRepo     repository.TicketRepository
	CatalogRepo    repository.CatalogRepository
	UserRepo       repository.UserRepository
	HistoryRepo    repository.TicketHistoryRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	Notifier       Notifier
	Dispatcher     events.Dispatcher
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		tickets:     deps.TicketRepo,
		catalogs:    deps.CatalogRepo,
		users:       deps.UserRepo,
		history:     deps.HistoryRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		notifier:    deps.Notifier,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	RequesterID  int64
	Subject      string
	Details      string
	CategoryID   *int64
	DepartmentID *int64
	PriorityID   int64
	AssigneeID   *int64
}

// CreateTicket generates the next sequential code and inserts the ticket
// in NUEVO. Any authenticated requester may create; history begins at the
// first transition.
func (s *WorkflowService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	details := strings.TrimSpace(input.Details)
	if subject == "" || details == "" {
		return nil, apperrors.NewValidationError("subject and details are required", nil)
	}
	if input.PriorityID <= 0 {
		return nil, apperrors.NewValidationError("priority is required", nil)
	}

	code, err := s.tickets.NextCode(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Code:         code,
		Title:        subject,
		Description:  details,
		RequesterID:  input.RequesterID,
		DepartmentID: input.DepartmentID,
		CategoryID:   input.CategoryID,
		PriorityID:   input.PriorityID,
	}
	if input.AssigneeID != nil && *input.AssigneeID > 0 {
		ticket.AssigneeID = input.AssigneeID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:        events.EventTicketCreated,
		TicketID:    ticket.ID,
		TicketCode:  ticket.Code,
		ActorUserID: input.RequesterID,
		Payload: events.TicketCreatedPayload{
			Title:        ticket.Title,
			DepartmentID: ticket.DepartmentID,
			PriorityID:   ticket.PriorityID,
		},
	})
	return ticket, nil
}

// ChangeStatus is the central state-transition gate. First matching rule
// wins: ADMIN any target; ANALYST only EN_PROGRESO/ASIGNADO/RECHAZADO/
// CERRADO; REQUESTER role only RESUELTO; the current assignee only
// EN_PROGRESO. Requesting the current status is an idempotent no-op.
func (s *WorkflowService) ChangeStatus(ctx context.Context, ticketID, actorID int64, roles domain.RoleSet, toStatusID int64, note *string) error {
	ref, err := s.tickets.GetMinimal(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return err
	}

	if toStatusID == ref.StatusID {
		return nil
	}

	targetName, err := s.catalogs.StatusNameByID(ctx, toStatusID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("status", map[string]any{"status_id": toStatusID})
		}
		return err
	}
	target := strings.ToUpper(strings.TrimSpace(targetName))

	isAssignee := ref.AssigneeID != nil && *ref.AssigneeID == actorID
	if !statusChangeAllowed(roles, isAssignee, target) {
		return apperrors.NewForbidden(permDeniedStatus)
	}

	fromName, err := s.catalogs.StatusNameByID(ctx, ref.StatusID)
	if err != nil {
		return err
	}

	markResolved := target == domain.StatusResuelto
	markClosed := target == domain.StatusCerrado
	if err := s.tickets.UpdateStatusWithHistory(ctx, ticketID, toStatusID, actorID, note, markResolved, markClosed); err != nil {
		return err
	}

	if markResolved {
		if err := s.autoRoute(ctx, ref, actorID); err != nil {
			return err
		}
	}

	if markResolved || markClosed {
		s.notifyRequester(ctx, ticketID, target)
	}

	s.publish(ctx, events.Event{
		Type:        events.EventStatusChanged,
		TicketID:    ref.ID,
		TicketCode:  ref.Code,
		ActorUserID: actorID,
		Payload: events.StatusChangedPayload{
			FromStatus: fromName,
			ToStatus:   targetName,
			Note:       note,
		},
	})
	return nil
}

func statusChangeAllowed(roles domain.RoleSet, isAssignee bool, target string) bool {
	if roles.IsAdmin() {
		return true
	}
	if roles.IsAnalyst() {
		switch target {
		case domain.StatusEnProgreso, domain.StatusAsignado, domain.StatusRechazado, domain.StatusCerrado:
			return true
		}
	}
	if roles.Has(domain.RoleRequester) && target == domain.StatusResuelto {
		return true
	}
	if isAssignee && target == domain.StatusEnProgreso {
		return true
	}
	return false
}

// autoRoute keeps a resolved ticket owned: pick the least-busy analyst of
// the ticket's department and reassign through the locking write path,
// attributed to the original actor. Produces a second history row.
func (s *WorkflowService) autoRoute(ctx context.Context, ref *domain.TicketRef, actorID int64) error {
	if ref.DepartmentID == nil {
		return nil
	}
	analyst, err := s.users.LeastBusyAnalystByDepartment(ctx, *ref.DepartmentID)
	if err != nil {
		return err
	}
	if analyst == nil {
		return nil
	}
	return s.tickets.UpdateAssigneeWithHistory(ctx, ref.ID, &analyst.ID, actorID, autoRouteNote)
}

// notifyRequester re-reads the ticket after the status write and queues a
// RESOLVED/CLOSED notification for the requester. Best-effort.
func (s *WorkflowService) notifyRequester(ctx context.Context, ticketID int64, target string) {
	ref, err := s.tickets.GetMinimal(ctx, ticketID)
	if err != nil {
		return
	}
	kind := domain.NotificationResolved
	verb := "resuelto"
	if target == domain.StatusCerrado {
		kind = domain.NotificationClosed
		verb = "cerrado"
	}
	message := fmt.Sprintf("Tu ticket %s ha sido %s", ref.Code, verb)
	s.notifier.Push(ctx, ref.RequesterID, ref.ID, kind, message)
}

// Reassign changes the assignee. ADMIN always; otherwise the caller must
// be an ANALYST of the ticket's own department. ADMIN may clear the
// assignment to nil; everyone else must supply a target.
func (s *WorkflowService) Reassign(ctx context.Context, ticketID, actorID int64, roles domain.RoleSet, newAssigneeID *int64, note *string) error {
	ref, err := s.tickets.GetMinimal(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return err
	}

	if !roles.IsAdmin() {
		if !roles.IsAnalyst() {
			return apperrors.NewForbidden(permDeniedReassign)
		}
		actorDept, err := s.users.DepartmentID(ctx, actorID)
		if err != nil {
			return err
		}
		if actorDept == nil || ref.DepartmentID == nil || *actorDept != *ref.DepartmentID {
			return apperrors.NewForbidden(permDeniedReassign)
		}
	}

	if equalID(ref.AssigneeID, newAssigneeID) {
		return nil
	}
	if newAssigneeID == nil && !roles.IsAdmin() {
		return apperrors.NewValidationError("se requiere un nuevo asignado", nil)
	}

	historyNote := fmt.Sprintf("Reasignado de %s a %s",
		s.assigneeLabel(ctx, ref.AssigneeID),
		s.assigneeLabel(ctx, newAssigneeID))
	if note != nil && strings.TrimSpace(*note) != "" {
		historyNote += ". " + strings.TrimSpace(*note)
	}

	if err := s.tickets.UpdateAssigneeWithHistory(ctx, ticketID, newAssigneeID, actorID, historyNote); err != nil {
		return err
	}

	if newAssigneeID != nil {
		message := fmt.Sprintf("Se te ha asignado el ticket %s", ref.Code)
		s.notifier.Push(ctx, *newAssigneeID, ref.ID, domain.NotificationAssigned, message)
	}

	s.publish(ctx, events.Event{
		Type:        events.EventTicketReassigned,
		TicketID:    ref.ID,
		TicketCode:  ref.Code,
		ActorUserID: actorID,
		Payload: events.ReassignedPayload{
			OldAssigneeID: ref.AssigneeID,
			NewAssigneeID: newAssigneeID,
		},
	})
	return nil
}

func (s *WorkflowService) assigneeLabel(ctx context.Context, userID *int64) string {
	if userID == nil {
		return unassignedLabel
	}
	name, err := s.users.FullName(ctx, *userID)
	if err != nil || name == "" {
		return unassignedLabel
	}
	return name
}

// TicketBundle is everything the detail view needs in one load.
type TicketBundle struct {
	Ticket      *domain.TicketDetail
	Comments    []domain.TicketComment
	Attachments []domain.TicketAttachment
	History     []domain.TicketHistoryRow
	CanAct      bool
}

// Detail returns nil when the ticket does not exist. CanAct is a UI
// affordance hint only; the mutating operations re-derive authorization
// on every call.
func (s *WorkflowService) Detail(ctx context.Context, ticketID, viewerID int64, roles domain.RoleSet) (*TicketBundle, error) {
	detail, err := s.tickets.GetDetail(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	canAct := roles.IsAdmin()
	if !canAct && detail.AssigneeID != nil && *detail.AssigneeID == viewerID {
		// assignee override: an assignee outside the ticket's
		// department can still act
		canAct = true
	}
	if !canAct && roles.IsAnalyst() {
		viewerDept, err := s.users.DepartmentID(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		canAct = viewerDept != nil && detail.DepartmentID != nil && *viewerDept == *detail.DepartmentID
	}

	return &TicketBundle{
		Ticket:      detail,
		Comments:    comments,
		Attachments: attachments,
		History:     history,
		CanAct:      canAct,
	}, nil
}

// ListQuery describes scoped-list filters and pagination.
type ListQuery struct {
	Search      string
	StatusID    *int64
	PriorityID  *int64
	CategoryID  *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PerPage     int
}

// TicketPage is a paginated, role-scoped listing plus the catalogs the
// filter controls re-render from.
type TicketPage struct {
	Items      []domain.TicketRow
	Total      int
	Page       int
	PerPage    int
	TotalPages int
	Query      ListQuery
	Catalogs   domain.Catalogs
}

// ScopedList applies role-based visibility before the caller's filters:
// ADMIN sees everything, an ANALYST sees their department's tickets plus
// their own creations (nothing without a department), everyone else sees
// tickets they requested or are assigned to.
func (s *WorkflowService) ScopedList(ctx context.Context, viewerID int64, roles domain.RoleSet, query ListQuery) (*TicketPage, error) {
	query = normalizeQuery(query)

	scope := repository.TicketScope{}
	switch {
	case roles.IsAdmin():
		// unrestricted
	case roles.IsAnalyst():
		dept, err := s.users.DepartmentID(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if dept == nil {
			return s.emptyPage(ctx, query)
		}
		viewer := viewerID
		scope.DepartmentID = dept
		scope.CreatorID = &viewer
	default:
		viewer := viewerID
		scope.ParticipantID = &viewer
	}

	filter := repository.TicketFilter{
		Scope:       scope,
		StatusID:    query.StatusID,
		PriorityID:  query.PriorityID,
		CategoryID:  query.CategoryID,
		CreatedFrom: query.CreatedFrom,
		CreatedTo:   query.CreatedTo,
		Limit:       query.PerPage,
		Offset:      (query.Page - 1) * query.PerPage,
	}
	if query.Search != "" {
		search := query.Search
		filter.Search = &search
	}

	total, err := s.tickets.CountWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	items, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	catalogs, err := s.listCatalogs(ctx)
	if err != nil {
		return nil, err
	}

	return &TicketPage{
		Items:      items,
		Total:      total,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages(total, query.PerPage),
		Query:      query,
		Catalogs:   catalogs,
	}, nil
}

func (s *WorkflowService) emptyPage(ctx context.Context, query ListQuery) (*TicketPage, error) {
	catalogs, err := s.listCatalogs(ctx)
	if err != nil {
		return nil, err
	}
	return &TicketPage{
		Items:      []domain.TicketRow{},
		Total:      0,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: 1,
		Query:      query,
		Catalogs:   catalogs,
	}, nil
}

func (s *WorkflowService) listCatalogs(ctx context.Context) (domain.Catalogs, error) {
	statuses, err := s.catalogs.Statuses(ctx)
	if err != nil {
		return domain.Catalogs{}, err
	}
	priorities, err := s.catalogs.Priorities(ctx)
	if err != nil {
		return domain.Catalogs{}, err
	}
	categories, err := s.catalogs.Categories(ctx)
	if err != nil {
		return domain.Catalogs{}, err
	}
	return domain.Catalogs{
		Statuses:   statuses,
		Priorities: priorities,
		Categories: categories,
	}, nil
}

// AnalystsByDepartment maps each department to its analysts ordered by
// ascending open-ticket load, then name. Supports assignee suggestion in
// the creation form before a ticket exists.
func (s *WorkflowService) AnalystsByDepartment(ctx context.Context) (map[int64][]domain.AnalystLoad, error) {
	return s.users.AnalystsByDepartmentWithLoad(ctx)
}

// Dashboard bundles a user's KPI counters and recent activity.
type Dashboard struct {
	KPIs   domain.DashboardKPIs
	Recent []domain.TicketRow
}

// DashboardForUser aggregates over tickets the user requested or holds.
func (s *WorkflowService) DashboardForUser(ctx context.Context, userID int64) (*Dashboard, error) {
	kpis, err := s.tickets.KPIsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.tickets.RecentForUser(ctx, userID, 10)
	if err != nil {
		return nil, err
	}
	return &Dashboard{KPIs: kpis, Recent: recent}, nil
}

// AddComment appends a free-text comment to an existing ticket.
func (s *WorkflowService) AddComment(ctx context.Context, ticketID, authorID int64, body string) (*domain.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("el comentario no puede estar vacío", nil)
	}
	ref, err := s.tickets.GetMinimal(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	comment := &domain.TicketComment{
		TicketID:     ref.ID,
		AuthorUserID: authorID,
		Body:         body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:        events.EventCommentAdded,
		TicketID:    ref.ID,
		TicketCode:  ref.Code,
		ActorUserID: authorID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			BodyPreview: preview(body, 120),
		},
	})
	return comment, nil
}

// AttachmentInput carries uploaded file metadata; storage is external.
type AttachmentInput struct {
	FileName       string
	MimeType       string
	FilePath       string
	FileSize       *int64
	ChecksumSHA256 *string
}

// AddAttachment registers file metadata against an existing ticket.
func (s *WorkflowService) AddAttachment(ctx context.Context, ticketID, uploaderID int64, input AttachmentInput) (*domain.TicketAttachment, error) {
	if strings.TrimSpace(input.FileName) == "" || strings.TrimSpace(input.FilePath) == "" {
		return nil, apperrors.NewValidationError("se requiere el archivo adjunto", nil)
	}
	ref, err := s.tickets.GetMinimal(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	attachment := &domain.TicketAttachment{
		TicketID:       ref.ID,
		UploaderUserID: uploaderID,
		FileName:       strings.TrimSpace(input.FileName),
		MimeType:       input.MimeType,
		FilePath:       input.FilePath,
		FileSize:       input.FileSize,
		ChecksumSHA256: input.ChecksumSHA256,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func normalizeQuery(query ListQuery) ListQuery {
	query.Search = strings.TrimSpace(query.Search)
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage <= 0 {
		query.PerPage = 10
	}
	if query.PerPage > 100 {
		query.PerPage = 100
	}
	return query
}

func totalPages(total, perPage int) int {
	pages := int(math.Ceil(float64(total) / float64(perPage)))
	if pages < 1 {
		return 1
	}
	return pages
}

func equalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
