package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidex/incidex/internal/domain"
	"github.com/incidex/incidex/internal/events"
	"github.com/incidex/incidex/internal/repository"
	apperrors "github.com/incidex/incidex/pkg/util"
)

// Status ids mirror the seeded catalog order.
const (
	stNuevo      int64 = 1
	stAsignado   int64 = 2
	stEnProgreso int64 = 3
	stRechazado  int64 = 4
	stResuelto   int64 = 5
	stCerrado    int64 = 6
)

var statusNames = map[int64]string{
	stNuevo:      "NUEVO",
	stAsignado:   "ASIGNADO",
	stEnProgreso: "EN_PROGRESO",
	stRechazado:  "RECHAZADO",
	stResuelto:   "RESUELTO",
	stCerrado:    "CERRADO",
}

type fakeTicket struct {
	ref        domain.TicketRef
	resolvedAt *time.Time
	closedAt   *time.Time
}

type historyRecord struct {
	ticketID     int64
	actorID      int64
	fromStatusID *int64
	toStatusID   int64
	note         *string
}

type fakeTicketRepo struct {
	tickets    map[int64]*fakeTicket
	history    []historyRecord
	nextID     int64
	lastFilter repository.TicketFilter
	listRows   []domain.TicketRow
	listTotal  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]*fakeTicket{}, nextID: 1}
}

func (f *fakeTicketRepo) add(t domain.TicketRef) *fakeTicket {
	ticket := &fakeTicket{ref: t}
	f.tickets[t.ID] = ticket
	if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	return ticket
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = f.nextID
	f.nextID++
	ticket.StatusID = stNuevo
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	f.tickets[ticket.ID] = &fakeTicket{ref: domain.TicketRef{
		ID:           ticket.ID,
		Code:         ticket.Code,
		RequesterID:  ticket.RequesterID,
		AssigneeID:   ticket.AssigneeID,
		DepartmentID: ticket.DepartmentID,
		StatusID:     ticket.StatusID,
	}}
	return nil
}

func (f *fakeTicketRepo) NextCode(_ context.Context) (string, error) {
	var max int64
	for id := range f.tickets {
		if id > max {
			max = id
		}
	}
	return fmt.Sprintf("INC-%05d", max+1), nil
}

func (f *fakeTicketRepo) GetMinimal(_ context.Context, id int64) (*domain.TicketRef, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ref := ticket.ref
	return &ref, nil
}

func (f *fakeTicketRepo) GetDetail(_ context.Context, id int64) (*domain.TicketDetail, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.TicketDetail{
		Ticket: domain.Ticket{
			ID:           ticket.ref.ID,
			Code:         ticket.ref.Code,
			RequesterID:  ticket.ref.RequesterID,
			AssigneeID:   ticket.ref.AssigneeID,
			DepartmentID: ticket.ref.DepartmentID,
			StatusID:     ticket.ref.StatusID,
		},
		StatusName: statusNames[ticket.ref.StatusID],
	}, nil
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.TicketRow, error) {
	f.lastFilter = filter
	return f.listRows, nil
}

func (f *fakeTicketRepo) CountWithFilter(_ context.Context, filter repository.TicketFilter) (int, error) {
	f.lastFilter = filter
	return f.listTotal, nil
}

func (f *fakeTicketRepo) UpdateStatusWithHistory(_ context.Context, ticketID, toStatusID, actorID int64, note *string, markResolved, markClosed bool) error {
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	from := ticket.ref.StatusID
	ticket.ref.StatusID = toStatusID
	now := time.Now()
	if markResolved && ticket.resolvedAt == nil {
		ticket.resolvedAt = &now
	}
	if markClosed && ticket.closedAt == nil {
		ticket.closedAt = &now
	}
	f.history = append(f.history, historyRecord{
		ticketID:     ticketID,
		actorID:      actorID,
		fromStatusID: &from,
		toStatusID:   toStatusID,
		note:         note,
	})
	return nil
}

func (f *fakeTicketRepo) UpdateAssigneeWithHistory(_ context.Context, ticketID int64, newAssigneeID *int64, actorID int64, note string) error {
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.ref.AssigneeID = newAssigneeID
	current := ticket.ref.StatusID
	f.history = append(f.history, historyRecord{
		ticketID:     ticketID,
		actorID:      actorID,
		fromStatusID: &current,
		toStatusID:   current,
		note:         &note,
	})
	return nil
}

func (f *fakeTicketRepo) KPIsForUser(_ context.Context, _ int64) (domain.DashboardKPIs, error) {
	return domain.DashboardKPIs{Open: 2, InProgress: 1, Closed: 3}, nil
}

func (f *fakeTicketRepo) RecentForUser(_ context.Context, _ int64, _ int) ([]domain.TicketRow, error) {
	return f.listRows, nil
}

type fakeCatalogRepo struct{}

func (fakeCatalogRepo) Statuses(context.Context) ([]domain.Status, error) {
	result := make([]domain.Status, 0, len(statusNames))
	for id := int64(1); id <= 6; id++ {
		result = append(result, domain.Status{ID: id, Name: statusNames[id]})
	}
	return result, nil
}

func (fakeCatalogRepo) Priorities(context.Context) ([]domain.Priority, error) {
	return []domain.Priority{{ID: 1, Name: "ALTA"}}, nil
}

func (fakeCatalogRepo) Categories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Hardware"}}, nil
}

func (fakeCatalogRepo) Departments(context.Context) ([]domain.Department, error) {
	return []domain.Department{{ID: 1, Name: "TI"}}, nil
}

func (fakeCatalogRepo) StatusNameByID(_ context.Context, id int64) (string, error) {
	name, ok := statusNames[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return name, nil
}

func (fakeCatalogRepo) StatusIDByName(_ context.Context, name string) (int64, error) {
	for id, candidate := range statusNames {
		if candidate == name {
			return id, nil
		}
	}
	return 0, pgx.ErrNoRows
}

func (fakeCatalogRepo) CreateDepartment(context.Context, string) (*domain.Department, error) {
	return nil, nil
}

func (fakeCatalogRepo) DeleteDepartment(context.Context, int64) error { return nil }

func (fakeCatalogRepo) CreateCategory(context.Context, string, *string) (*domain.Category, error) {
	return nil, nil
}

func (fakeCatalogRepo) DeleteCategory(context.Context, int64) error { return nil }

type fakeUser struct {
	name string
	dept *int64
}

type fakeUserRepo struct {
	users     map[int64]fakeUser
	leastBusy map[int64]*domain.AnalystLoad
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]fakeUser{}, leastBusy: map[int64]*domain.AnalystLoad{}}
}

func (f *fakeUserRepo) Create(context.Context, *domain.User, []int64) error { return nil }

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if _, ok := f.users[id]; !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.User{ID: id, IsActive: true}, nil
}

func (f *fakeUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) Deactivate(context.Context, int64) error { return nil }

func (f *fakeUserRepo) DepartmentID(_ context.Context, userID int64) (*int64, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user.dept, nil
}

func (f *fakeUserRepo) FullName(_ context.Context, userID int64) (string, error) {
	user, ok := f.users[userID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return user.name, nil
}

func (f *fakeUserRepo) LeastBusyAnalystByDepartment(_ context.Context, departmentID int64) (*domain.AnalystLoad, error) {
	return f.leastBusy[departmentID], nil
}

func (f *fakeUserRepo) AnalystsByDepartmentWithLoad(context.Context) (map[int64][]domain.AnalystLoad, error) {
	return map[int64][]domain.AnalystLoad{}, nil
}

type fakeHistoryRepo struct {
	rows []domain.TicketHistoryRow
}

func (f *fakeHistoryRepo) ListByTicket(context.Context, int64) ([]domain.TicketHistoryRow, error) {
	return f.rows, nil
}

type fakeCommentRepo struct {
	comments []domain.TicketComment
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	comment.ID = int64(len(f.comments) + 1)
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByTicket(context.Context, int64) ([]domain.TicketComment, error) {
	return f.comments, nil
}

type fakeAttachmentRepo struct {
	attachments []domain.TicketAttachment
}

func (f *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.TicketAttachment) error {
	attachment.ID = int64(len(f.attachments) + 1)
	attachment.CreatedAt = time.Now()
	f.attachments = append(f.attachments, *attachment)
	return nil
}

func (f *fakeAttachmentRepo) ListByTicket(context.Context, int64) ([]domain.TicketAttachment, error) {
	return f.attachments, nil
}

type pushedNotification struct {
	userID   int64
	ticketID int64
	kind     domain.NotificationKind
	message  string
}

type fakeNotifier struct {
	pushed []pushedNotification
}

func (f *fakeNotifier) Push(_ context.Context, userID, ticketID int64, kind domain.NotificationKind, message string) {
	f.pushed = append(f.pushed, pushedNotification{userID, ticketID, kind, message})
}

type testEnv struct {
	svc      *WorkflowService
	tickets  *fakeTicketRepo
	users    *fakeUserRepo
	notifier *fakeNotifier
	events   *[]events.Event
}

func newTestEnv() *testEnv {
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo()
	notifier := &fakeNotifier{}
	dispatcher := events.NewInMemoryDispatcher()

	var published []events.Event
	record := func(_ context.Context, event events.Event) error {
		published = append(published, event)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketCreated, record)
	dispatcher.Subscribe(events.EventStatusChanged, record)
	dispatcher.Subscribe(events.EventTicketReassigned, record)
	dispatcher.Subscribe(events.EventCommentAdded, record)

	svc := NewWorkflowService(WorkflowDependencies{
		TicketRepo:     tickets,
		CatalogRepo:    fakeCatalogRepo{},
		UserRepo:       users,
		HistoryRepo:    &fakeHistoryRepo{},
		CommentRepo:    &fakeCommentRepo{},
		AttachmentRepo: &fakeAttachmentRepo{},
		Notifier:       notifier,
		Dispatcher:     dispatcher,
	})
	return &testEnv{svc: svc, tickets: tickets, users: users, notifier: notifier, events: &published}
}

func ptr(v int64) *int64 { return &v }

func roles(names ...string) domain.RoleSet { return domain.NewRoleSet(names) }

func TestStatusChangeDecisionTable(t *testing.T) {
	targets := []string{"NUEVO", "ASIGNADO", "EN_PROGRESO", "RECHAZADO", "RESUELTO", "CERRADO"}

	analystAllowed := map[string]bool{
		"ASIGNADO": true, "EN_PROGRESO": true, "RECHAZADO": true, "CERRADO": true,
	}
	for _, target := range targets {
		assert.True(t, statusChangeAllowed(roles("ADMIN"), false, target), "admin to %s", target)
		assert.Equal(t, analystAllowed[target], statusChangeAllowed(roles("ANALYST"), false, target), "analyst to %s", target)
		assert.Equal(t, target == "RESUELTO", statusChangeAllowed(roles("REQUESTER"), false, target), "requester to %s", target)
		assert.Equal(t, target == "EN_PROGRESO", statusChangeAllowed(roles(), true, target), "assignee to %s", target)
		assert.False(t, statusChangeAllowed(roles(), false, target), "no-role to %s", target)
	}

	// combined roles take the union of their grants
	assert.True(t, statusChangeAllowed(roles("ANALYST", "REQUESTER"), false, "RESUELTO"))
	assert.True(t, statusChangeAllowed(roles("analyst"), false, "CERRADO"), "role names match case-insensitively")
}

func TestChangeStatusSameStatusIsNoOp(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})

	// no permission at all, yet requesting the current status short-circuits
	err := env.svc.ChangeStatus(context.Background(), 1, 99, roles(), stNuevo, nil)
	require.NoError(t, err)
	assert.Empty(t, env.tickets.history)
	assert.Empty(t, env.notifier.pushed)
	assert.Empty(t, *env.events)
}

func TestChangeStatusUnknownTicket(t *testing.T) {
	env := newTestEnv()
	err := env.svc.ChangeStatus(context.Background(), 42, 1, roles("ADMIN"), stCerrado, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestChangeStatusUnknownTargetStatus(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})

	err := env.svc.ChangeStatus(context.Background(), 1, 1, roles("ADMIN"), 999, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestChangeStatusForbidden(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})

	err := env.svc.ChangeStatus(context.Background(), 1, 10, roles("REQUESTER"), stCerrado, nil)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
	assert.Equal(t, "No tienes permiso para cambiar a este estado", domainErr.Message)
	assert.Empty(t, env.tickets.history, "denied transitions leave no trace")
}

func TestRequesterCannotReopenResolvedTicket(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stResuelto})

	err := env.svc.ChangeStatus(context.Background(), 1, 10, roles("REQUESTER"), stEnProgreso, nil)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestAdminMayMoveToAnyStatus(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stCerrado})

	err := env.svc.ChangeStatus(context.Background(), 1, 1, roles("ADMIN"), stNuevo, nil)
	require.NoError(t, err)
	assert.Equal(t, stNuevo, env.tickets.tickets[1].ref.StatusID)
	require.Len(t, env.tickets.history, 1)
}

func TestChangeStatusResolvedAutoRoutes(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, DepartmentID: ptr(7), StatusID: stEnProgreso})
	env.users.leastBusy[7] = &domain.AnalystLoad{ID: 33, FullName: "Ana Soto", Load: 0}

	err := env.svc.ChangeStatus(context.Background(), 1, 10, roles("REQUESTER"), stResuelto, nil)
	require.NoError(t, err)

	require.Len(t, env.tickets.history, 2, "status row plus auto-route row")
	statusRow, routeRow := env.tickets.history[0], env.tickets.history[1]
	assert.Equal(t, stResuelto, statusRow.toStatusID)
	assert.Equal(t, int64(10), routeRow.actorID, "auto-route attributed to the resolving actor")
	require.NotNil(t, routeRow.note)
	assert.Equal(t, "Asignado automáticamente al analista con menor carga", *routeRow.note)
	assert.Equal(t, ptr(33), env.tickets.tickets[1].ref.AssigneeID)

	// auto-routing is silent toward the analyst; only the requester hears
	require.Len(t, env.notifier.pushed, 1)
	push := env.notifier.pushed[0]
	assert.Equal(t, int64(10), push.userID)
	assert.Equal(t, domain.NotificationResolved, push.kind)
	assert.Equal(t, "Tu ticket INC-00001 ha sido resuelto", push.message)
}

func TestChangeStatusResolvedWithoutAnalysts(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, DepartmentID: ptr(7), StatusID: stEnProgreso})

	err := env.svc.ChangeStatus(context.Background(), 1, 1, roles("ADMIN"), stResuelto, nil)
	require.NoError(t, err)
	assert.Len(t, env.tickets.history, 1, "no candidates, no auto-route row")
	assert.Nil(t, env.tickets.tickets[1].ref.AssigneeID)
	require.Len(t, env.notifier.pushed, 1)
}

func TestChangeStatusResolvedWithoutDepartment(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stEnProgreso})

	err := env.svc.ChangeStatus(context.Background(), 1, 1, roles("ADMIN"), stResuelto, nil)
	require.NoError(t, err)
	assert.Len(t, env.tickets.history, 1)
}

func TestChangeStatusClosedNotifiesRequester(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00002", RequesterID: 10, StatusID: stResuelto})

	err := env.svc.ChangeStatus(context.Background(), 1, 5, roles("ANALYST"), stCerrado, nil)
	require.NoError(t, err)
	require.Len(t, env.notifier.pushed, 1)
	assert.Equal(t, domain.NotificationClosed, env.notifier.pushed[0].kind)
	assert.Equal(t, "Tu ticket INC-00002 ha sido cerrado", env.notifier.pushed[0].message)
}

func TestResolvedTimestampStampsOnce(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stEnProgreso})
	admin := roles("ADMIN")
	ctx := context.Background()

	require.NoError(t, env.svc.ChangeStatus(ctx, 1, 1, admin, stResuelto, nil))
	first := env.tickets.tickets[1].resolvedAt
	require.NotNil(t, first)

	require.NoError(t, env.svc.ChangeStatus(ctx, 1, 1, admin, stEnProgreso, nil))
	require.NoError(t, env.svc.ChangeStatus(ctx, 1, 1, admin, stResuelto, nil))
	assert.Equal(t, first, env.tickets.tickets[1].resolvedAt, "second resolution keeps the original stamp")
}

func TestChangeStatusEmitsEvent(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})

	require.NoError(t, env.svc.ChangeStatus(context.Background(), 1, 1, roles("ADMIN"), stAsignado, nil))
	require.Len(t, *env.events, 1)
	event := (*env.events)[0]
	assert.Equal(t, events.EventStatusChanged, event.Type)
	assert.Equal(t, "INC-00001", event.TicketCode)
	payload, ok := event.Payload.(events.StatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, "NUEVO", payload.FromStatus)
	assert.Equal(t, "ASIGNADO", payload.ToStatus)
}

func TestReassignAdminAlways(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, AssigneeID: ptr(20), DepartmentID: ptr(7), StatusID: stAsignado})
	env.users.users[20] = fakeUser{name: "Pedro Rojas"}
	env.users.users[30] = fakeUser{name: "Ana Soto"}

	err := env.svc.Reassign(context.Background(), 1, 1, roles("ADMIN"), ptr(30), nil)
	require.NoError(t, err)
	assert.Equal(t, ptr(30), env.tickets.tickets[1].ref.AssigneeID)

	require.Len(t, env.tickets.history, 1)
	require.NotNil(t, env.tickets.history[0].note)
	assert.Equal(t, "Reasignado de Pedro Rojas a Ana Soto", *env.tickets.history[0].note)

	require.Len(t, env.notifier.pushed, 1)
	assert.Equal(t, int64(30), env.notifier.pushed[0].userID)
	assert.Equal(t, domain.NotificationAssigned, env.notifier.pushed[0].kind)
	assert.Equal(t, "Se te ha asignado el ticket INC-00001", env.notifier.pushed[0].message)
}

func TestReassignNoteAppendsCallerText(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})
	env.users.users[30] = fakeUser{name: "Ana Soto"}
	note := "cubre vacaciones"

	require.NoError(t, env.svc.Reassign(context.Background(), 1, 1, roles("ADMIN"), ptr(30), &note))
	require.Len(t, env.tickets.history, 1)
	assert.Equal(t, "Reasignado de sin asignar a Ana Soto. cubre vacaciones", *env.tickets.history[0].note)
}

func TestReassignAnalystSameDepartment(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, DepartmentID: ptr(7), StatusID: stNuevo})
	env.users.users[20] = fakeUser{name: "Pedro Rojas", dept: ptr(7)}
	env.users.users[30] = fakeUser{name: "Ana Soto", dept: ptr(7)}

	err := env.svc.Reassign(context.Background(), 1, 20, roles("ANALYST"), ptr(30), nil)
	require.NoError(t, err)
	assert.Equal(t, ptr(30), env.tickets.tickets[1].ref.AssigneeID)
}

func TestReassignAnalystOtherDepartmentForbidden(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, DepartmentID: ptr(7), StatusID: stNuevo})
	env.users.users[20] = fakeUser{name: "Pedro Rojas", dept: ptr(8)}

	err := env.svc.Reassign(context.Background(), 1, 20, roles("ANALYST"), ptr(30), nil)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
	assert.Equal(t, "No tienes permiso para reasignar este ticket", domainErr.Message)
}

func TestReassignRequesterForbidden(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})

	err := env.svc.Reassign(context.Background(), 1, 10, roles("REQUESTER"), ptr(30), nil)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestReassignSameAssigneeIsNoOp(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, AssigneeID: ptr(20), StatusID: stAsignado})

	err := env.svc.Reassign(context.Background(), 1, 1, roles("ADMIN"), ptr(20), nil)
	require.NoError(t, err)
	assert.Empty(t, env.tickets.history)
	assert.Empty(t, env.notifier.pushed)
}

func TestReassignAdminMayClear(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, AssigneeID: ptr(20), StatusID: stAsignado})
	env.users.users[20] = fakeUser{name: "Pedro Rojas"}

	err := env.svc.Reassign(context.Background(), 1, 1, roles("ADMIN"), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, env.tickets.tickets[1].ref.AssigneeID)
	require.Len(t, env.tickets.history, 1)
	assert.Equal(t, "Reasignado de Pedro Rojas a sin asignar", *env.tickets.history[0].note)
	assert.Empty(t, env.notifier.pushed, "clearing assigns nobody, so nobody is notified")
}

func TestReassignAnalystRequiresTarget(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, AssigneeID: ptr(20), DepartmentID: ptr(7), StatusID: stAsignado})
	env.users.users[25] = fakeUser{name: "Luis Vera", dept: ptr(7)}

	err := env.svc.Reassign(context.Background(), 1, 25, roles("ANALYST"), nil, nil)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateTicketAssignsSequentialCode(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 4, Code: "INC-00004", RequesterID: 1, StatusID: stNuevo})

	ticket, err := env.svc.CreateTicket(context.Background(), CreateTicketInput{
		RequesterID: 10,
		Subject:     "Impresora sin tóner",
		Details:     "La impresora del piso 3 no imprime.",
		PriorityID:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "INC-00005", ticket.Code)
	assert.Equal(t, stNuevo, ticket.StatusID)

	require.Len(t, *env.events, 1)
	assert.Equal(t, events.EventTicketCreated, (*env.events)[0].Type)
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateTicket(context.Background(), CreateTicketInput{RequesterID: 10, Subject: "  ", Details: "x", PriorityID: 1})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = env.svc.CreateTicket(context.Background(), CreateTicketInput{RequesterID: 10, Subject: "x", Details: "y"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestScopedListAdminUnrestricted(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.ScopedList(context.Background(), 1, roles("ADMIN"), ListQuery{})
	require.NoError(t, err)
	scope := env.tickets.lastFilter.Scope
	assert.Nil(t, scope.DepartmentID)
	assert.Nil(t, scope.CreatorID)
	assert.Nil(t, scope.ParticipantID)
}

func TestScopedListAnalystDepartmentOrOwn(t *testing.T) {
	env := newTestEnv()
	env.users.users[20] = fakeUser{name: "Pedro Rojas", dept: ptr(7)}

	_, err := env.svc.ScopedList(context.Background(), 20, roles("ANALYST"), ListQuery{})
	require.NoError(t, err)
	scope := env.tickets.lastFilter.Scope
	require.NotNil(t, scope.DepartmentID)
	assert.Equal(t, int64(7), *scope.DepartmentID)
	require.NotNil(t, scope.CreatorID)
	assert.Equal(t, int64(20), *scope.CreatorID)
}

func TestScopedListAnalystWithoutDepartmentSeesNothing(t *testing.T) {
	env := newTestEnv()
	env.users.users[20] = fakeUser{name: "Pedro Rojas"}
	env.tickets.listTotal = 99

	page, err := env.svc.ScopedList(context.Background(), 20, roles("ANALYST"), ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestScopedListDefaultParticipantScope(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.ScopedList(context.Background(), 10, roles("REQUESTER"), ListQuery{})
	require.NoError(t, err)
	scope := env.tickets.lastFilter.Scope
	require.NotNil(t, scope.ParticipantID)
	assert.Equal(t, int64(10), *scope.ParticipantID)
}

func TestScopedListPaginationNormalization(t *testing.T) {
	env := newTestEnv()
	env.tickets.listTotal = 25

	page, err := env.svc.ScopedList(context.Background(), 1, roles("ADMIN"), ListQuery{Page: 0, PerPage: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 0, env.tickets.lastFilter.Offset)

	page, err = env.svc.ScopedList(context.Background(), 1, roles("ADMIN"), ListQuery{Page: 3, PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PerPage, "per-page capped")
	assert.Equal(t, 200, env.tickets.lastFilter.Offset)
}

func TestDetailMissingTicketReturnsNil(t *testing.T) {
	env := newTestEnv()
	bundle, err := env.svc.Detail(context.Background(), 42, 1, roles("ADMIN"))
	require.NoError(t, err)
	assert.Nil(t, bundle)
}

func TestDetailCanAct(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, AssigneeID: ptr(20), DepartmentID: ptr(7), StatusID: stAsignado})
	env.users.users[20] = fakeUser{name: "Pedro Rojas", dept: ptr(8)}
	env.users.users[30] = fakeUser{name: "Ana Soto", dept: ptr(7)}
	env.users.users[40] = fakeUser{name: "Luis Vera", dept: ptr(8)}
	ctx := context.Background()

	adminBundle, err := env.svc.Detail(ctx, 1, 99, roles("ADMIN"))
	require.NoError(t, err)
	assert.True(t, adminBundle.CanAct)

	// assignee can act even from another department
	assigneeBundle, err := env.svc.Detail(ctx, 1, 20, roles("ANALYST"))
	require.NoError(t, err)
	assert.True(t, assigneeBundle.CanAct)

	sameDeptBundle, err := env.svc.Detail(ctx, 1, 30, roles("ANALYST"))
	require.NoError(t, err)
	assert.True(t, sameDeptBundle.CanAct)

	otherDeptBundle, err := env.svc.Detail(ctx, 1, 40, roles("ANALYST"))
	require.NoError(t, err)
	assert.False(t, otherDeptBundle.CanAct)

	requesterBundle, err := env.svc.Detail(ctx, 1, 10, roles("REQUESTER"))
	require.NoError(t, err)
	assert.False(t, requesterBundle.CanAct)
}

func TestAddCommentValidation(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})

	_, err := env.svc.AddComment(context.Background(), 1, 10, "   ")
	require.Error(t, err)
	assert.Equal(t, "el comentario no puede estar vacío", apperrors.ToDomainError(err).Message)

	comment, err := env.svc.AddComment(context.Background(), 1, 10, "sigue fallando")
	require.NoError(t, err)
	assert.Equal(t, "sigue fallando", comment.Body)
}

func TestAddAttachmentValidation(t *testing.T) {
	env := newTestEnv()
	env.tickets.add(domain.TicketRef{ID: 1, Code: "INC-00001", RequesterID: 10, StatusID: stNuevo})

	_, err := env.svc.AddAttachment(context.Background(), 1, 10, AttachmentInput{FileName: "a.png"})
	require.Error(t, err)
	assert.Equal(t, "se requiere el archivo adjunto", apperrors.ToDomainError(err).Message)

	attachment, err := env.svc.AddAttachment(context.Background(), 1, 10, AttachmentInput{
		FileName: "pantallazo.png",
		MimeType: "image/png",
		FilePath: "uploads/pantallazo.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "pantallazo.png", attachment.FileName)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 2, totalPages(11, 10))
	assert.Equal(t, 3, totalPages(25, 10))
}
