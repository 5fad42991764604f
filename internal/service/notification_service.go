package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/incidex/incidex/internal/domain"
	"github.com/incidex/incidex/internal/events"
	"github.com/incidex/incidex/internal/persistence"
	"github.com/incidex/incidex/internal/repository"
)

const unreadCountTTL = 5 * time.Minute

// NotificationService persists notification rows and serves the inbox.
// It implements Notifier for the workflow; pushes are best-effort and
// never fail the calling operation.
type NotificationService struct {
	repo       repository.NotificationRepository
	redis      *persistence.Redis
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(repo repository.NotificationRepository, redis *persistence.Redis, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		redis:      redis,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Push inserts a notification row and invalidates the unread counter.
// Errors are logged and swallowed: a lost notification never rolls back
// the status or assignment change that triggered it.
func (n *NotificationService) Push(ctx context.Context, userID, ticketID int64, kind domain.NotificationKind, message string) {
	notification := &domain.Notification{
		UserID:   userID,
		TicketID: ticketID,
		Kind:     kind,
		Message:  message,
	}
	if err := n.repo.Insert(ctx, notification); err != nil {
		n.logger.Warn("notification insert failed",
			zap.Int64("user_id", userID),
			zap.Int64("ticket_id", ticketID),
			zap.Error(err))
		return
	}
	n.invalidateUnread(ctx, userID)
}

// ListForUser returns the user's most recent notifications.
func (n *NotificationService) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	return n.repo.ListByUser(ctx, userID, limit)
}

// UnreadCount serves the inbox badge, cached briefly in Redis.
func (n *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	key := unreadKey(userID)
	if n.redis != nil && n.redis.Client != nil {
		if cached, err := n.redis.Client.Get(ctx, key).Result(); err == nil {
			if count, err := strconv.Atoi(cached); err == nil {
				return count, nil
			}
		}
	}

	count, err := n.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n.redis != nil && n.redis.Client != nil {
		if err := n.redis.Client.Set(ctx, key, count, unreadCountTTL).Err(); err != nil {
			n.logger.Debug("unread count cache set failed", zap.Error(err))
		}
	}
	return count, nil
}

// MarkAllRead flips every unread notification for the user.
func (n *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := n.repo.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	n.invalidateUnread(ctx, userID)
	return nil
}

func (n *NotificationService) invalidateUnread(ctx context.Context, userID int64) {
	if n.redis == nil || n.redis.Client == nil {
		return
	}
	if err := n.redis.Client.Del(ctx, unreadKey(userID)).Err(); err != nil {
		n.logger.Debug("unread count cache invalidation failed", zap.Error(err))
	}
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}
