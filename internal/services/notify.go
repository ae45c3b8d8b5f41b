package services

import (
	"time"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

// NotificationGateway delivers messages to users. Implementations are
// fire-and-forget: they must never block or fail the operation that
// triggered them.
type NotificationGateway interface {
	Notify(recipientID, kind, message string)
}

// NotificationService persists notifications. Delivery failures are logged
// and swallowed; they never roll back the owning transaction.
type NotificationService struct {
	Repo *repos.NotificationRepo
}

func NewNotificationService(repo *repos.NotificationRepo) *NotificationService {
	return &NotificationService{Repo: repo}
}

func (s *NotificationService) Notify(recipientID, kind, message string) {
	n := &domain.Notification{
		ID:        newID("NTF"),
		Recipient: recipientID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Repo.Insert(n); err != nil {
		applog.Warn("notify.fail", map[string]any{
			"recipient": recipientID, "kind": kind, "err": err.Error(),
		})
	}
}

func (s *NotificationService) List(userID string, limit int) ([]domain.Notification, error) {
	return s.Repo.ListByRecipient(userID, limit)
}

func (s *NotificationService) MarkRead(id, userID string) error {
	return s.Repo.MarkRead(id, userID)
}
