package notification

import (
	"context"
	"fmt"
	"time"

	"go-leave/internal/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notification is one delivered message in a recipient's inbox.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index"`
	RequestID   uuid.UUID  `gorm:"type:uuid;not null"`
	EventType   string     `gorm:"type:varchar(50);not null"`
	Message     string     `gorm:"type:text;not null"`
	CreatedAt   time.Time
	ReadAt      *time.Time
}

func (Notification) TableName() string {
	return "notifications"
}

// Dispatcher fans a lifecycle event out to recipient inboxes.
type Dispatcher interface {
	Deliver(ctx context.Context, event events.LeaveLifecycleEvent) error
}

type dispatcher struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDispatcher(db *gorm.DB, logger ...*zap.Logger) Dispatcher {
	l := zap.L().Named("notification.dispatcher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.dispatcher")
	}
	return &dispatcher{db: db, logger: l}
}

func (d *dispatcher) Deliver(ctx context.Context, event events.LeaveLifecycleEvent) error {
	companyID, err := uuid.Parse(event.CompanyID)
	if err != nil {
		return fmt.Errorf("invalid company id %q: %w", event.CompanyID, err)
	}
	requestID, err := uuid.Parse(event.RequestID)
	if err != nil {
		return fmt.Errorf("invalid request id %q: %w", event.RequestID, err)
	}

	rows := make([]Notification, 0, 2)
	for _, recipient := range recipientsFor(event) {
		id, err := uuid.Parse(recipient)
		if err != nil {
			d.logger.Warn("skipping recipient with invalid id",
				zap.String("recipient_id", recipient),
				zap.String("event_type", event.EventType),
			)
			continue
		}
		rows = append(rows, Notification{
			ID:          uuid.New(),
			CompanyID:   companyID,
			RecipientID: id,
			RequestID:   requestID,
			EventType:   event.EventType,
			Message:     messageFor(event),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Create(&rows).Error
}

// The requester always hears about their own request; the approver is only
// pulled in when something lands on their desk.
func recipientsFor(event events.LeaveLifecycleEvent) []string {
	recipients := []string{event.EmployeeID}
	switch event.EventType {
	case events.LeaveEscalated, events.LeaveSLABreached:
		if event.ApproverID != "" {
			recipients = append(recipients, event.ApproverID)
		}
	}
	return recipients
}

func messageFor(event events.LeaveLifecycleEvent) string {
	period := fmt.Sprintf("%s to %s", event.StartDate, event.EndDate)
	switch event.EventType {
	case events.LeaveAutoApproved:
		return fmt.Sprintf("Your %s request %s (%s) was approved automatically.", event.LeaveType, event.RequestNo, period)
	case events.LeaveApproved:
		return fmt.Sprintf("Your %s request %s (%s) was approved.", event.LeaveType, event.RequestNo, period)
	case events.LeaveRejected:
		if event.Reason != "" {
			return fmt.Sprintf("Your %s request %s (%s) was rejected: %s", event.LeaveType, event.RequestNo, period, event.Reason)
		}
		return fmt.Sprintf("Your %s request %s (%s) was rejected.", event.LeaveType, event.RequestNo, period)
	case events.LeaveEscalated:
		return fmt.Sprintf("Leave request %s (%s, %s) is waiting for approval.", event.RequestNo, event.LeaveType, period)
	case events.LeaveSLABreached:
		return fmt.Sprintf("Leave request %s (%s, %s) missed its approval deadline and was escalated.", event.RequestNo, event.LeaveType, period)
	case events.LeaveCancelled:
		return fmt.Sprintf("Leave request %s (%s, %s) was cancelled.", event.RequestNo, event.LeaveType, period)
	default:
		return fmt.Sprintf("Leave request %s changed to %s.", event.RequestNo, event.Status)
	}
}
