package service

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/garyjia/office-orders/internal/application/dispatcher"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/event"
)

// NotificationService tells chain members about task movements over Lark
type NotificationService interface {
	// HandleTaskEvent messages whoever has to act on, or learn about, the task
	HandleTaskEvent(ctx context.Context, evt *event.Event) error

	// Register subscribes the service to the events it handles
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	taskRepo      port.TaskRepository
	userRepo      port.UserRepository
	messageSender port.LarkMessageSender
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	taskRepo port.TaskRepository,
	userRepo port.UserRepository,
	messageSender port.LarkMessageSender,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		taskRepo:      taskRepo,
		userRepo:      userRepo,
		messageSender: messageSender,
		logger:        logger,
	}
}

// Register subscribes to submitted, returned and approved tasks
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{event.TypeTaskSubmitted, event.TypeTaskReturned, event.TypeTaskApproved} {
		d.SubscribeNamed(t, "lark-notifier", s.HandleTaskEvent, dispatcher.Describe("Lark message to the next actor"))
	}
}

// HandleTaskEvent sends one message per event. Recipients without a Lark
// open_id are skipped.
func (s *notificationServiceImpl) HandleTaskEvent(ctx context.Context, evt *event.Event) error {
	task, err := s.taskRepo.GetByTaskID(ctx, evt.TaskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		s.logger.Info("Task vanished before notification", "task_id", evt.TaskID)
		return nil
	}

	recipient, title, body := s.compose(evt, task)
	if recipient == "" {
		return nil
	}

	user, err := s.userRepo.GetByUserID(ctx, recipient)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if user == nil || user.LarkOpenID == "" {
		s.logger.Info("Recipient has no Lark open_id, skipping notification",
			"task_id", evt.TaskID,
			"user_id", recipient,
		)
		return nil
	}

	if err := s.messageSender.SendCardMessage(ctx, user.LarkOpenID, buildCard(title, body, evt.Type)); err != nil {
		s.logger.Error("Failed to send notification",
			"error", err,
			"task_id", evt.TaskID,
			"open_id", user.LarkOpenID,
		)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("Notification sent successfully",
		"event_type", evt.Type,
		"cover_page_no", task.CoverPageNo,
		"user_id", recipient,
	)
	return nil
}

// compose picks the recipient and message for an event
func (s *notificationServiceImpl) compose(evt *event.Event, task *entity.Task) (recipient, title, body string) {
	actor := cast.ToString(evt.Payload[event.KeyActorUserID])
	remarks := cast.ToString(evt.Payload[event.KeyRemarks])
	subject := task.OfficeOrder.Subject
	if subject == "" {
		subject = "Office Order"
	}

	switch evt.Type {
	case event.TypeTaskSubmitted:
		return task.AssignedTo,
			fmt.Sprintf("Task %s awaits your action", task.CoverPageNo),
			fmt.Sprintf("**%s**\nEmployee: %s\nSent by: %s\nRemarks: %s", subject, task.Employee.Name, actor, remarks)
	case event.TypeTaskReturned:
		return task.AssignedTo,
			fmt.Sprintf("Task %s was returned to you", task.CoverPageNo),
			fmt.Sprintf("**%s**\nReturned by: %s\nReason: %s", subject, actor, remarks)
	case event.TypeTaskApproved:
		return task.InitiatedBy,
			fmt.Sprintf("Task %s was approved", task.CoverPageNo),
			fmt.Sprintf("**%s**\nApproved by: %s\nThe Office Order has been issued.", subject, actor)
	default:
		return "", "", ""
	}
}

// buildCard builds a Lark interactive card
func buildCard(title, body string, eventType event.Type) map[string]interface{} {
	template := "blue"
	switch eventType {
	case event.TypeTaskReturned:
		template = "orange"
	case event.TypeTaskApproved:
		template = "green"
	}

	return map[string]interface{}{
		"config": map[string]interface{}{
			"wide_screen_mode": true,
		},
		"header": map[string]interface{}{
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": title,
			},
			"template": template,
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag": "div",
				"text": map[string]interface{}{
					"tag":     "lark_md",
					"content": body,
				},
			},
		},
	}
}
