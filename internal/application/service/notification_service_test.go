package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/office-orders/internal/application/dispatcher"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/event"
)

type mockMessageSender struct {
	sendMessageFunc     func(ctx context.Context, openID string, content string) error
	sendCardMessageFunc func(ctx context.Context, openID string, cardContent interface{}) error
}

func (m *mockMessageSender) SendMessage(ctx context.Context, openID string, content string) error {
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, openID, content)
	}
	return nil
}

func (m *mockMessageSender) SendCardMessage(ctx context.Context, openID string, cardContent interface{}) error {
	if m.sendCardMessageFunc != nil {
		return m.sendCardMessageFunc(ctx, openID, cardContent)
	}
	return nil
}

func notificationFixture(sender *mockMessageSender) NotificationService {
	tasks := newMemTaskRepo(&entity.Task{
		CoverPageNo: "OO/2026/4",
		TaskID:      "task-4",
		InitiatedBy: "u-init",
		AssignedTo:  "u-rev",
		Employee:    entity.Employee{Name: "Asha Rao"},
		OfficeOrder: entity.OfficeOrder{Subject: "Permission cum Relief"},
	})
	users := &memUserRepo{users: []*entity.User{
		{UserID: "u-init", Role: entity.RoleInitiator, LarkOpenID: "ou-init"},
		{UserID: "u-rev", Role: entity.RoleReviewer, LarkOpenID: "ou-rev"},
		{UserID: "u-appr", Role: entity.RoleApprover},
	}}
	return NewNotificationService(tasks, users, sender, &mockLogger{})
}

func TestNotificationService_HandleTaskEvent(t *testing.T) {
	tests := []struct {
		name       string
		eventType  event.Type
		taskID     string
		wantOpenID string
	}{
		{"submitted goes to assignee", event.TypeTaskSubmitted, "task-4", "ou-rev"},
		{"returned goes to assignee", event.TypeTaskReturned, "task-4", "ou-rev"},
		{"approved goes to initiator", event.TypeTaskApproved, "task-4", "ou-init"},
		{"saved is silent", event.TypeTaskSaved, "task-4", ""},
		{"unknown task is silent", event.TypeTaskSubmitted, "task-missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sentTo string
			var card interface{}
			sender := &mockMessageSender{
				sendCardMessageFunc: func(ctx context.Context, openID string, cardContent interface{}) error {
					sentTo = openID
					card = cardContent
					return nil
				},
			}
			svc := notificationFixture(sender)

			evt := event.NewEvent(tt.eventType, tt.taskID, map[string]interface{}{
				event.KeyActorUserID: "u-init",
				event.KeyRemarks:     "Please review",
			})
			if err := svc.HandleTaskEvent(context.Background(), evt); err != nil {
				t.Fatalf("HandleTaskEvent() error = %v", err)
			}

			if sentTo != tt.wantOpenID {
				t.Errorf("sent to %q, want %q", sentTo, tt.wantOpenID)
			}
			if tt.wantOpenID != "" && card == nil {
				t.Errorf("expected a card")
			}
		})
	}
}

func TestNotificationService_SkipsUsersWithoutOpenID(t *testing.T) {
	called := false
	sender := &mockMessageSender{
		sendCardMessageFunc: func(ctx context.Context, openID string, cardContent interface{}) error {
			called = true
			return nil
		},
	}
	tasks := newMemTaskRepo(&entity.Task{CoverPageNo: "OO/2026/5", TaskID: "task-5", AssignedTo: "u-appr"})
	users := &memUserRepo{users: []*entity.User{{UserID: "u-appr"}}}
	svc := NewNotificationService(tasks, users, sender, &mockLogger{})

	err := svc.HandleTaskEvent(context.Background(), event.NewEvent(event.TypeTaskSubmitted, "task-5", nil))
	if err != nil {
		t.Fatalf("HandleTaskEvent() error = %v", err)
	}
	if called {
		t.Error("message sent to a user without open_id")
	}
}

func TestNotificationService_SendFailure(t *testing.T) {
	sender := &mockMessageSender{
		sendCardMessageFunc: func(ctx context.Context, openID string, cardContent interface{}) error {
			return errors.New("lark unavailable")
		},
	}
	svc := notificationFixture(sender)

	err := svc.HandleTaskEvent(context.Background(), event.NewEvent(event.TypeTaskSubmitted, "task-4", nil))
	if err == nil {
		t.Error("HandleTaskEvent() expected error")
	}
}

func TestNotificationService_Register(t *testing.T) {
	d := dispatcher.NewDispatcher()
	defer d.Close()

	notificationFixture(&mockMessageSender{}).Register(d)

	for _, et := range []event.Type{event.TypeTaskSubmitted, event.TypeTaskReturned, event.TypeTaskApproved} {
		handlers := d.ListHandlers(et)
		if len(handlers) != 1 || handlers[0].Name != "lark-notifier" {
			t.Errorf("handlers for %s = %+v", et, handlers)
		}
	}
	if len(d.ListHandlers(event.TypeTaskSaved)) != 0 {
		t.Error("notifier should not handle task.saved")
	}
}

func TestBuildCard(t *testing.T) {
	card := buildCard("Task OO/2026/1 was approved", "body", event.TypeTaskApproved)

	header := card["header"].(map[string]interface{})
	if header["template"] != "green" {
		t.Errorf("template = %v, want green", header["template"])
	}
	title := header["title"].(map[string]interface{})
	if title["content"] != "Task OO/2026/1 was approved" {
		t.Errorf("title = %v", title["content"])
	}
}
