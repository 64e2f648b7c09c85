package entity

import "time"

// TaskHistory records one lifecycle transition of a task
type TaskHistory struct {
	ID             int64     `json:"id"`
	TaskID         string    `json:"task_id"`
	ActorUserID    string    `json:"actor_user_id"`
	ActorRole      string    `json:"actor_role"`
	Trigger        string    `json:"trigger"`
	PreviousState  string    `json:"previous_state"`
	NewState       string    `json:"new_state"`
	AssignedTo     string    `json:"assigned_to"`
	SequenceNumber int       `json:"sequence_number"`
	Timestamp      time.Time `json:"timestamp"`
}

// User is a member of the approval chain
type User struct {
	UserID     string `json:"user_id" mapstructure:"user_id"`
	EmployeeID string `json:"employee_id" mapstructure:"employee_id"`
	Name       string `json:"name" mapstructure:"name"`
	Role       string `json:"role" mapstructure:"role"`
	LarkOpenID string `json:"lark_open_id" mapstructure:"lark_open_id"`
}
