package entity

import "time"

// Comment is an append-only audit entry attached to a task
type Comment struct {
	ID        int64     `json:"id,omitempty"`
	TaskID    string    `json:"taskId"`
	ProcessID string    `json:"processId"`
	Commenter string    `json:"commenter"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ReturnableUser is an earlier actor a task may be sent back to
type ReturnableUser struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
