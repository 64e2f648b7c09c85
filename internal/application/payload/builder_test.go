package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(entity.DateLayout, s)
	require.NoError(t, err)
	return d
}

func sampleTask(t *testing.T) *entity.Task {
	return &entity.Task{
		CoverPageNo:            "OO/2025/17",
		TaskID:                 "task-1",
		ProcessID:              "proc-1",
		ActivitySequenceNumber: 2,
		EmployeeID:             "E100",
		InitiatedBy:            "u-emp",
		AssignedTo:             "u-emp",
		AssignedRole:           entity.RoleInitiator,
		UpdatedBy:              "u-emp",
		Employee:               entity.Employee{Name: "R. Rao", Department: "Finance", Designation: "Officer"},
		Visit: entity.Visit{
			From:          mustDate(t, "2025-01-10"),
			To:            mustDate(t, "2025-01-12"),
			NatureOfVisit: "Conference",
			Country:       "India",
			City:          "Pune",
			ClaimType:     "TA/DA",
		},
		OfficeOrder: entity.OfficeOrder{
			ReferenceNumber: "REF-9",
			Subject:         "Permission cum Relief",
			ReferenceText:   "Application dated 02.01.2025",
			Body: document.Document{Blocks: []document.Block{
				document.Paragraph("Permission is granted to attend the conference."),
				document.List(false, "Travel by air", "Stay at guest house"),
			}},
			Header:           "Government Office",
			Footer:           "Issued with approval",
			SigningAuthority: "Director",
			ToSection:        []string{"Accounts, Wing A", `The "Cash" Section`, "HR"},
			Priority:         "High",
			Remarks:          "Please approve",
		},
		StatusID:    6,
		Status:      entity.StatusSaveAndHold,
		RejectFlag:  entity.RejectFlagNone,
		InitiatedOn: time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC),
		UpdatedOn:   time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuild_AllKeysPresentAndNormalized(t *testing.T) {
	record := Build(&entity.Task{}, workflow.TriggerSave, Actor{UserID: "u1", Role: entity.RoleInitiator})

	for _, key := range Keys {
		v, ok := record[key]
		require.True(t, ok, "missing key %s", key)
		assert.NotNil(t, v, "key %s", key)
	}
	assert.Equal(t, "", record[KeyVisitFrom])
	assert.Equal(t, "", record[KeyToSection])
	assert.Equal(t, "", record[KeyToColumnHTML])
	assert.Equal(t, "", record[KeyOfficeOrderBody])
	assert.Equal(t, 0, record[KeyDuration])
	assert.Equal(t, "u1", record[KeyInitiatedBy])
}

func TestBuild_DerivedFields(t *testing.T) {
	task := sampleTask(t)
	record := Build(task, workflow.TriggerSave, Actor{UserID: "u-emp", Role: entity.RoleInitiator})

	assert.Equal(t, 3, record[KeyDuration])
	assert.Equal(t, "2025-01-10", record[KeyVisitFrom])
	assert.Equal(t, `"Accounts, Wing A","The ""Cash"" Section",HR`, record[KeyToSection])
	assert.Equal(t, `<ol><li>Accounts, Wing A</li><li>The &#34;Cash&#34; Section</li><li>HR</li></ol>`, record[KeyToColumnHTML])
	assert.Contains(t, record[KeyOfficeOrderBody], "<p>Permission is granted to attend the conference.</p>")
}

func TestBuild_Routing(t *testing.T) {
	actor := Actor{UserID: "u-rev", Role: entity.RoleReviewer, ReturnTo: "u-emp"}

	tests := []struct {
		action       workflow.Trigger
		wantAssignTo string
		wantRole     string
		wantReturned bool
		wantApproved bool
		wantReject   int
	}{
		{workflow.TriggerSave, "u-rev", entity.RoleReviewer, false, false, 0},
		{workflow.TriggerSubmit, "", "", false, false, 0},
		{workflow.TriggerApprove, "", "", false, true, 0},
		{workflow.TriggerRejectReturn, "u-emp", "", true, false, 1},
		{workflow.TriggerDelete, "u-rev", entity.RoleReviewer, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			task := sampleTask(t)
			task.IsTaskReturned = true

			record := Build(task, tt.action, actor)

			assert.Equal(t, tt.wantAssignTo, record[KeyAssignTo])
			assert.Equal(t, tt.wantRole, record[KeyAssignedRole])
			assert.Equal(t, tt.wantReturned, record[KeyIsTaskReturned])
			assert.Equal(t, tt.wantApproved, record[KeyIsTaskApproved])
			assert.Equal(t, tt.wantReject, record[KeyRejectFlag])
			assert.Equal(t, "u-rev", record[KeyUpdatedBy])
			assert.True(t, task.IsTaskReturned, "Build must not modify the task")
		})
	}
}

func TestEncode_KeepsStoredRouting(t *testing.T) {
	task := sampleTask(t)
	task.Status = entity.StatusOngoing
	task.AssignedTo = "u-rev"
	task.AssignedRole = entity.RoleReviewer
	task.IsTaskReturned = true
	task.RejectFlag = entity.RejectFlagReturned

	record := Encode(task)

	assert.Equal(t, "u-rev", record[KeyAssignTo])
	assert.Equal(t, entity.RoleReviewer, record[KeyAssignedRole])
	assert.Equal(t, true, record[KeyIsTaskReturned])
	assert.Equal(t, entity.RejectFlagReturned, record[KeyRejectFlag])
	assert.Equal(t, "u-emp", record[KeyUpdatedBy])

	parsed, err := Parse(record)
	require.NoError(t, err)
	assert.Equal(t, task, parsed)
}

func TestBuildParse_RoundTrip(t *testing.T) {
	task := sampleTask(t)

	parsed, err := Parse(Build(task, workflow.TriggerSave, Actor{UserID: "u-emp", Role: entity.RoleInitiator}))

	require.NoError(t, err)
	assert.Equal(t, task, parsed)
}

func TestBuildParse_RoundTripThroughJSON(t *testing.T) {
	task := sampleTask(t)
	record := Build(task, workflow.TriggerSave, Actor{UserID: "u-emp", Role: entity.RoleInitiator})

	raw, err := json.Marshal(record)
	require.NoError(t, err)
	var decoded port.Record
	require.NoError(t, json.Unmarshal(raw, &decoded))

	parsed, err := Parse(decoded)

	require.NoError(t, err)
	assert.Equal(t, task, parsed)
	assert.Equal(t, []string{"Accounts, Wing A", `The "Cash" Section`, "HR"}, parsed.OfficeOrder.ToSection)
}

func TestParse_Lenient(t *testing.T) {
	task, err := Parse(port.Record{
		KeyStatusID:       "9",
		KeyIsTaskApproved: "true",
		KeyToSection:      "Accounts,HR",
		KeyVisitFrom:      "2025-01-10T00:00:00Z",
		"unknownKey":      "ignored",
		KeyRemarks:        nil,
	})

	require.NoError(t, err)
	assert.Equal(t, 9, task.StatusID)
	assert.True(t, task.IsTaskApproved)
	assert.Equal(t, []string{"Accounts", "HR"}, task.OfficeOrder.ToSection)
	assert.Equal(t, mustDate(t, "2025-01-10"), task.Visit.From)
	assert.Empty(t, task.OfficeOrder.Remarks)
}

func TestParse_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		record port.Record
		want   string
	}{
		{"bad status id", port.Record{KeyStatusID: "abc"}, "invalid statusId"},
		{"bad date", port.Record{KeyVisitFrom: "10/01/2025"}, "invalid visitFrom"},
		{"bad flag", port.Record{KeyIsTaskReturned: "maybe"}, "invalid isTaskReturned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.record)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestToSectionJoinSplit(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
	}{
		{"plain", []string{"Accounts", "HR"}},
		{"commas", []string{"Wing A, Floor 2", "Cash"}},
		{"quotes", []string{`"Legal"`, "Admin"}},
		{"leading space", []string{" Stores"}},
		{"newline", []string{"Line one\nLine two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitToSection(JoinToSection(tt.entries))
			require.NoError(t, err)
			assert.Equal(t, tt.entries, got)
		})
	}

	empty, err := SplitToSection("")
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.Equal(t, "", JoinToSection(nil))
}
