package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/inbox"
	"github.com/garyjia/office-orders/internal/container"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/entity"
	httpif "github.com/garyjia/office-orders/internal/interfaces/http"
	"github.com/garyjia/office-orders/pkg/database"
)

const (
	jwtSecret      = "jwt-secret"
	envelopeSecret = "envelope-secret"
)

const taskYAML = `
employeeId: E100
employeeName: Asha Rao
department: Research
designation: Scientist
visitFrom: "2025-01-10"
visitTo: "2025-01-12"
natureOfVisit: Conference
country: India
city: Pune
subject: Permission cum Relief
signingAuthority: Director
toSection:
  - Accounts
  - "Travel Cell, Block B"
remarks: Please review
`

var users = []entity.User{
	{UserID: "u-init", EmployeeID: "E100", Name: "Asha Rao", Role: entity.RoleInitiator},
	{UserID: "u-rev", EmployeeID: "E200", Name: "Vikram Iyer", Role: entity.RoleReviewer},
	{UserID: "u-appr", EmployeeID: "E300", Name: "Meera Das", Role: entity.RoleApprover},
}

type cliEnv struct {
	url      string
	tokens   map[string]string
	dir      string
	taskFile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"ENVELOPE_SECRET", "OFFICE_ORDERS_TOKEN", "OFFICE_ORDERS_SERVER"} {
		t.Setenv(key, "")
	}

	cfg := container.DefaultConfig()
	cfg.Database.Path = database.MemoryPath
	cfg.Auth.JWTSecret = jwtSecret
	cfg.Auth.EnvelopeSecret = envelopeSecret
	cfg.Storage.ArchiveFiles = false
	cfg.Workflow.Users = users

	c, err := container.NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(t.Context()))
	t.Cleanup(func() { _ = c.Close() })

	ts := httptest.NewServer(c.Server().Router())
	t.Cleanup(ts.Close)

	env := &cliEnv{url: ts.URL, tokens: map[string]string{}, dir: dir}
	for _, u := range users {
		raw, err := httpif.IssueToken(jwtSecret, entity.Session{UserID: u.UserID, EmployeeID: u.EmployeeID, Role: u.Role}, time.Hour)
		require.NoError(t, err)
		env.tokens[u.UserID] = raw
	}

	env.taskFile = filepath.Join(dir, "task.yaml")
	require.NoError(t, os.WriteFile(env.taskFile, []byte(taskYAML), 0644))
	return env
}

func (e *cliEnv) run(t *testing.T, userID string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", e.url, "--key", envelopeSecret, "--token", e.tokens[userID]}, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func (e *cliEnv) inbox(t *testing.T, userID string) *inbox.Page {
	t.Helper()
	out, err := e.run(t, userID, "list", "--json")
	require.NoError(t, err)
	var page inbox.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	return &page
}

func TestCLI_ApprovalFlow(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "u-init", "submit", env.taskFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Submitted OO/")
	assert.Contains(t, out, "now with u-rev")

	page := env.inbox(t, "u-rev")
	require.Equal(t, 1, page.TotalItems)
	task := page.Tasks[0]
	assert.Equal(t, 3, task.Duration())
	assert.Equal(t, []string{"Accounts", "Travel Cell, Block B"}, task.OfficeOrder.ToSection)
	cover := task.CoverPageNo

	out, err = env.run(t, "u-rev", "show", cover)
	require.NoError(t, err)
	assert.Contains(t, out, "Permission cum Relief")
	assert.Contains(t, out, "3 days")
	assert.Contains(t, out, "Actions:")
	assert.NotContains(t, out, "approve")

	out, err = env.run(t, "u-rev", "submit", cover, "-r", "Recommended")
	require.NoError(t, err)
	assert.Contains(t, out, "now with u-appr")

	_, err = env.run(t, "u-appr", "reject", cover, "-r", "Fix dates")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed, "return-to is required")

	out, err = env.run(t, "u-appr", "returnable", cover)
	require.NoError(t, err)
	assert.Contains(t, out, "u-init")
	assert.Contains(t, out, "u-rev")

	sheet := filepath.Join(env.dir, "inbox.xlsx")
	_, err = env.run(t, "u-appr", "export", "-o", sheet)
	require.NoError(t, err)
	assert.FileExists(t, sheet)

	out, err = env.run(t, "u-appr", "approve", cover, "-r", "Approved")
	require.NoError(t, err)
	assert.Contains(t, out, "Approved "+cover)

	out, err = env.run(t, "u-init", "comments", cover)
	require.NoError(t, err)
	assert.Contains(t, out, "Please review")
	assert.Contains(t, out, "Recommended")
	assert.Contains(t, out, "Approved")

	out, err = env.run(t, "u-appr", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks.")
}

func TestCLI_SaveAndBadge(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "u-init", "save", env.taskFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved OO/")

	page := env.inbox(t, "u-init")
	require.Equal(t, 1, page.TotalItems)
	cover := page.Tasks[0].CoverPageNo

	out, err = env.run(t, "u-init", "badge", "options")
	require.NoError(t, err)
	assert.Contains(t, out, entity.StatusOngoing)

	out, err = env.run(t, "u-init", "badge", "options", cover)
	require.NoError(t, err)
	assert.Contains(t, out, entity.StatusOngoing, "the saved task is complete enough to submit")
	assert.NotContains(t, out, entity.StatusApproved)

	out, err = env.run(t, "u-init", "badge", cover, entity.StatusOngoing)
	require.NoError(t, err)
	assert.Contains(t, out, cover+" is now "+entity.StatusOngoing)
	assert.Contains(t, out, "No tasks.", "the task left the initiator's inbox")

	page = env.inbox(t, "u-rev")
	require.Equal(t, 1, page.TotalItems)
	assert.Equal(t, cover, page.Tasks[0].CoverPageNo)
}

func TestCLI_PreviewTaskFile(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "u-init", "preview", env.taskFile, "--format", "html", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: Permission cum Relief")
	assert.Empty(t, env.inbox(t, "u-init").Tasks, "previewing a file saves nothing")
}

func TestCLI_PreviewSavedTask(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "u-init", "save", env.taskFile)
	require.NoError(t, err)
	cover := env.inbox(t, "u-init").Tasks[0].CoverPageNo

	target := filepath.Join(env.dir, "order.pdf")
	out, err := env.run(t, "u-init", "preview", cover, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)

	pdf, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestCLI_Errors(t *testing.T) {
	env := newCLIEnv(t)

	t.Run("missing token", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewRootCmd(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--server", env.url, "--key", envelopeSecret, "list"})
		assert.ErrorIs(t, cmd.ExecuteContext(t.Context()), apperr.ErrAuthMissing)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := env.run(t, "u-init", "show", "OO/1999/404")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("unreadable task file", func(t *testing.T) {
		_, err := env.run(t, "u-init", "save", filepath.Join(env.dir, "absent.json"))
		assert.Error(t, err)
	})

	t.Run("invalid submit names every missing field", func(t *testing.T) {
		path := filepath.Join(env.dir, "incomplete.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"employeeId":"E100","subject":"Draft only"}`), 0644))

		_, err := env.run(t, "u-init", "submit", path)
		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("To Section"))
		assert.True(t, verr.Has("Signing Authority"))
		assert.True(t, verr.Has("Remarks"))
		assert.True(t, verr.Has("Visit From"))
		assert.Empty(t, env.inbox(t, "u-init").Tasks, "nothing was saved")
	})
}
