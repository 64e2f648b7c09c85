package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/garyjia/office-orders/internal/application/inbox"
	"github.com/garyjia/office-orders/internal/application/lifecycle"
	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/preview"
	"github.com/garyjia/office-orders/internal/application/status"
	"github.com/garyjia/office-orders/internal/application/validation"
	"github.com/garyjia/office-orders/internal/config"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/infrastructure/client"
	"github.com/garyjia/office-orders/internal/infrastructure/export"
	"github.com/garyjia/office-orders/internal/infrastructure/render"
	httpif "github.com/garyjia/office-orders/internal/interfaces/http"
	"github.com/garyjia/office-orders/pkg/crypto"
	"github.com/garyjia/office-orders/pkg/utils"
)

// Options are the persistent flags shared by every subcommand
type Options struct {
	ConfigPath string
	Server     string
	Token      string
	Key        string
	Verbose    bool
}

// app is the workflow core wired against one backend for one session
type app struct {
	session   entity.Session
	backend   *client.RESTClient
	resolver  *status.Resolver
	validator *validation.Validator
	inbox     *inbox.Inbox
	previewer *preview.Previewer
	logger    *utils.KVLogger
	out       io.Writer
}

func newApp(opts *Options, out io.Writer) (*app, error) {
	cfg, err := config.LoadClient(opts.ConfigPath, func(c *config.Config) {
		if opts.Server != "" {
			c.Client.ServerURL = opts.Server
		}
		if opts.Token != "" {
			c.Client.Token = opts.Token
		}
		if opts.Key != "" {
			c.Crypto.EnvelopeSecret = opts.Key
		}
	})
	if err != nil {
		return nil, err
	}

	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	zl, err := utils.NewLogger(utils.LoggerConfig{Level: level, OutputPath: "stderr", Format: "console"})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := utils.NewKVLogger(zl)

	session, err := httpif.ReadSession(cfg.Client.Token)
	if err != nil {
		return nil, err
	}

	codec, err := crypto.NewEnvelope(cfg.Crypto.EnvelopeSecret)
	if err != nil {
		return nil, err
	}

	backend, err := client.NewRESTClient(client.Config{
		BaseURL: cfg.Client.ServerURL,
		Timeout: cfg.Client.Timeout,
	}, session, codec, zl.Named("client"))
	if err != nil {
		return nil, err
	}

	a := &app{
		session:   session,
		backend:   backend,
		resolver:  status.NewResolver(backend, log.Named("status"), status.WithFallbackID(cfg.Workflow.FallbackStatusID)),
		validator: validation.New(cfg.Workflow.ApproverRoles...),
		previewer: preview.NewPreviewer(backend, render.NewRasterizer(cfg.Storage.PreviewDPI, zl.Named("render")), log.Named("preview")),
		logger:    log,
		out:       out,
	}

	a.inbox, err = inbox.NewInbox(backend, session, a.controller, log.Named("inbox"),
		inbox.WithPageSize(cfg.Workflow.PageSize),
		inbox.WithSheetWriter(export.NewSheetWriter(zl.Named("export"))),
	)
	if err != nil {
		return nil, err
	}

	zl.Debug("Session loaded",
		zap.String("user_id", session.UserID),
		zap.String("role", session.Role),
		zap.String("server", cfg.Client.ServerURL))
	return a, nil
}

// controller creates a lifecycle controller for the session
func (a *app) controller() (*lifecycle.Controller, error) {
	return lifecycle.NewController(a.backend, a.resolver, a.validator, a.session, a.logger.Named("lifecycle"))
}

// open creates a controller holding the task with coverPageNo. Without an
// employee id the task's own is taken from the inbox listing, then the session's.
func (a *app) open(ctx context.Context, coverPageNo, employeeID string) (*lifecycle.Controller, *entity.Task, error) {
	if employeeID == "" {
		employeeID = a.employeeOf(ctx, coverPageNo)
	}

	ctrl, err := a.controller()
	if err != nil {
		return nil, nil, err
	}
	task, err := ctrl.Open(ctx, coverPageNo, employeeID)
	if err != nil {
		ctrl.Close()
		return nil, nil, err
	}
	return ctrl, task, nil
}

func (a *app) employeeOf(ctx context.Context, coverPageNo string) string {
	records, err := a.backend.ListTasks(ctx)
	if err != nil {
		a.logger.Error("Inbox lookup failed", "cover_page_no", coverPageNo, "error", err)
		return ""
	}
	for _, r := range records {
		if cast.ToString(r[payload.KeyCoverPageNo]) == coverPageNo {
			return cast.ToString(r[payload.KeyEmployeeID])
		}
	}
	return ""
}

// readTask loads a task from a wire record file in JSON or YAML
func readTask(path string) (*entity.Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	// YAML is a superset of JSON
	record := port.Record{}
	if err := yaml.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode task file %s: %w", filepath.Base(path), err)
	}

	// a list is friendlier to write than the joined wire form
	if entries, ok := record[payload.KeyToSection].([]interface{}); ok {
		record[payload.KeyToSection] = payload.JoinToSection(cast.ToStringSlice(entries))
	}

	task, err := payload.Parse(record)
	if err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", filepath.Base(path), err)
	}
	return task, nil
}

// isTaskFile tells a task file argument apart from a cover page number
func isTaskFile(arg string) bool {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// writeOutput writes data to path, or to the command output when path is "" or "-"
func (a *app) writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := a.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
