package controllers

import (
	"context"
	"errors"
	"sort"

	"github.com/angelsbailbonds/opsflow/pkg/clients/clickup"
	"github.com/angelsbailbonds/opsflow/pkg/session"
	"github.com/angelsbailbonds/opsflow/pkg/tasks"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

const ClickUpEventTaskCreated = "taskCreated"

type TaskDeduper interface {
	DedupeTask(ctx context.Context, taskID string, dryRun bool) (*tasks.Report, error)
}

type SessionLogger interface {
	Log(ctx context.Context, progress *session.Progress) (*clickup.CommentResponse, error)
}

type ClickUpEvent struct {
	Event     string `json:"event"`
	TaskID    string `json:"task_id"`
	WebhookID string `json:"webhook_id"`
}

type WebhookResponse struct {
	Status     string   `json:"status"`
	Deleted    []string `json:"deleted,omitempty"`
	Failed     []string `json:"failed,omitempty"`
	CommentID  any      `json:"comment_id,omitempty"`
	Duplicates int      `json:"duplicates,omitempty"`
}

// WebhookController receives ClickUp webhook deliveries and session progress
// posted by `opsflow log-session --server`.
type WebhookController struct {
	deduper       TaskDeduper
	sessionLogger SessionLogger
	dryRun        bool
}

type WebhookControllerDependencies struct {
	Deduper       TaskDeduper
	SessionLogger SessionLogger
	DryRun        bool
}

func NewWebhookController(deps WebhookControllerDependencies) *WebhookController {
	return &WebhookController{
		deduper:       deps.Deduper,
		sessionLogger: deps.SessionLogger,
		dryRun:        deps.DryRun,
	}
}

// HandleClickUpEvent runs the duplicate check for created tasks. Other events
// are acknowledged and ignored so ClickUp does not retry them.
func (c *WebhookController) HandleClickUpEvent(ctx fiber.Ctx) error {
	var event ClickUpEvent

	if err := ctx.Bind().Body(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if event.Event != ClickUpEventTaskCreated || event.TaskID == "" {
		log.Debug().Str("event", event.Event).Msg("Ignoring ClickUp event")
		return ctx.JSON(WebhookResponse{Status: "ignored"})
	}

	if c.deduper == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Duplicate check is not configured")
	}

	report, err := c.deduper.DedupeTask(ctx.RequestCtx(), event.TaskID, c.dryRun)
	if err != nil {
		if clickup.IsNotFoundError(err) {
			log.Warn().Str("task_id", event.TaskID).Msg("Task from webhook no longer exists")
			return ctx.JSON(WebhookResponse{Status: "ignored"})
		}

		log.Error().Err(err).Str("task_id", event.TaskID).Msg("Failed to check task for duplicates")
		return fiber.NewError(fiber.StatusBadGateway, "Failed to check task for duplicates")
	}

	response := WebhookResponse{Status: "ok", Deleted: report.Deleted}
	for _, group := range report.Groups {
		response.Duplicates += len(group.Duplicates)
	}
	for taskID := range report.Failed {
		response.Failed = append(response.Failed, taskID)
	}

	// A failed deletion answers 502 so ClickUp redelivers; the rerun only
	// sees the duplicates that are still there.
	if len(response.Failed) > 0 {
		sort.Strings(response.Failed)
		response.Status = "partial"
		log.Warn().Str("task_id", event.TaskID).Strs("failed", response.Failed).Msg("Some duplicates could not be deleted")
		return ctx.Status(fiber.StatusBadGateway).JSON(response)
	}

	return ctx.JSON(response)
}

func (c *WebhookController) HandleSessionProgress(ctx fiber.Ctx) error {
	if c.sessionLogger == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Session logging is not configured")
	}

	progress, err := session.Parse(ctx.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	resp, err := c.sessionLogger.Log(ctx.RequestCtx(), progress)
	if err != nil {
		if errors.Is(err, session.ErrNoTask) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}

		log.Error().Err(err).Msg("Failed to log session progress")
		return fiber.NewError(fiber.StatusBadGateway, "Failed to log session progress")
	}

	return ctx.Status(fiber.StatusCreated).JSON(WebhookResponse{Status: "ok", CommentID: resp.ID})
}
