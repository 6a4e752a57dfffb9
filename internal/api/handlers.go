package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tutordesk/tutordesk-agent/internal/engine"
	"github.com/tutordesk/tutordesk-agent/internal/health"
	"github.com/tutordesk/tutordesk-agent/internal/notify"
	"github.com/tutordesk/tutordesk-agent/internal/session"
	"github.com/tutordesk/tutordesk-agent/internal/store"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine     *engine.Engine
	sessions   *session.Store
	dispatcher *notify.Dispatcher
	records    *store.Store
	checker    *health.Checker
	logger     zerolog.Logger
	startTime  time.Time
}

// NewHandlers creates a new Handlers instance. records may be nil.
func NewHandlers(eng *engine.Engine, sessions *session.Store, dispatcher *notify.Dispatcher, records *store.Store, checker *health.Checker, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine:     eng,
		sessions:   sessions,
		dispatcher: dispatcher,
		records:    records,
		checker:    checker,
		logger:     logger.With().Str("component", "handlers").Logger(),
		startTime:  time.Now(),
	}
}

// PostMessage handles POST /api/v1/messages.
func (h *Handlers) PostMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if strings.TrimSpace(req.UserID) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_user_id", "Bad Request",
			"user_id is required")
	}
	if req.Text == "" && req.ButtonID == "" && req.MediaRef == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"empty_message", "Bad Request",
			"One of text, button_id or media_ref is required")
	}

	reply := h.engine.Transition(engine.Input{
		UserID:   req.UserID,
		Text:     req.Text,
		ButtonID: req.ButtonID,
		MediaRef: req.MediaRef,
	})

	resp := MessageResponse{
		Reply: reply.Text,
		State: string(reply.NextState),
	}
	for _, b := range reply.Buttons {
		resp.Buttons = append(resp.Buttons, ButtonDTO{ID: b.ID, Label: b.Label})
	}
	return c.JSON(resp)
}

// GetSession handles GET /api/v1/sessions/:user_id.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	sess, ok := h.sessions.Lookup(userID)
	if !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"session_not_found", "Not Found",
			"No active session for user: "+userID)
	}

	data := make(map[string]string)
	for _, k := range sess.Data.Keys() {
		if v := sess.Data.GetString(k); v != "" {
			data[k] = v
		}
	}

	return c.JSON(SessionResponse{
		UserID:        sess.UserID,
		State:         string(sess.State),
		Data:          data,
		LastUpdatedAt: sess.LastUpdatedAt.UTC().Format(time.RFC3339),
	})
}

// GetNotification handles GET /api/v1/notifications/:id.
func (h *Handlers) GetNotification(c *fiber.Ctx) error {
	id := c.Params("id")
	task, ok := h.dispatcher.Get(id)
	if !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"notification_not_found", "Not Found",
			"Notification not found: "+id)
	}
	return c.JSON(taskToResponse(task))
}

// ListFailedNotifications handles GET /api/v1/notifications/failed.
func (h *Handlers) ListFailedNotifications(c *fiber.Ctx) error {
	if h.records == nil {
		return c.JSON(FailedNotificationsResponse{Notifications: []NotificationResponse{}})
	}

	limit := c.QueryInt("limit", 50)
	entries, err := h.records.ListFailedNotifications(limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed notification listing")
		return problemResponse(c, fiber.StatusInternalServerError,
			"storage_error", "Internal Server Error",
			"Could not list failed notifications")
	}

	resp := FailedNotificationsResponse{Notifications: []NotificationResponse{}}
	for _, e := range entries {
		n := NotificationResponse{
			ID:        e.ID,
			Target:    e.Target,
			Channel:   e.Channel,
			Status:    e.Status,
			Attempts:  e.Attempts,
			MessageID: e.MessageID,
			LastError: e.LastError,
			CreatedAt: time.UnixMilli(e.CreatedAt).UTC().Format(time.RFC3339),
		}
		if e.FailedAt != 0 {
			n.CompletedAt = time.UnixMilli(e.FailedAt).UTC().Format(time.RFC3339)
		}
		resp.Notifications = append(resp.Notifications, n)
	}
	resp.Total = len(resp.Notifications)
	return c.JSON(resp)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func taskToResponse(t notify.Task) NotificationResponse {
	resp := NotificationResponse{
		ID:        t.ID,
		Target:    t.Target,
		Channel:   t.Channel,
		Status:    string(t.Status),
		Attempts:  t.Attempt,
		MessageID: t.MessageID,
		LastError: t.LastError,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		resp.CompletedAt = t.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
