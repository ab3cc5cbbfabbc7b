// Package api exposes the tribunal service over HTTP.
package api

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/veritas-review/tribunal/internal/report"
	"github.com/veritas-review/tribunal/internal/tribunal"
)

type Handler struct {
	Service *tribunal.Service
	Logger  *slog.Logger

	// ReportDir is where exported review reports are written. Empty
	// disables the export endpoint.
	ReportDir string
}

func NewHandler(service *tribunal.Service, logger *slog.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// Register mounts the tribunal routes on the app.
func (h *Handler) Register(app *fiber.App) {
	group := app.Group("/api/tribunal")
	group.Post("/start", h.StartSession)
	group.Post("/:session_id/message", h.SendMessage)
	group.Post("/:session_id/interrupt", h.Interrupt)
	group.Post("/:session_id/request-verdict", h.RequestVerdict)
	group.Get("/:session_id/state", h.GetState)
	group.Get("/:session_id/report", h.GetReport)
	group.Post("/:session_id/export", h.ExportReport)
}

type startSessionRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

func (h *Handler) StartSession(c *fiber.Ctx) error {
	var req startSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	metadata := map[string]string{"source": "interactive"}
	if req.Title != "" {
		metadata["title"] = req.Title
	}

	opened, err := h.Service.CreateSession(c.Context(), req.Text, metadata)
	if err != nil {
		return h.errorResponse(c, err)
	}

	snapshot, err := h.Service.GetState(opened.SessionID)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"session_id":         opened.SessionID,
		"paper_title":        opened.Title,
		"analyses":           snapshot.Severities,
		"opening_statements": opened.Openings,
	})
}

type sendMessageRequest struct {
	Message   string `json:"message"`
	Interrupt bool   `json:"interrupt"`
}

func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	sessionID := c.Params("session_id")
	replies, err := h.Service.ProcessMessage(c.Context(), sessionID, req.Message, req.Interrupt)
	if err != nil {
		return h.errorResponse(c, err)
	}

	addressed := make([]string, 0, len(replies))
	for _, reply := range replies {
		addressed = append(addressed, reply.Name)
	}

	return c.JSON(fiber.Map{
		"responses":         replies,
		"addressed_agents":  addressed,
		"verdict_requested": h.Service.IsVerdictRequest(req.Message),
	})
}

func (h *Handler) Interrupt(c *fiber.Ctx) error {
	speaker, ok, err := h.Service.Interrupt(c.Params("session_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	if !ok {
		return c.JSON(fiber.Map{"status": "no_speaker", "agent": nil})
	}
	return c.JSON(fiber.Map{"status": "interrupted", "agent": string(speaker)})
}

type requestVerdictRequest struct {
	Regenerate bool `json:"regenerate"`
}

func (h *Handler) RequestVerdict(c *fiber.Ctx) error {
	var req requestVerdictRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	sessionID := c.Params("session_id")
	verdict, err := h.Service.GenerateVerdict(c.Context(), sessionID, req.Regenerate)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"verdict":    verdict,
	})
}

func (h *Handler) GetState(c *fiber.Ctx) error {
	snapshot, err := h.Service.GetState(c.Params("session_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(snapshot)
}

func (h *Handler) GetReport(c *fiber.Ctx) error {
	snapshot, err := h.Service.GetState(c.Params("session_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(report.Render(snapshot))
}

// ExportReport writes the review report to disk under ReportDir and
// returns the path.
func (h *Handler) ExportReport(c *fiber.Ctx) error {
	if h.ReportDir == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "report export is not configured"})
	}
	snapshot, err := h.Service.GetState(c.Params("session_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	outPath := filepath.Join(h.ReportDir, snapshot.ID+".md")
	if err := report.Generate(outPath, snapshot); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"session_id": snapshot.ID, "path": outPath})
}

func (h *Handler) errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tribunal.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case tribunal.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("request failed", "path", c.Path(), "error", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
