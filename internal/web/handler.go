package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"ragqa/internal/domain"
)

type Handler struct {
	service domain.RAGService
	topK    int
}

func NewHandler(service domain.RAGService, topK int) *Handler {
	if topK < 1 {
		topK = 3
	}
	return &Handler{service: service, topK: topK}
}

func (h *Handler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status(c.UserContext()))
}

func (h *Handler) HandleIngest(c *fiber.Ctx) error {
	report, err := h.service.Ingest(c.UserContext(), nil)
	if err != nil {
		return err
	}
	return c.JSON(IngestResponse{IngestReport: report, ElapsedMillis: report.Elapsed.Milliseconds()})
}

func (h *Handler) HandleAsk(c *fiber.Ctx) error {
	var params AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := params.Validate(); len(errs) > 0 {
		return NewValidationError(errs)
	}
	if params.K == 0 {
		params.K = h.topK
	}

	answer, err := h.service.Ask(c.UserContext(), domain.Query{Text: params.Question, K: params.K})
	if err != nil {
		return err
	}
	return c.JSON(AskResponse{Answer: answer, RequestID: requestID(c), Timestamp: time.Now().UTC()})
}

func (h *Handler) HandleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexPage)
}

type IngestResponse struct {
	domain.IngestReport
	ElapsedMillis int64 `json:"elapsed_ms"`
}

type AskResponse struct {
	domain.Answer
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
