package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/api/dto"
	"github.com/geethasandesh/articket/internal/auth"
	"github.com/geethasandesh/articket/internal/events"
	"github.com/geethasandesh/articket/internal/service"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

// streamKeepalive is how often an idle stream writes an SSE comment. The
// write fails once the client is gone, which is the only disconnect signal
// the stream writer gets, so without it an idle subscription would leak.
const streamKeepalive = 15 * time.Second

// StreamHandler serves the live ticket event stream over SSE. Each stream
// opens with the caller's current matching snapshot and continues with
// committed mutations.
type StreamHandler struct {
	service *service.TicketService
	logger  *zap.Logger
}

// NewStreamHandler constructs handler.
func NewStreamHandler(ticketService *service.TicketService, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{service: ticketService, logger: logger}
}

// Stream GET /tickets/stream.
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	filter := parseTicketQuery(c)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// The writer outlives the handler, so the subscription cannot hang off
	// the request context. It is closed when the client goes away and the
	// next write fails.
	sub := h.service.Subscribe(context.Background(), caller, filter)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		h.pump(w, sub, streamKeepalive)
	}))
	return nil
}

// pump writes events as SSE frames until the subscription ends or a write
// fails. The keepalive comment doubles as a dead connection probe.
func (h *StreamHandler) pump(w *bufio.Writer, sub *events.Subscription, keepalive time.Duration) {
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(streamEvent(ev))
			if err != nil {
				h.logger.Error("stream event encode failed", zap.Error(err))
				continue
			}
			if _, err := w.WriteString("event: " + string(ev.Type) + "\n"); err != nil {
				return
			}
			if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func streamEvent(ev events.TicketEvent) dto.TicketEventResponse {
	var response *dto.ResponseEntry
	if ev.Response != nil {
		entry := responseEntry(ev.Response)
		response = &entry
	}
	return dto.TicketEventResponse{
		ID:        ev.ID,
		Type:      string(ev.Type),
		Change:    string(ev.Change),
		Ticket:    ticketDetail(&ev.Ticket),
		Response:  response,
		Gap:       ev.Gap,
		Timestamp: ev.Timestamp,
	}
}
