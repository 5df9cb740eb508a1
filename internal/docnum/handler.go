package docnum

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/supplyhub/supplyhub/internal/platform/httpx"
)

// Handler exposes read-only previews over document numbering.
type Handler struct {
	logger    *slog.Logger
	allocator *Allocator
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, allocator *Allocator) *Handler {
	return &Handler{logger: logger, allocator: allocator}
}

// MountRoutes registers the routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/document-numbers/next", h.next)
}

// next previews the identifier the next allocation would produce. The
// number is not reserved; persisting flows allocate again inside their own
// transaction. Period defaults to the current month when absent.
func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	docType := DocumentType(r.URL.Query().Get("type"))
	if !docType.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown document type")
		return
	}
	period := PeriodOf(time.Now())
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := ParsePeriod(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "period must be YYYY-MM")
			return
		}
		period = parsed
	}
	number, err := h.allocator.Next(r.Context(), docType, period)
	if err != nil {
		h.logger.Error("preview document number", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"doc_type": docType,
		"period":   period.String(),
		"number":   number,
	})
}
