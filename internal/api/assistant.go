package api

import (
	"context"
	"net/http"
	"time"

	"github.com/erazemk/sinalizacao/internal/assistant"
)

// AssistantHandler answers stock questions.
type AssistantHandler struct {
	*Deps
}

type askRequest struct {
	Question string `json:"question" validate:"notblank,max=2000"`
}

type askResponse struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// Ask handles POST /api/assistant. Provider failures still answer 200 with
// the fallback message.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeValid(w, r, &req) {
		return
	}

	ctx := r.Context()
	if h.AssistantTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.AssistantTimeout)
		defer cancel()
	}

	start := time.Now()
	answer, ok := assistant.AskOrFallback(ctx, h.Assistant, h.Engine.Items(), req.Question)
	h.Metrics.ObserveAssistant(ok, time.Since(start))

	jsonResponse(w, http.StatusOK, askResponse{Answer: answer, Fallback: !ok})
}
