package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
	"github.com/martyndavies/hubapi-example-langchain/internal/middleware"
	"github.com/martyndavies/hubapi-example-langchain/internal/models"
	"github.com/martyndavies/hubapi-example-langchain/internal/security"
)

// Runner runs one prompt through the tool-calling conversation.
type Runner interface {
	Run(ctx context.Context, prompt string) (*agent.Outcome, error)
}

// AskHandler handles POST /api/v1/ask
type AskHandler struct {
	runner        Runner
	validator     *security.PromptValidator
	audit         *security.AuditLogger
	defaultPrompt string
	modelName     string
	keyHeader     string
}

func NewAskHandler(
	runner Runner,
	validator *security.PromptValidator,
	audit *security.AuditLogger,
	defaultPrompt, modelName, keyHeader string,
) *AskHandler {
	if keyHeader == "" {
		keyHeader = "X-API-Key"
	}
	return &AskHandler{
		runner:        runner,
		validator:     validator,
		audit:         audit,
		defaultPrompt: defaultPrompt,
		modelName:     modelName,
		keyHeader:     keyHeader,
	}
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults(h.defaultPrompt)

	if v := h.validator.Validate(req.Prompt); !v.Valid {
		models.WriteError(w, http.StatusBadRequest, v.Message)
		return
	}

	apiKey := r.Header.Get(h.keyHeader)
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.Timeout)*time.Second)
	defer cancel()

	start := time.Now()
	out, err := h.runner.Run(ctx, req.Prompt)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		h.audit.LogRun(req.Prompt, apiKey, 0, 0, 0, elapsed, false, err.Error())
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("conversation failed")

		status := http.StatusBadGateway
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		case errors.Is(err, agent.ErrNoTools):
			status = http.StatusServiceUnavailable
		}
		models.WriteError(w, status, err.Error())
		return
	}
	h.audit.LogRun(req.Prompt, apiKey, len(out.Tools), len(out.Calls), out.Failed(), elapsed, true, "")

	models.WriteJSON(w, http.StatusOK, models.AskResponse{
		Status:    "success",
		Prompt:    out.Prompt,
		Answer:    out.Answer,
		ToolCalls: toolCallInfo(out),
		AgentMetadata: map[string]interface{}{
			"model":             h.modelName,
			"tools_bound":       len(out.Tools),
			"tool_calls":        len(out.Calls),
			"failed_calls":      out.Failed(),
			"execution_time_ms": elapsed,
		},
	})
}

func toolCallInfo(out *agent.Outcome) []models.ToolCallInfo {
	infos := make([]models.ToolCallInfo, 0, len(out.Calls))
	for i, call := range out.Calls {
		info := models.ToolCallInfo{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: security.RedactArguments(call.Arguments),
		}
		if i < len(out.Results) {
			res := out.Results[i]
			info.Result = res.Content()
			if !res.OK() {
				msg := res.Err.Error()
				info.Error = &msg
			}
		}
		infos = append(infos, info)
	}
	return infos
}
