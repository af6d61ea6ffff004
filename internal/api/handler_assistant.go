package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

func (h *Handler) handleAskAssistant(w http.ResponseWriter, r *http.Request) {
	var req AssistantRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(req.UserQuery) == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("user_query is required"))
		return
	}

	reply, err := h.assistant.Answer(r.Context(), req.UserQuery, req.CurrentFieldLabel, req.CurrentFieldExplanation)
	if err != nil {
		h.writeError(w, statusCode(err), err)
		return
	}

	writeJson(w, AssistantResponse{Reply: reply})
}

func (h *Handler) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req InterviewStartRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	question, err := h.assistant.StartInterview(r.Context(), req.Fields)
	if err != nil {
		h.writeError(w, statusCode(err), err)
		return
	}

	writeJson(w, InterviewStartResponse{Question: question})
}

func (h *Handler) handleProcessInterviewAnswer(w http.ResponseWriter, r *http.Request) {
	var req InterviewAnswerRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	extraction, err := h.assistant.ProcessAnswer(r.Context(), req.UserResponse, req.Fields, req.PreviousContext)
	if err != nil {
		h.writeError(w, statusCode(err), err)
		return
	}

	if extraction.ExtractedData == nil {
		extraction.ExtractedData = map[string]string{}
	}

	writeJson(w, extraction)
}
