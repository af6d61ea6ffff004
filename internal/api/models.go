package api

import (
	"github.com/a3tai/form-copilot/internal/form"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AnalyzeResponse struct {
	ImageData string   `json:"image_data"`
	Analysis  Analysis `json:"analysis"`
}

type Analysis struct {
	Fields []form.Field `json:"fields"`
}

type AssistantRequest struct {
	UserQuery               string `json:"user_query"`
	CurrentFieldLabel       string `json:"current_field_label"`
	CurrentFieldExplanation string `json:"current_field_explanation"`
}

type AssistantResponse struct {
	Reply string `json:"reply"`
}

type InterviewStartRequest struct {
	Fields []form.Field `json:"fields"`
}

type InterviewStartResponse struct {
	Question string `json:"question"`
}

type InterviewAnswerRequest struct {
	UserResponse    string       `json:"user_response"`
	Fields          []form.Field `json:"fields"`
	PreviousContext string       `json:"previous_context,omitempty"`
}
