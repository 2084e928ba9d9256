package dto

import (
	"time"

	"github.com/vmaslennikov/usercore-backend/internal/models"
)

// ErrorResponse стандартный формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse стандартный формат успешного ответа с данными.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// DecisionResponse решение провайдера в ответе API.
type DecisionResponse struct {
	SessionID    string     `json:"session_id"`
	Status       string     `json:"status"`
	Code         int        `json:"code"`
	Reason       *string    `json:"reason,omitempty"`
	ReasonCode   *int       `json:"reason_code,omitempty"`
	DecisionTime *time.Time `json:"decision_time,omitempty"`
}

// VerificationResponse сессия верификации для клиента. Decision заполнен,
// если по предыдущей попытке уже есть решение.
type VerificationResponse struct {
	SessionID       string            `json:"session_id"`
	VerificationURL string            `json:"verification_url"`
	LifecycleState  string            `json:"lifecycle_state"`
	Decision        *DecisionResponse `json:"decision,omitempty"`
}

// NewDecisionResponse собирает DecisionResponse из модели.
func NewDecisionResponse(decision *models.VerificationDecision) *DecisionResponse {
	if decision == nil {
		return nil
	}
	return &DecisionResponse{
		SessionID:    decision.SessionID,
		Status:       decision.Status,
		Code:         decision.Code,
		Reason:       decision.Reason,
		ReasonCode:   decision.ReasonCode,
		DecisionTime: decision.DecisionTime,
	}
}

// NewVerificationResponse собирает VerificationResponse из сессии и решения.
func NewVerificationResponse(session *models.VerificationSession, decision *models.VerificationDecision) *VerificationResponse {
	return &VerificationResponse{
		SessionID:       session.SessionID,
		VerificationURL: session.VerificationURL,
		LifecycleState:  session.LifecycleState,
		Decision:        NewDecisionResponse(decision),
	}
}
