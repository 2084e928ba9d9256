package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы жизненного цикла сессии верификации.
// Порядок строго вперёд: created -> started -> submitted.
const (
	LifecycleStateCreated   = "created"
	LifecycleStateStarted   = "started"
	LifecycleStateSubmitted = "submitted"
)

// lifecycleOrder задаёт порядок состояний для проверки монотонности.
var lifecycleOrder = map[string]int{
	LifecycleStateCreated:   0,
	LifecycleStateStarted:   1,
	LifecycleStateSubmitted: 2,
}

// Статусы решений провайдера KYC.
const (
	DecisionStatusApproved              = "approved"
	DecisionStatusResubmissionRequested = "resubmission_requested"
	DecisionStatusDeclined              = "declined"
	DecisionStatusAbandoned             = "abandoned"
	DecisionStatusExpired               = "expired"
)

// ValidDecisionStatuses список известных статусов решений.
// Неизвестные значения от провайдера сохраняются как есть и не считаются ошибкой.
var ValidDecisionStatuses = map[string]struct{}{
	DecisionStatusApproved:              {},
	DecisionStatusResubmissionRequested: {},
	DecisionStatusDeclined:              {},
	DecisionStatusAbandoned:             {},
	DecisionStatusExpired:               {},
}

// IsKnownDecisionStatus сообщает, известен ли статус решения.
func IsKnownDecisionStatus(status string) bool {
	_, ok := ValidDecisionStatuses[status]
	return ok
}

// DecisionExhausted сообщает, что сессия исчерпана и для повторной попытки
// нужна новая сессия у провайдера.
func DecisionExhausted(status string) bool {
	switch status {
	case DecisionStatusDeclined, DecisionStatusAbandoned, DecisionStatusExpired:
		return true
	}
	return false
}

// VerificationSession описывает одну попытку прохождения верификации личности.
// Идентификатор выдаёт провайдер; у пользователя может быть несколько сессий,
// актуальна всегда самая свежая по created_at.
type VerificationSession struct {
	SessionID       string    `db:"session_id" json:"session_id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	VerificationURL string    `db:"verification_url" json:"verification_url"`
	VendorData      string    `db:"vendor_data" json:"vendor_data"`
	Host            string    `db:"host" json:"host"`
	InitialStatus   string    `db:"initial_status" json:"initial_status"`
	LifecycleState  string    `db:"lifecycle_state" json:"lifecycle_state"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// AdvanceTo переводит сессию в новое состояние жизненного цикла.
// Состояние меняется только вперёд: попытка отката возвращает false
// и ничего не меняет.
func (s *VerificationSession) AdvanceTo(state string) bool {
	next, ok := lifecycleOrder[state]
	if !ok {
		return false
	}
	if current, ok := lifecycleOrder[s.LifecycleState]; ok && next <= current {
		return false
	}
	s.LifecycleState = state
	return true
}

// VerificationDecision хранит последнее решение провайдера по сессии.
// На одну сессию ровно одна строка: новое решение заменяет предыдущее.
type VerificationDecision struct {
	SessionID      string     `db:"session_id" json:"session_id"`
	Status         string     `db:"status" json:"status"`
	Code           int        `db:"code" json:"code"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	ReasonCode     *int       `db:"reason_code" json:"reason_code,omitempty"`
	DecisionTime   *time.Time `db:"decision_time" json:"decision_time,omitempty"`
	AcceptanceTime *time.Time `db:"acceptance_time" json:"acceptance_time,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// IdentityDocument описывает документ, по которому прошла верификация.
// Провайдер не гарантирует полноту данных, поэтому все поля опциональны.
type IdentityDocument struct {
	DocType       *string `db:"doc_type" json:"doc_type,omitempty"`
	DocNumber     *string `db:"doc_number" json:"doc_number,omitempty"`
	DocCountry    *string `db:"doc_country" json:"doc_country,omitempty"`
	DocValidFrom  *string `db:"doc_valid_from" json:"doc_valid_from,omitempty"`
	DocValidUntil *string `db:"doc_valid_until" json:"doc_valid_until,omitempty"`
}

// VerifiedIdentity содержит персональные данные, извлечённые из одобренной сессии.
type VerifiedIdentity struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	DateOfBirth  *string   `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Nationality  *string   `db:"nationality" json:"nationality,omitempty"`
	PlaceOfBirth *string   `db:"place_of_birth" json:"place_of_birth,omitempty"`
	IdentityDocument
	Connected   bool      `db:"connected" json:"connected"`
	Deactivated bool      `db:"deactivated" json:"deactivated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
