package kyc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Ошибки структурных нарушений контракта провайдера.
var (
	ErrMalformedPayload    = errors.New("kyc: некорректный payload")
	ErrMissingVerification = errors.New("kyc: в payload отсутствует блок verification")
	ErrMissingPersonData   = errors.New("kyc: в одобренном решении отсутствуют данные о личности")
	ErrMissingDocumentData = errors.New("kyc: в одобренном решении отсутствуют данные о документе")
)

// EventKind вид события жизненного цикла сессии.
type EventKind string

// Закрытый список событий. Всё остальное провайдер волен присылать,
// но мы это только логируем.
const (
	EventStarted   EventKind = "started"
	EventSubmitted EventKind = "submitted"
)

// Known сообщает, относится ли событие к известному списку.
func (k EventKind) Known() bool {
	return k == EventStarted || k == EventSubmitted
}

// Event результат разбора событийного callback.
type Event struct {
	SessionID string
	Kind      EventKind
}

type eventEnvelope struct {
	Verification *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"verification"`
}

// ParseEventPayload разбирает событийный callback провайдера.
// Неизвестный статус не является ошибкой: Kind сохраняет сырое значение,
// а Known() возвращает false.
func ParseEventPayload(raw []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Verification == nil {
		return nil, ErrMissingVerification
	}
	if env.Verification.ID == "" {
		return nil, fmt.Errorf("%w: пустой verification.id", ErrMalformedPayload)
	}

	return &Event{
		SessionID: env.Verification.ID,
		Kind:      EventKind(env.Verification.Status),
	}, nil
}

// Person персональные данные из решения провайдера.
type Person struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	DateOfBirth  *string `json:"dateOfBirth"`
	Nationality  *string `json:"nationality"`
	PlaceOfBirth *string `json:"placeOfBirth"`
}

// Document данные документа из решения провайдера.
type Document struct {
	Type       *string `json:"type"`
	Number     *string `json:"number"`
	Country    *string `json:"country"`
	ValidFrom  *string `json:"validFrom"`
	ValidUntil *string `json:"validUntil"`
}

// Decision решение провайдера по сессии верификации.
type Decision struct {
	SessionID      string     `json:"id"`
	Status         string     `json:"status"`
	Code           int        `json:"code"`
	Reason         *string    `json:"reason"`
	ReasonCode     *int       `json:"reasonCode"`
	DecisionTime   *time.Time `json:"decisionTime"`
	AcceptanceTime *time.Time `json:"acceptanceTime"`
	Person         *Person    `json:"person"`
	Document       *Document  `json:"document"`
	VendorData     *string    `json:"vendorData"`
}

type decisionEnvelope struct {
	Verification *Decision `json:"verification"`
}

// ParseDecisionPayload разбирает callback с решением.
// Отсутствие блока verification — структурное нарушение контракта,
// а не негативный исход.
func ParseDecisionPayload(raw []byte) (*Decision, error) {
	var env decisionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Verification == nil {
		return nil, ErrMissingVerification
	}
	if env.Verification.SessionID == "" {
		return nil, fmt.Errorf("%w: пустой verification.id", ErrMalformedPayload)
	}

	return env.Verification, nil
}
