package kyc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client выполняет запросы к API провайдера верификации.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SessionRequest параметры создания новой сессии верификации.
type SessionRequest struct {
	CallbackURL string
	FirstName   string
	LastName    string
	// VendorData вернётся во всех callback по этой сессии.
	// По нашему соглашению это идентификатор пользователя.
	VendorData string
}

// ProviderSession ответ провайдера на создание сессии.
type ProviderSession struct {
	ID         string
	URL        string
	VendorData string
	Host       string
	Status     string
}

type sessionResponse struct {
	Verification *struct {
		ID         string `json:"id"`
		URL        string `json:"url"`
		VendorData string `json:"vendorData"`
		Host       string `json:"host"`
	} `json:"verification"`
	Status string `json:"status"`
}

// CreateSession запрашивает у провайдера новую сессию верификации.
// Ретраев нет: сетевые ошибки поднимаются вызывающему как есть.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*ProviderSession, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("kyc: baseURL не задан")
	}

	payload := map[string]any{
		"verification": map[string]any{
			"callback": req.CallbackURL,
			"person": map[string]any{
				"firstName": req.FirstName,
				"lastName":  req.LastName,
			},
			"vendorData": req.VendorData,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-AUTH-CLIENT", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errorBody)
		return nil, fmt.Errorf("kyc: код ответа %d: %v", resp.StatusCode, errorBody)
	}

	var result sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("kyc: не удалось разобрать ответ провайдера: %w", err)
	}
	if result.Verification == nil || result.Verification.ID == "" || result.Verification.URL == "" {
		return nil, fmt.Errorf("kyc: провайдер вернул неполный ответ")
	}

	return &ProviderSession{
		ID:         result.Verification.ID,
		URL:        result.Verification.URL,
		VendorData: result.Verification.VendorData,
		Host:       result.Verification.Host,
		Status:     result.Status,
	}, nil
}
