// Package provider implements the HTTP client against the payment
// authority's REST API.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	appprovider "github.com/petgourmet/ledgersync/internal/application/provider"
	"github.com/petgourmet/ledgersync/internal/shared/config"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      logger.Interface
}

func NewHTTPClient(cfg config.ProviderConfig, logger logger.Interface) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type paymentDTO struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	ExternalReference string      `json:"external_reference"`
	DateApproved      *time.Time  `json:"date_approved"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

type preapprovalDTO struct {
	ID                string      `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	PayerEmail        string      `json:"payer_email"`
	NextPaymentDate   *time.Time  `json:"next_payment_date"`
	LastPaymentID     json.Number `json:"last_payment_id"`
	PreferenceID      string      `json:"preference_id"`
	FreeTrialEndDate  *time.Time  `json:"free_trial_end_date"`
}

type searchResponse[T any] struct {
	Results []T `json:"results"`
}

func (c *HTTPClient) GetPayment(ctx context.Context, id string) (*appprovider.Payment, error) {
	var dto paymentDTO
	if err := c.get(ctx, "/v1/payments/"+url.PathEscape(id), &dto); err != nil {
		return nil, err
	}
	return mapPayment(dto), nil
}

func (c *HTTPClient) GetSubscription(ctx context.Context, id string) (*appprovider.Subscription, error) {
	var dto preapprovalDTO
	if err := c.get(ctx, "/preapproval/"+url.PathEscape(id), &dto); err != nil {
		return nil, err
	}
	return mapPreapproval(dto), nil
}

func (c *HTTPClient) SearchPayments(ctx context.Context, correlationKey string) ([]*appprovider.Payment, error) {
	var resp searchResponse[paymentDTO]
	path := "/v1/payments/search?external_reference=" + url.QueryEscape(correlationKey)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	payments := make([]*appprovider.Payment, 0, len(resp.Results))
	for _, dto := range resp.Results {
		payments = append(payments, mapPayment(dto))
	}
	return payments, nil
}

func (c *HTTPClient) SearchSubscriptions(ctx context.Context, correlationKey string) ([]*appprovider.Subscription, error) {
	var resp searchResponse[preapprovalDTO]
	path := "/preapproval/search?external_reference=" + url.QueryEscape(correlationKey)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	subs := make([]*appprovider.Subscription, 0, len(resp.Results))
	for _, dto := range resp.Results {
		subs = append(subs, mapPreapproval(dto))
	}
	return subs, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	op := "GET " + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are the scheduler's to retry.
		return &appprovider.TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &appprovider.TransientError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return appprovider.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.Warnw("provider returned retryable status", "op", op, "status", resp.StatusCode)
		return &appprovider.TransientError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("provider request %s failed with status %d: %s", op, resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode provider response for %s: %w", op, err)
	}
	return nil
}

func mapPayment(dto paymentDTO) *appprovider.Payment {
	return &appprovider.Payment{
		ID:             dto.ID.String(),
		Status:         dto.Status,
		StatusDetail:   dto.StatusDetail,
		AmountCents:    int64(math.Round(dto.TransactionAmount * 100)),
		Currency:       dto.CurrencyID,
		PayerEmail:     dto.Payer.Email,
		CorrelationKey: dto.ExternalReference,
		DateApproved:   dto.DateApproved,
	}
}

func mapPreapproval(dto preapprovalDTO) *appprovider.Subscription {
	return &appprovider.Subscription{
		ID:              dto.ID,
		Status:          dto.Status,
		CorrelationKey:  dto.ExternalReference,
		PayerEmail:      dto.PayerEmail,
		NextPaymentDate: dto.NextPaymentDate,
		LastPaymentID:   dto.LastPaymentID.String(),
		PreferenceID:    dto.PreferenceID,
		TrialEndDate:    dto.FreeTrialEndDate,
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
