// Package lemonsqueezy implements the LemonSqueezy payment provider over its
// JSON:API REST interface. Webhook bodies are authenticated with the
// X-Signature HMAC-SHA256 hex digest.
package lemonsqueezy

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shipforge/payment-ledger/internal/config"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

const defaultBaseURL = "https://api.lemonsqueezy.com/v1"

// Provider is the LemonSqueezy adapter.
type Provider struct {
	baseURL       string
	apiKey        string
	storeID       string
	webhookSecret string
	checkout      config.CheckoutConfig
	enabled       bool
	httpClient    *http.Client
	log           *slog.Logger
}

// New builds the LemonSqueezy adapter from configuration.
func New(cfg config.LemonSqueezyConfig, checkout config.CheckoutConfig, log *slog.Logger) *Provider {
	if cfg.APIKey == "" {
		log.Warn("lemonsqueezy api key not provided, provider not configured")
	}
	return &Provider{
		baseURL:       defaultBaseURL,
		apiKey:        cfg.APIKey,
		storeID:       cfg.StoreID,
		webhookSecret: cfg.WebhookSecret,
		checkout:      checkout,
		enabled:       cfg.Enabled,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		log:           log,
	}
}

// ID implements provider.PaymentProvider.
func (p *Provider) ID() string { return provider.ProcessorLemonSqueezy }

// Name implements provider.PaymentProvider.
func (p *Provider) Name() string { return "LemonSqueezy" }

// IsConfigured implements provider.PaymentProvider.
func (p *Provider) IsConfigured() bool { return p.apiKey != "" }

// IsEnabled implements provider.PaymentProvider.
func (p *Provider) IsEnabled() bool { return p.enabled }

func (p *Provider) ready() bool { return p.IsConfigured() && p.enabled }

type listResponse struct {
	Data []resource `json:"data"`
	Meta struct {
		Page struct {
			CurrentPage int `json:"currentPage"`
			LastPage    int `json:"lastPage"`
		} `json:"page"`
	} `json:"meta"`
}

type resource struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

type orderAttributes struct {
	Identifier     string  `json:"identifier"`
	OrderNumber    int64   `json:"order_number"`
	UserName       string  `json:"user_name"`
	UserEmail      string  `json:"user_email"`
	Status         string  `json:"status"`
	Total          int64   `json:"total"`
	Currency       string  `json:"currency"`
	CreatedAt      string  `json:"created_at"`
	FirstOrderItem *struct {
		ProductID   int64  `json:"product_id"`
		VariantID   int64  `json:"variant_id"`
		ProductName string `json:"product_name"`
		VariantName string `json:"variant_name"`
	} `json:"first_order_item"`
}

type subscriptionAttributes struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantID   int64  `json:"variant_id"`
	UserEmail   string `json:"user_email"`
	Status      string `json:"status"`
}

type productAttributes struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Status      string `json:"status"`
}

func (p *Provider) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*resourceEnvelope, error) {
	const op = "lemonsqueezy.doRequest"

	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, string(raw))
	}
	return &resourceEnvelope{raw: raw}, nil
}

type resourceEnvelope struct {
	raw []byte
}

func (e *resourceEnvelope) list() (*listResponse, error) {
	var out listResponse
	if err := json.Unmarshal(e.raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *resourceEnvelope) single() (*resource, error) {
	var out struct {
		Data resource `json:"data"`
	}
	if err := json.Unmarshal(e.raw, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (p *Provider) listOrders(ctx context.Context, email string) ([]models.OrderData, error) {
	const op = "lemonsqueezy.listOrders"

	var orders []models.OrderData
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page[number]", strconv.Itoa(page))
		query.Set("page[size]", "100")
		if p.storeID != "" {
			query.Set("filter[store_id]", p.storeID)
		}
		if email != "" {
			query.Set("filter[user_email]", email)
		}

		env, err := p.doRequest(ctx, http.MethodGet, "/orders", query, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		resp, err := env.list()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, res := range resp.Data {
			var attrs orderAttributes
			if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			orders = append(orders, p.orderToData(res.ID, attrs))
		}
		if resp.Meta.Page.CurrentPage >= resp.Meta.Page.LastPage {
			break
		}
	}
	return orders, nil
}

func (p *Provider) orderToData(id string, attrs orderAttributes) models.OrderData {
	order := models.OrderData{
		ID:        id,
		OrderID:   attrs.Identifier,
		UserEmail: attrs.UserEmail,
		UserName:  attrs.UserName,
		Amount:    float64(attrs.Total) / 100,
		Status:    models.OrderStatusPending,
		Processor: p.ID(),
		Attributes: map[string]any{
			"order_number": attrs.OrderNumber,
			"currency":     attrs.Currency,
			"raw_status":   attrs.Status,
		},
	}
	if order.OrderID == "" {
		order.OrderID = id
	}
	switch attrs.Status {
	case "paid":
		order.Status = models.OrderStatusPaid
	case "refunded":
		order.Status = models.OrderStatusRefunded
	}
	if attrs.FirstOrderItem != nil {
		order.ProductName = attrs.FirstOrderItem.ProductName
		order.ProductID = strconv.FormatInt(attrs.FirstOrderItem.ProductID, 10)
		order.Attributes["variant_id"] = attrs.FirstOrderItem.VariantID
	}
	if ts, err := time.Parse(time.RFC3339, attrs.CreatedAt); err == nil {
		order.PurchaseDate = ts
	}
	return order
}

// GetPaymentStatus reports whether any paid order exists for the e-mail.
func (p *Provider) GetPaymentStatus(ctx context.Context, email string) (bool, error) {
	if !p.ready() {
		return false, nil
	}
	orders, err := p.GetOrdersByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	for _, order := range orders {
		if order.Status == models.OrderStatusPaid {
			return true, nil
		}
	}
	return false, nil
}

// HasUserPurchasedProduct reports whether a paid order for the product exists
// for the e-mail. The product id is a LemonSqueezy product id.
func (p *Provider) HasUserPurchasedProduct(ctx context.Context, email, productID string) (bool, error) {
	if !p.ready() {
		return false, nil
	}
	orders, err := p.GetOrdersByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	for _, order := range orders {
		if order.Status == models.OrderStatusPaid && order.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// HasUserActiveSubscription reports whether the e-mail has an active
// LemonSqueezy subscription.
func (p *Provider) HasUserActiveSubscription(ctx context.Context, email string) (bool, error) {
	const op = "lemonsqueezy.HasUserActiveSubscription"
	if !p.ready() {
		return false, nil
	}

	query := url.Values{}
	query.Set("filter[user_email]", email)
	if p.storeID != "" {
		query.Set("filter[store_id]", p.storeID)
	}
	env, err := p.doRequest(ctx, http.MethodGet, "/subscriptions", query, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := env.list()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	for _, res := range resp.Data {
		var attrs subscriptionAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		if attrs.Status == "active" || attrs.Status == "on_trial" {
			return true, nil
		}
	}
	return false, nil
}

// GetUserPurchasedProducts lists the distinct products behind the e-mail's
// paid orders.
func (p *Provider) GetUserPurchasedProducts(ctx context.Context, email string) ([]models.ProductData, error) {
	if !p.ready() {
		return nil, nil
	}
	orders, err := p.GetOrdersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var products []models.ProductData
	for _, order := range orders {
		if order.Status != models.OrderStatusPaid || order.ProductID == "" || seen[order.ProductID] {
			continue
		}
		seen[order.ProductID] = true
		price := order.Amount
		products = append(products, models.ProductData{
			ID:       order.ProductID,
			Name:     order.ProductName,
			Price:    &price,
			Provider: p.ID(),
		})
	}
	return products, nil
}

// GetAllOrders lists every order in the store.
func (p *Provider) GetAllOrders(ctx context.Context) ([]models.OrderData, error) {
	if !p.ready() {
		return nil, nil
	}
	return p.listOrders(ctx, "")
}

// GetOrdersByEmail lists the orders for one e-mail.
func (p *Provider) GetOrdersByEmail(ctx context.Context, email string) ([]models.OrderData, error) {
	if !p.ready() {
		return nil, nil
	}
	return p.listOrders(ctx, email)
}

// CreateCheckoutURL creates a hosted checkout. The product id is a
// LemonSqueezy variant id.
func (p *Provider) CreateCheckoutURL(ctx context.Context, opts models.CheckoutOptions) (string, error) {
	const op = "lemonsqueezy.CreateCheckoutURL"
	if !p.ready() {
		return "", provider.ErrNotConfigured
	}

	redirectURL := opts.SuccessURL
	if redirectURL == "" {
		redirectURL = p.checkout.SuccessURL
	}

	custom := map[string]any{}
	if opts.UserUID != "" {
		custom["user_uid"] = opts.UserUID
	}
	for k, v := range opts.Metadata {
		custom[k] = v
	}

	checkoutData := map[string]any{}
	if opts.Email != "" {
		checkoutData["email"] = opts.Email
	}
	if len(custom) > 0 {
		checkoutData["custom"] = custom
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": checkoutData,
				"product_options": map[string]any{
					"redirect_url": redirectURL,
				},
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{"type": "stores", "id": p.storeID},
				},
				"variant": map[string]any{
					"data": map[string]any{"type": "variants", "id": opts.ProductID},
				},
			},
		},
	}

	env, err := p.doRequest(ctx, http.MethodPost, "/checkouts", nil, body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	res, err := env.single()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var attrs struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return attrs.URL, nil
}

// ParseWebhookEvent verifies the X-Signature digest and returns the
// normalized order for order_created events with a paid status.
func (p *Provider) ParseWebhookEvent(_ context.Context, event provider.WebhookEvent) (*models.OrderData, error) {
	const op = "lemonsqueezy.ParseWebhookEvent"
	if !p.ready() || p.webhookSecret == "" {
		p.log.Warn("received lemonsqueezy webhook, but provider not configured, dropping event")
		return nil, nil
	}

	if !p.verifySignature(event.Body, event.Headers.Get("X-Signature")) {
		return nil, fmt.Errorf("%s: %w", op, provider.ErrInvalidSignature)
	}

	var payload struct {
		Meta struct {
			EventName string `json:"event_name"`
		} `json:"meta"`
		Data resource `json:"data"`
	}
	if err := json.Unmarshal(event.Body, &payload); err != nil {
		return nil, fmt.Errorf("%s: failed to parse payload: %w", op, err)
	}

	if payload.Meta.EventName != "order_created" {
		return nil, nil
	}

	var attrs orderAttributes
	if err := json.Unmarshal(payload.Data.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("%s: failed to parse order: %w", op, err)
	}
	order := p.orderToData(payload.Data.ID, attrs)
	if order.Status != models.OrderStatusPaid {
		return nil, nil
	}
	return &order, nil
}

func (p *Provider) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}
