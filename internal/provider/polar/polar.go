// Package polar implements the Polar payment provider over its REST API.
// Webhooks follow the standard-webhooks scheme: the webhook-signature header
// carries v1,<base64 HMAC-SHA256> over "<id>.<timestamp>.<body>".
package polar

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

const defaultBaseURL = "https://api.polar.sh/v1"

// Provider is the Polar adapter.
type Provider struct {
	baseURL        string
	accessToken    string
	organizationID string
	webhookSecret  string
	checkout       config.CheckoutConfig
	enabled        bool
	httpClient     *http.Client
	log            *slog.Logger
}

// New builds the Polar adapter from configuration.
func New(cfg config.PolarConfig, checkout config.CheckoutConfig, log *slog.Logger) *Provider {
	if cfg.AccessToken == "" {
		log.Warn("polar access token not provided, provider not configured")
	}
	return &Provider{
		baseURL:        defaultBaseURL,
		accessToken:    cfg.AccessToken,
		organizationID: cfg.OrganizationID,
		webhookSecret:  cfg.WebhookSecret,
		checkout:       checkout,
		enabled:        cfg.Enabled,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		log:            log,
	}
}

// ID implements provider.PaymentProvider.
func (p *Provider) ID() string { return provider.ProcessorPolar }

// Name implements provider.PaymentProvider.
func (p *Provider) Name() string { return "Polar" }

// IsConfigured implements provider.PaymentProvider.
func (p *Provider) IsConfigured() bool { return p.accessToken != "" }

// IsEnabled implements provider.PaymentProvider.
func (p *Provider) IsEnabled() bool { return p.enabled }

func (p *Provider) ready() bool { return p.IsConfigured() && p.enabled }

type polarOrder struct {
	ID        string         `json:"id"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Status    string         `json:"status"`
	Paid      bool           `json:"paid"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
	Customer  *struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer"`
	Product *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
}

type polarSubscription struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Customer *struct {
		Email string `json:"email"`
	} `json:"customer"`
	Product *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
}

func (p *Provider) doRequest(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	const op = "polar.doRequest"

	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (p *Provider) listOrders(ctx context.Context, email string) ([]models.OrderData, error) {
	const op = "polar.listOrders"

	var orders []models.OrderData
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", "100")
		if p.organizationID != "" {
			query.Set("organization_id", p.organizationID)
		}

		var resp struct {
			Items      []polarOrder `json:"items"`
			Pagination struct {
				TotalCount int `json:"total_count"`
				MaxPage    int `json:"max_page"`
			} `json:"pagination"`
		}
		if err := p.doRequest(ctx, http.MethodGet, "/orders/", query, nil, &resp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, item := range resp.Items {
			order := p.orderToData(item)
			if email != "" && !strings.EqualFold(order.UserEmail, email) {
				continue
			}
			orders = append(orders, order)
		}
		if page >= resp.Pagination.MaxPage {
			break
		}
	}
	return orders, nil
}

func (p *Provider) orderToData(in polarOrder) models.OrderData {
	order := models.OrderData{
		ID:           in.ID,
		OrderID:      in.ID,
		Amount:       float64(in.Amount) / 100,
		Status:       models.OrderStatusPending,
		PurchaseDate: in.CreatedAt,
		Processor:    p.ID(),
		Attributes: map[string]any{
			"currency":   in.Currency,
			"raw_status": in.Status,
		},
	}
	if in.Paid || in.Status == "paid" {
		order.Status = models.OrderStatusPaid
	}
	if in.Status == "refunded" {
		order.Status = models.OrderStatusRefunded
	}
	if in.Customer != nil {
		order.UserEmail = in.Customer.Email
		order.UserName = in.Customer.Name
	}
	if in.Product != nil {
		order.ProductName = in.Product.Name
		order.ProductID = in.Product.ID
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
// for the e-mail.
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

// HasUserActiveSubscription reports whether the e-mail has an active Polar
// subscription.
func (p *Provider) HasUserActiveSubscription(ctx context.Context, email string) (bool, error) {
	const op = "polar.HasUserActiveSubscription"
	if !p.ready() {
		return false, nil
	}

	query := url.Values{}
	query.Set("active", "true")
	if p.organizationID != "" {
		query.Set("organization_id", p.organizationID)
	}
	var resp struct {
		Items []polarSubscription `json:"items"`
	}
	if err := p.doRequest(ctx, http.MethodGet, "/subscriptions/", query, nil, &resp); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	for _, sub := range resp.Items {
		if sub.Customer != nil && strings.EqualFold(sub.Customer.Email, email) && sub.Status == "active" {
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

// GetAllOrders lists every order of the organization.
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

// CreateCheckoutURL creates a hosted Polar checkout for the product.
func (p *Provider) CreateCheckoutURL(ctx context.Context, opts models.CheckoutOptions) (string, error) {
	const op = "polar.CreateCheckoutURL"
	if !p.ready() {
		return "", provider.ErrNotConfigured
	}

	successURL := opts.SuccessURL
	if successURL == "" {
		successURL = p.checkout.SuccessURL
	}

	body := map[string]any{
		"products":    []string{opts.ProductID},
		"success_url": successURL,
	}
	if opts.Email != "" {
		body["customer_email"] = opts.Email
	}
	metadata := map[string]string{}
	if opts.UserUID != "" {
		metadata["user_uid"] = opts.UserUID
	}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := p.doRequest(ctx, http.MethodPost, "/checkouts/", nil, body, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.URL, nil
}

// ParseWebhookEvent verifies the standard-webhooks signature and returns the
// normalized order for order.created and order.paid events.
func (p *Provider) ParseWebhookEvent(_ context.Context, event provider.WebhookEvent) (*models.OrderData, error) {
	const op = "polar.ParseWebhookEvent"
	if !p.ready() || p.webhookSecret == "" {
		p.log.Warn("received polar webhook, but provider not configured, dropping event")
		return nil, nil
	}

	if !p.verifySignature(event) {
		return nil, fmt.Errorf("%s: %w", op, provider.ErrInvalidSignature)
	}

	var payload struct {
		Type string     `json:"type"`
		Data polarOrder `json:"data"`
	}
	if err := json.Unmarshal(event.Body, &payload); err != nil {
		return nil, fmt.Errorf("%s: failed to parse payload: %w", op, err)
	}

	if payload.Type != "order.created" && payload.Type != "order.paid" {
		return nil, nil
	}

	order := p.orderToData(payload.Data)
	if order.Status != models.OrderStatusPaid {
		return nil, nil
	}
	return &order, nil
}

func (p *Provider) verifySignature(event provider.WebhookEvent) bool {
	msgID := event.Headers.Get("webhook-id")
	timestamp := event.Headers.Get("webhook-timestamp")
	signatures := event.Headers.Get("webhook-signature")
	if msgID == "" || timestamp == "" || signatures == "" {
		return false
	}

	secret := strings.TrimPrefix(p.webhookSecret, "whsec_")
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(event.Body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// The header may carry several space-separated versioned signatures.
	for _, part := range strings.Fields(signatures) {
		candidate := strings.TrimPrefix(part, "v1,")
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return true
		}
	}
	return false
}
