// Package stripe implements the Stripe payment provider on top of the
// official stripe-go client. Orders are read from completed checkout
// sessions; webhook signatures are verified with Stripe's webhook package.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"

	"github.com/shipforge/payment-ledger/internal/config"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

// Provider is the Stripe adapter.
type Provider struct {
	api           *client.API
	webhookSecret string
	checkout      config.CheckoutConfig
	configured    bool
	enabled       bool
	log           *slog.Logger
}

// New builds the Stripe adapter from configuration. A missing API key leaves
// the adapter unconfigured; its methods then return neutral results.
func New(cfg config.StripeConfig, checkout config.CheckoutConfig, log *slog.Logger) *Provider {
	p := &Provider{
		webhookSecret: cfg.WebhookSecret,
		checkout:      checkout,
		enabled:       cfg.Enabled,
		log:           log,
	}
	if cfg.APIKey == "" {
		log.Warn("stripe api key not provided, provider not configured")
		return p
	}
	p.api = client.New(cfg.APIKey, nil)
	p.configured = true
	return p
}

// ID implements provider.PaymentProvider.
func (p *Provider) ID() string { return provider.ProcessorStripe }

// Name implements provider.PaymentProvider.
func (p *Provider) Name() string { return "Stripe" }

// IsConfigured implements provider.PaymentProvider.
func (p *Provider) IsConfigured() bool { return p.configured }

// IsEnabled implements provider.PaymentProvider.
func (p *Provider) IsEnabled() bool { return p.enabled }

func (p *Provider) ready() bool { return p.configured && p.enabled }

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

// HasUserPurchasedProduct reports whether a paid order for the product
// exists for the e-mail. The product id is a Stripe price id.
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

// HasUserActiveSubscription reports whether the e-mail's Stripe customer has
// an active subscription.
func (p *Provider) HasUserActiveSubscription(ctx context.Context, email string) (bool, error) {
	const op = "stripe.HasUserActiveSubscription"
	if !p.ready() {
		return false, nil
	}

	customer, found, err := p.findCustomerByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return false, nil
	}

	params := &stripego.SubscriptionListParams{
		Customer: stripego.String(customer.ID),
		Status:   stripego.String(string(stripego.SubscriptionStatusActive)),
	}
	params.Context = ctx
	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		return true, nil
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return false, nil
}

// GetUserPurchasedProducts lists the products behind the e-mail's Stripe
// subscriptions.
func (p *Provider) GetUserPurchasedProducts(ctx context.Context, email string) ([]models.ProductData, error) {
	const op = "stripe.GetUserPurchasedProducts"
	if !p.ready() {
		return nil, nil
	}

	customer, found, err := p.findCustomerByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}

	params := &stripego.SubscriptionListParams{
		Customer: stripego.String(customer.ID),
	}
	params.Context = ctx
	var products []models.ProductData
	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		if sub.Items == nil {
			continue
		}
		for _, item := range sub.Items.Data {
			if item.Price == nil || item.Price.Product == nil {
				continue
			}
			product, err := p.api.Products.Get(item.Price.Product.ID, nil)
			if err != nil {
				p.log.Warn("failed to retrieve product for subscription",
					slog.String("subscription_id", sub.ID),
					slog.String("price_id", item.Price.ID), sl.Err(err))
				continue
			}
			price := float64(item.Price.UnitAmount) / 100
			products = append(products, models.ProductData{
				ID:             item.Price.ID,
				Name:           product.Name,
				Price:          &price,
				Description:    product.Description,
				IsSubscription: true,
				Provider:       p.ID(),
				Attributes: map[string]any{
					"product_id":      product.ID,
					"price_id":        item.Price.ID,
					"subscription_id": sub.ID,
					"status":          string(sub.Status),
				},
			})
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// GetAllOrders lists every checkout session as a normalized order.
func (p *Provider) GetAllOrders(ctx context.Context) ([]models.OrderData, error) {
	const op = "stripe.GetAllOrders"
	if !p.ready() {
		return nil, nil
	}

	params := &stripego.CheckoutSessionListParams{}
	params.Context = ctx
	params.AddExpand("data.line_items")
	params.AddExpand("data.customer")

	var orders []models.OrderData
	iter := p.api.CheckoutSessions.List(params)
	for iter.Next() {
		orders = append(orders, p.sessionToOrder(iter.CheckoutSession()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// GetOrdersByEmail lists the checkout sessions belonging to one e-mail.
func (p *Provider) GetOrdersByEmail(ctx context.Context, email string) ([]models.OrderData, error) {
	if !p.ready() {
		return nil, nil
	}
	all, err := p.GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	var result []models.OrderData
	for _, order := range all {
		if strings.EqualFold(order.UserEmail, email) {
			result = append(result, order)
		}
	}
	return result, nil
}

// CreateCheckoutURL creates a hosted Stripe checkout session. The product id
// is a Stripe price id.
func (p *Provider) CreateCheckoutURL(ctx context.Context, opts models.CheckoutOptions) (string, error) {
	const op = "stripe.CreateCheckoutURL"
	if !p.ready() {
		return "", provider.ErrNotConfigured
	}

	successURL := opts.SuccessURL
	if successURL == "" {
		successURL = p.checkout.SuccessURL
	}
	cancelURL := opts.CancelURL
	if cancelURL == "" {
		cancelURL = p.checkout.CancelURL
	}

	params := &stripego.CheckoutSessionParams{
		Mode: stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			Price:    stripego.String(opts.ProductID),
			Quantity: stripego.Int64(1),
		}},
		SuccessURL:          stripego.String(successURL),
		CancelURL:           stripego.String(cancelURL),
		AllowPromotionCodes: stripego.Bool(true),
	}
	params.Context = ctx
	if opts.Email != "" {
		params.CustomerEmail = stripego.String(opts.Email)
	}
	if opts.UserUID != "" {
		params.ClientReferenceID = stripego.String(opts.UserUID)
	}
	for k, v := range opts.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}

// ParseWebhookEvent verifies the Stripe-Signature header and returns the
// normalized order for completed, paid checkout sessions.
func (p *Provider) ParseWebhookEvent(_ context.Context, event provider.WebhookEvent) (*models.OrderData, error) {
	const op = "stripe.ParseWebhookEvent"
	if !p.ready() || p.webhookSecret == "" {
		p.log.Warn("received stripe webhook, but provider not configured, dropping event")
		return nil, nil
	}

	stripeEvent, err := webhook.ConstructEventWithOptions(
		event.Body,
		event.Headers.Get("Stripe-Signature"),
		p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, provider.ErrInvalidSignature)
	}

	if stripeEvent.Type != "checkout.session.completed" {
		return nil, nil
	}

	var session stripego.CheckoutSession
	if err := json.Unmarshal(stripeEvent.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%s: failed to parse session: %w", op, err)
	}
	if session.PaymentStatus != stripego.CheckoutSessionPaymentStatusPaid {
		return nil, nil
	}

	order := p.sessionToOrder(&session)
	return &order, nil
}

func (p *Provider) sessionToOrder(session *stripego.CheckoutSession) models.OrderData {
	order := models.OrderData{
		ID:           session.ID,
		OrderID:      session.ID,
		Amount:       float64(session.AmountTotal) / 100,
		Status:       models.OrderStatusPending,
		PurchaseDate: time.Unix(session.Created, 0),
		Processor:    p.ID(),
		Attributes: map[string]any{
			"currency":       string(session.Currency),
			"payment_status": string(session.PaymentStatus),
			"mode":           string(session.Mode),
		},
	}
	if session.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid {
		order.Status = models.OrderStatusPaid
	}

	if details := session.CustomerDetails; details != nil {
		order.UserEmail = details.Email
		order.UserName = details.Name
		enhanced := &models.EnhancedUserData{}
		if details.Phone != "" {
			phone := details.Phone
			enhanced.Phone = &phone
		}
		if details.Address != nil {
			enhanced.Address = map[string]any{
				"line1":       details.Address.Line1,
				"line2":       details.Address.Line2,
				"city":        details.Address.City,
				"state":       details.Address.State,
				"postal_code": details.Address.PostalCode,
				"country":     details.Address.Country,
			}
		}
		if enhanced.Phone != nil || enhanced.Address != nil {
			order.EnhancedUser = enhanced
		}
	}
	if order.UserEmail == "" && session.Customer != nil {
		order.UserEmail = session.Customer.Email
	}

	if session.LineItems != nil && len(session.LineItems.Data) > 0 {
		item := session.LineItems.Data[0]
		order.ProductName = item.Description
		if item.Price != nil {
			order.ProductID = item.Price.ID
		}
	}
	if order.ProductName == "" {
		if name, ok := session.Metadata["product_name"]; ok {
			order.ProductName = name
		}
	}
	if session.Customer != nil {
		order.Attributes["customer_id"] = session.Customer.ID
	}
	return order
}

func (p *Provider) findCustomerByEmail(ctx context.Context, email string) (*stripego.Customer, bool, error) {
	params := &stripego.CustomerListParams{Email: stripego.String(email)}
	params.Context = ctx
	params.Limit = stripego.Int64(1)
	iter := p.api.Customers.List(params)
	for iter.Next() {
		return iter.Customer(), true, nil
	}
	if err := iter.Err(); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}
