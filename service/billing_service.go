package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aicfo-backend/logger"
	"aicfo-backend/metrics"
	"aicfo-backend/models"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v78"
	portalsession "github.com/stripe/stripe-go/v78/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/customer"
	stripesub "github.com/stripe/stripe-go/v78/subscription"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

var (
	ErrWebhookSignature   = errors.New("webhook signature verification failed")
	ErrNoSubscription     = errors.New("no active subscription")
	ErrStripeNotLinked    = errors.New("user has no billing customer record")
	ErrBillingUnavailable = errors.New("billing provider unavailable")
)

// SubscriptionStore persists subscription state
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	MarkCanceled(ctx context.Context, stripeSubID string) error
}

// BillingUserStore resolves and links users to billing customers
type BillingUserStore interface {
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
}

// BillingConfig carries the billing provider settings
type BillingConfig struct {
	SecretKey       string
	WebhookSecret   string
	PriceID         string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

// BillingService owns the subscription paywall: checkout and portal
// sessions, cancellation, status, and the webhook reconciler that mirrors
// the provider's subscription objects into local rows.
type BillingService struct {
	subs        SubscriptionStore
	users       BillingUserStore
	cfg         BillingConfig
	serviceName string
}

// BillingServiceOption is a functional option for BillingService
type BillingServiceOption func(*BillingService)

// BillingWithSubscriptionStore sets the subscription store
func BillingWithSubscriptionStore(s SubscriptionStore) BillingServiceOption {
	return func(b *BillingService) {
		b.subs = s
	}
}

// BillingWithUserStore sets the user store
func BillingWithUserStore(u BillingUserStore) BillingServiceOption {
	return func(b *BillingService) {
		b.users = u
	}
}

// BillingWithConfig sets the provider configuration
func BillingWithConfig(cfg BillingConfig) BillingServiceOption {
	return func(b *BillingService) {
		b.cfg = cfg
		if cfg.SecretKey != "" {
			stripe.Key = cfg.SecretKey
		}
	}
}

// BillingWithServiceName sets the service name used on webhook counters
func BillingWithServiceName(name string) BillingServiceOption {
	return func(b *BillingService) {
		b.serviceName = name
	}
}

// NewBillingService creates a new billing service
func NewBillingService(opts ...BillingServiceOption) *BillingService {
	s := &BillingService{serviceName: "aicfo-backend"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCheckoutSession starts a subscription checkout for the user,
// creating the billing customer on first use, and returns the hosted
// checkout URL.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, user *models.User) (string, error) {
	if s.users == nil {
		return "", errors.New("user store not set")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(user.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}

	return sess.URL, nil
}

// CreatePortalSession returns a hosted billing-portal URL for the user.
func (s *BillingService) CreatePortalSession(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrStripeNotLinked
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*user.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.PortalReturnURL),
	}

	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}

	return sess.URL, nil
}

// GetStatus returns the user's authoritative subscription, or nil when none
// is active or trialing.
func (s *BillingService) GetStatus(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if s.subs == nil {
		return nil, errors.New("subscription store not set")
	}
	return s.subs.GetActiveByUser(ctx, userID)
}

// CancelAtPeriodEnd flags the user's active subscription for cancellation at
// the period boundary, both upstream and locally.
func (s *BillingService) CancelAtPeriodEnd(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.GetStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}

	updated, err := stripesub.Update(sub.StripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}

	sub.Status = models.SubscriptionStatus(updated.Status)
	sub.CancelAtPeriodEnd = updated.CancelAtPeriodEnd
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// HandleWebhook verifies the provider signature over the raw request body
// and dispatches the event. Signature failures are the only error surfaced
// to the caller; processing problems after a valid signature are logged and
// swallowed so the provider's retry machinery is not told the event failed
// permanently.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	log := logger.FromContext(ctx)
	outcome := "ok"
	if err := s.dispatch(ctx, event); err != nil {
		outcome = "error"
		log.Error("webhook event processing failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
	metrics.WebhookEventCounter.WithLabelValues(s.serviceName, string(event.Type), outcome).Inc()

	return nil
}

// dispatch routes a verified event to its handler. The event enum is fixed
// by the provider; anything else is ignored.
func (s *BillingService) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to decode subscription event: %w", err)
		}
		return s.reconcileSubscription(ctx, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to decode subscription event: %w", err)
		}
		return s.subs.MarkCanceled(ctx, sub.ID)

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("failed to decode checkout session event: %w", err)
		}
		return s.linkCheckoutCustomer(ctx, &sess)

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to decode invoice event: %w", err)
		}
		// Subscription state changes arrive on their own events; invoices
		// are recorded for observability only.
		logger.FromContext(ctx).Info("invoice event received",
			zap.String("event_type", string(event.Type)),
			zap.String("invoice_id", inv.ID),
		)
		return nil

	default:
		logger.FromContext(ctx).Debug("ignoring unhandled webhook event",
			zap.String("event_type", string(event.Type)),
		)
		return nil
	}
}

// reconcileSubscription maps a provider subscription object onto the local
// row keyed by its subscription id. An unmatched customer reference is a
// logged no-op.
func (s *BillingService) reconcileSubscription(ctx context.Context, sub *stripe.Subscription) error {
	if s.subs == nil || s.users == nil {
		return errors.New("billing stores not set")
	}
	if sub.Customer == nil {
		return errors.New("subscription event carries no customer reference")
	}

	user, err := s.users.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil || user == nil {
		logger.FromContext(ctx).Warn("webhook customer has no local user, skipping",
			zap.String("stripe_customer_id", sub.Customer.ID),
			zap.String("stripe_subscription_id", sub.ID),
		)
		return nil
	}

	return s.subs.Upsert(ctx, &models.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: sub.ID,
		Status:               models.SubscriptionStatus(sub.Status),
		CurrentPeriodStart:   time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:     time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	})
}

// linkCheckoutCustomer back-fills the user's billing customer reference
// after a completed checkout, using the client reference id set when the
// session was created.
func (s *BillingService) linkCheckoutCustomer(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess.Customer == nil || sess.ClientReferenceID == "" {
		return nil
	}

	userID, err := uuid.Parse(sess.ClientReferenceID)
	if err != nil {
		return fmt.Errorf("checkout session carries invalid client reference: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("checkout session references unknown user, skipping",
			zap.String("client_reference_id", sess.ClientReferenceID),
		)
		return nil
	}

	if user.StripeCustomerID != nil && *user.StripeCustomerID == sess.Customer.ID {
		return nil
	}
	return s.users.SetStripeCustomerID(ctx, user.ID, sess.Customer.ID)
}

// ensureCustomer returns the user's billing customer id, creating the
// customer upstream on first use.
func (s *BillingService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	cust, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(user.Email),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}

	if err := s.users.SetStripeCustomerID(ctx, user.ID, cust.ID); err != nil {
		return "", err
	}

	return cust.ID, nil
}
