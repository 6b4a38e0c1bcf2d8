package stripenode

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func newClient(ctx context.Context, ec *domain.ExecutionContext) (*client.API, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	sc := &client.API{}
	sc.Init(credential.Token, nil)

	return sc, nil
}

func customerOutput(customer *stripe.Customer) map[string]any {
	return map[string]any{
		"customer_id": customer.ID,
		"email":       customer.Email,
		"name":        customer.Name,
		"created":     customer.Created,
	}
}

type createCustomerParams struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func createCustomer(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createCustomerParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	sc, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(p.Email),
	}
	if p.Name != "" {
		params.Name = stripe.String(p.Name)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}

	customer, err := sc.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return customerOutput(customer), nil
}

type getCustomerParams struct {
	CustomerID string `json:"customer_id"`
}

func getCustomer(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := getCustomerParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	sc, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	customer, err := sc.Customers.Get(p.CustomerID, &stripe.CustomerParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return customerOutput(customer), nil
}

type createPaymentIntentParams struct {
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	CustomerID   string `json:"customer_id,omitempty"`
	CaptureLater bool   `json:"capture_later,omitempty"`
}

func createPaymentIntent(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createPaymentIntentParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	sc, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.CaptureLater {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}

	intent, err := sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return map[string]any{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount":            intent.Amount,
		"currency":          string(intent.Currency),
		"status":            string(intent.Status),
	}, nil
}

type capturePaymentIntentParams struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

func capturePaymentIntent(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := capturePaymentIntentParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	sc, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	intent, err := sc.PaymentIntents.Capture(p.PaymentIntentID, &stripe.PaymentIntentCaptureParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture payment intent: %w", err)
	}

	return map[string]any{
		"payment_intent_id": intent.ID,
		"amount_received":   intent.AmountReceived,
		"status":            string(intent.Status),
	}, nil
}

type createRefundParams struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount,omitempty"`
}

func createRefund(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createRefundParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	sc, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(p.PaymentIntentID),
	}
	if p.Amount > 0 {
		params.Amount = stripe.Int64(p.Amount)
	}

	refund, err := sc.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return map[string]any{
		"refund_id": refund.ID,
		"amount":    refund.Amount,
		"status":    string(refund.Status),
	}, nil
}

type listChargesParams struct {
	CustomerID string `json:"customer_id,omitempty"`
	Limit      int64  `json:"limit,omitempty"`
}

func listCharges(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := listChargesParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 10
	}

	sc, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	params := &stripe.ChargeListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(p.Limit)},
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}

	iter := sc.Charges.List(params)

	charges := []map[string]any{}
	for iter.Next() {
		charge := iter.Charge()
		charges = append(charges, map[string]any{
			"charge_id": charge.ID,
			"amount":    charge.Amount,
			"currency":  string(charge.Currency),
			"status":    string(charge.Status),
			"paid":      charge.Paid,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}

	return map[string]any{"charges": charges, "count": len(charges)}, nil
}

type createProductParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func createProduct(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createProductParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	sc, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	params := &stripe.ProductParams{
		Params: stripe.Params{Context: ctx},
		Name:   stripe.String(p.Name),
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}

	product, err := sc.Products.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return map[string]any{
		"product_id": product.ID,
		"name":       product.Name,
	}, nil
}
