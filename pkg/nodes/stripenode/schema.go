// Package stripenode declares the Stripe billing nodes.
package stripenode

import (
	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "stripe"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "stripe_create_customer",
			Name:     "Create Customer",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "email", Label: "Email", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "name", Label: "Name", Type: domain.ConfigFieldType_String},
				{Key: "description", Label: "Description", Type: domain.ConfigFieldType_String},
			},
			Execute: createCustomer,
		},
		{
			ID:       "stripe_get_customer",
			Name:     "Get Customer",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "customer_id", Label: "Customer", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: getCustomer,
		},
		{
			ID:       "stripe_create_payment_intent",
			Name:     "Create Payment Intent",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "amount", Label: "Amount", Type: domain.ConfigFieldType_Integer, Required: true, Help: "Amount in the smallest currency unit, e.g. cents"},
				{Key: "currency", Label: "Currency", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "customer_id", Label: "Customer", Type: domain.ConfigFieldType_String},
				{Key: "capture_later", Label: "Manual Capture", Type: domain.ConfigFieldType_Boolean, Default: false},
			},
			Execute: createPaymentIntent,
		},
		{
			ID:       "stripe_capture_payment_intent",
			Name:     "Capture Payment Intent",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "payment_intent_id", Label: "Payment Intent", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: capturePaymentIntent,
		},
		{
			ID:       "stripe_create_refund",
			Name:     "Create Refund",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "payment_intent_id", Label: "Payment Intent", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "amount", Label: "Amount", Type: domain.ConfigFieldType_Integer, Help: "Leave empty for a full refund"},
			},
			Execute: createRefund,
		},
		{
			ID:       "stripe_list_charges",
			Name:     "List Charges",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "customer_id", Label: "Customer", Type: domain.ConfigFieldType_String},
				{Key: "limit", Label: "Limit", Type: domain.ConfigFieldType_Integer, Default: 10},
			},
			Execute: listCharges,
		},
		{
			ID:       "stripe_create_product",
			Name:     "Create Product",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "name", Label: "Name", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "description", Label: "Description", Type: domain.ConfigFieldType_String},
			},
			Execute: createProduct,
		},
	}
}
