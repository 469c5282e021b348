package ports

import (
	"context"

	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

// ProviderClient is the subset of the Provider API the gateway uses.
// abacatepay.Client satisfies it.
type ProviderClient interface {
	CreateBilling(ctx context.Context, req abacatepay.CreateBillingRequest) (abacatepay.Billing, error)
	GetBilling(ctx context.Context, id string) (abacatepay.Billing, error)
	CreatePixQRCode(ctx context.Context, req abacatepay.CreatePixQRCodeRequest) (abacatepay.PixQRCode, error)
	SimulatePixPayment(ctx context.Context, id string, metadata map[string]any) (abacatepay.PixQRCode, error)
	GetStore(ctx context.Context) (abacatepay.Store, error)
}

// ProviderFactory binds a client to the active API key.
type ProviderFactory func(apiKey string) ProviderClient

var _ ProviderClient = abacatepay.Client{}
