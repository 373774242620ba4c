package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-core/pkg/logger"
)

// SandboxGateway issues local order ids for development. Pair it with
// Signer.Sign to produce confirmation payloads.
type SandboxGateway struct {
	logg *logger.Logger
}

func NewSandboxGateway(logg *logger.Logger) *SandboxGateway {
	return &SandboxGateway{logg: logg}
}

func (s *SandboxGateway) CreateOrder(ctx context.Context, amountMinor int64, receipt string) (string, error) {
	id := "order_" + uuid.NewString()
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"receipt":          receipt,
			"amount_minor":     amountMinor,
			"gateway_order_id": id,
		}), "gateway.sandbox.create_order")
	}
	return id, nil
}
