package payments

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-core/pkg/config"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

// Gateway creates orders at the external payment provider. The returned id is
// the opaque handle the client hands to the provider's checkout widget.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, receipt string) (string, error)
}

type gatewayObserver interface {
	ObserveGateway(operation, outcome string, duration time.Duration)
}

const opCreateOrder = "create_order"

// NewGateway returns the sandbox gateway when cfg.Sandbox is set, and the
// HTTP gateway otherwise.
func NewGateway(cfg config.GatewayConfig, logg *logger.Logger, observer gatewayObserver) Gateway {
	if cfg.Sandbox {
		return NewSandboxGateway(logg)
	}
	return NewHTTPGateway(cfg, logg, observer)
}
