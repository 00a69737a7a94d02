package ai

import (
	"context"
	"fmt"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// offlineProvider never calls out. The interpreter treats its error as a
// signal to use pattern and keyword rules only.
type offlineProvider struct {
	reason string
}

func newOfflineProvider(reason string) ports.Provider {
	return &offlineProvider{reason: reason}
}

func (p *offlineProvider) Name() string {
	return domain.ProviderOffline
}

func (p *offlineProvider) Complete(context.Context, ports.ProviderRequest) (ports.ProviderResponse, error) {
	return ports.ProviderResponse{}, fmt.Errorf("%w (%s)", domain.ErrProviderOffline, p.reason)
}
