package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolConstraint is the batch envelope protocol range this client
// speaks. The service reports its protocol version via GET /info.
const ProtocolConstraint = "^1"

// ErrProtocolIncompatible marks a service whose batch protocol this client
// cannot speak.
var ErrProtocolIncompatible = errors.New("incompatible service protocol")

// ServiceInfo is the identity document the list service serves at /info.
type ServiceInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Protocol string `json:"protocol"`
}

// Info fetches the service identity document.
func (h *HTTP) Info(ctx context.Context) (*ServiceInfo, error) {
	var info ServiceInfo
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/info")
	if err != nil {
		return nil, fmt.Errorf("fetching service info: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("service info request failed: status %d: %s",
			resp.StatusCode(), bodySnippet(resp.Body()))
	}
	return &info, nil
}

// CheckProtocol reports whether the service's batch protocol satisfies
// ProtocolConstraint.
func CheckProtocol(info *ServiceInfo) error {
	constraint, err := semver.NewConstraint(ProtocolConstraint)
	if err != nil {
		return fmt.Errorf("parsing protocol constraint %q: %w", ProtocolConstraint, err)
	}
	v, err := semver.NewVersion(info.Protocol)
	if err != nil {
		return fmt.Errorf("parsing service protocol %q: %w", info.Protocol, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: service speaks %s, this client needs %s",
			ErrProtocolIncompatible, info.Protocol, ProtocolConstraint)
	}
	return nil
}
