package destination

import (
	"fmt"
	"sync"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// Validator checks the rail-specific fields of a destination.
type Validator func(dest *domain.Destination) error

// Registry maps each rail to its destination validator. Adding a rail means
// registering one more Validator.
type Registry struct {
	mu         sync.RWMutex
	validators map[domain.Rail]Validator
}

// NewRegistry returns a registry with validators for every concrete rail.
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[domain.Rail]Validator)}
	r.Register(domain.RailPix, ValidatePix)
	r.Register(domain.RailSPEI, ValidateSPEI)
	r.Register(domain.RailACH, ValidateACH)
	r.Register(domain.RailWire, ValidateWire)
	r.Register(domain.RailUSDC, ValidateUSDC)
	return r
}

func (r *Registry) Register(rail domain.Rail, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[rail] = v
}

func (r *Registry) Validate(dest *domain.Destination) error {
	if dest == nil {
		return nil
	}
	if dest.Rail == domain.RailAuto {
		return domain.Validationf("destination rail must be concrete, got %q", dest.Rail)
	}
	r.mu.RLock()
	v, ok := r.validators[dest.Rail]
	r.mu.RUnlock()
	if !ok {
		return domain.Validationf("no destination validator for rail %q", dest.Rail)
	}
	if err := v(dest); err != nil {
		return fmt.Errorf("%s destination: %w", dest.Rail, err)
	}
	return nil
}

// ResolveRail picks the concrete rail for an execution. A destination wins
// over currency defaults when the rule rail is auto.
func ResolveRail(rail domain.Rail, currency string, dest *domain.Destination) domain.Rail {
	if rail != domain.RailAuto && rail != "" {
		return rail
	}
	if dest != nil && dest.Rail != "" && dest.Rail != domain.RailAuto {
		return dest.Rail
	}
	switch currency {
	case "BRL":
		return domain.RailPix
	case "MXN":
		return domain.RailSPEI
	case "USD":
		return domain.RailACH
	case "USDC":
		return domain.RailUSDC
	default:
		return domain.RailWire
	}
}
