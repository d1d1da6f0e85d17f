package destination

import (
	"errors"
	"testing"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dest(rail domain.Rail, details map[string]string) *domain.Destination {
	return &domain.Destination{Rail: rail, Details: details}
}

func TestRegistry_Validate(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name    string
		dest    *domain.Destination
		wantErr bool
	}{
		{"pix email", dest(domain.RailPix, map[string]string{"pix_key": "maria@email.com", "pix_key_type": "email"}), false},
		{"pix cpf", dest(domain.RailPix, map[string]string{"pix_key": "529.982.247-25", "pix_key_type": "cpf"}), false},
		{"pix cpf bad check digit", dest(domain.RailPix, map[string]string{"pix_key": "52998224724", "pix_key_type": "cpf"}), true},
		{"pix cnpj", dest(domain.RailPix, map[string]string{"pix_key": "11.222.333/0001-81", "pix_key_type": "cnpj"}), false},
		{"pix phone", dest(domain.RailPix, map[string]string{"pix_key": "+5511987654321", "pix_key_type": "phone"}), false},
		{"pix evp", dest(domain.RailPix, map[string]string{"pix_key": "123e4567-e89b-12d3-a456-426614174000", "pix_key_type": "evp"}), false},
		{"pix unknown key type", dest(domain.RailPix, map[string]string{"pix_key": "x", "pix_key_type": "iban"}), true},
		{"spei clabe", dest(domain.RailSPEI, map[string]string{"clabe": "032180000118359719"}), false},
		{"spei bad clabe", dest(domain.RailSPEI, map[string]string{"clabe": "032180000118359718"}), true},
		{"ach", dest(domain.RailACH, map[string]string{"routing_number": "021000021", "account_number": "123456789", "account_type": "checking"}), false},
		{"ach bad routing", dest(domain.RailACH, map[string]string{"routing_number": "021000022", "account_number": "123456789"}), true},
		{"wire iban", dest(domain.RailWire, map[string]string{"swift_bic": "WESTGB2L", "iban": "GB82 WEST 1234 5698 7654 32"}), false},
		{"wire bad iban", dest(domain.RailWire, map[string]string{"swift_bic": "WESTGB2L", "iban": "GB82WEST12345698765431"}), true},
		{"wire account number", dest(domain.RailWire, map[string]string{"swift_bic": "CHASUS33XXX", "account_number": "000123"}), false},
		{"wire missing account", dest(domain.RailWire, map[string]string{"swift_bic": "CHASUS33"}), true},
		{"usdc", dest(domain.RailUSDC, map[string]string{"address": "0x52908400098527886E0F7030069857D2E4169EE7"}), false},
		{"usdc short", dest(domain.RailUSDC, map[string]string{"address": "0x1234"}), true},
		{"auto rail", dest(domain.RailAuto, nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Validate(tt.dest)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistry_RegisterCustomRail(t *testing.T) {
	registry := NewRegistry()
	called := false
	registry.Register(domain.RailWire, func(*domain.Destination) error {
		called = true
		return nil
	})

	require.NoError(t, registry.Validate(dest(domain.RailWire, nil)))
	assert.True(t, called)
}

func TestResolveRail(t *testing.T) {
	pix := dest(domain.RailPix, nil)

	assert.Equal(t, domain.RailSPEI, ResolveRail(domain.RailSPEI, "BRL", pix))
	assert.Equal(t, domain.RailPix, ResolveRail(domain.RailAuto, "USD", pix))
	assert.Equal(t, domain.RailPix, ResolveRail(domain.RailAuto, "BRL", nil))
	assert.Equal(t, domain.RailSPEI, ResolveRail(domain.RailAuto, "MXN", nil))
	assert.Equal(t, domain.RailACH, ResolveRail(domain.RailAuto, "USD", nil))
	assert.Equal(t, domain.RailUSDC, ResolveRail(domain.RailAuto, "USDC", nil))
	assert.Equal(t, domain.RailWire, ResolveRail(domain.RailAuto, "EUR", nil))
}
