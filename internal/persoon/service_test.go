package persoon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/brp"
	"nlportal/pkg/domain"
	"nlportal/pkg/platform/sentinel"
)

type fakeBRP struct {
	personen map[domain.BSN]brp.Persoon
	bewoners map[string][]brp.Persoon
}

func (f fakeBRP) GetPersoon(_ context.Context, _ authentication.Authentication, bsn domain.BSN) (*brp.Persoon, error) {
	p, ok := f.personen[bsn]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (f fakeBRP) ListBewoners(_ context.Context, _ authentication.Authentication, id string) ([]brp.Persoon, error) {
	return f.bewoners[id], nil
}

func TestService(t *testing.T) {
	registry := fakeBRP{
		personen: map[domain.BSN]brp.Persoon{
			"999993653": {
				Burgerservicenummer: "999993653",
				Verblijfplaats:      &brp.Verblijfplaats{AdresseerbaarObjectIdentificatie: "0226010000038820"},
			},
			"999990019": {Burgerservicenummer: "999990019"},
		},
		bewoners: map[string][]brp.Persoon{
			"0226010000038820": {{Burgerservicenummer: "999993653"}, {Burgerservicenummer: "999991772"}},
		},
	}
	svc, err := NewService(registry)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("me", func(t *testing.T) {
		p, err := svc.Me(ctx, authentication.NewCitizen("t", "999993653", nil, nil))
		require.NoError(t, err)
		assert.Equal(t, "999993653", p.Burgerservicenummer)
	})

	t.Run("companies are refused", func(t *testing.T) {
		_, err := svc.Me(ctx, authentication.NewCompany("t", "69599084", nil, nil))
		assert.ErrorIs(t, err, ErrCitizenOnly)
	})

	t.Run("unknown bsn", func(t *testing.T) {
		_, err := svc.Me(ctx, authentication.NewCitizen("t", "999992958", nil, nil))
		assert.ErrorIs(t, err, ErrPersonNotFound)
	})

	t.Run("bewoners count", func(t *testing.T) {
		n, err := svc.BewonersCount(ctx, authentication.NewCitizen("t", "999993653", nil, nil))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("bewoners without address", func(t *testing.T) {
		_, err := svc.BewonersCount(ctx, authentication.NewCitizen("t", "999990019", nil, nil))
		assert.ErrorIs(t, err, ErrNoAddress)
	})
}
