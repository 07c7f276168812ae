package klant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/openklant"
	"nlportal/pkg/email"
)

type fakeOpenKlant struct {
	klanten []openklant.Klant
	patched map[string]openklant.KlantUpdate
}

func (f *fakeOpenKlant) FindKlanten(context.Context, authentication.Authentication) ([]openklant.Klant, error) {
	return f.klanten, nil
}

func (f *fakeOpenKlant) PatchKlant(_ context.Context, _ authentication.Authentication, ref string, update openklant.KlantUpdate) (*openklant.Klant, error) {
	f.patched[ref] = update
	k := f.klanten[0]
	if update.Emailadres != nil {
		k.Emailadres = *update.Emailadres
	}
	if update.Telefoonnummer != nil {
		k.Telefoonnummer = *update.Telefoonnummer
	}
	return &k, nil
}

func ptr(s string) *string { return &s }

func TestUpdateContact(t *testing.T) {
	registry := &fakeOpenKlant{
		klanten: []openklant.Klant{{URL: "https://klanten.example/api/v1/klanten/k1", Klantnummer: "k1"}},
		patched: map[string]openklant.KlantUpdate{},
	}
	svc, err := NewService(registry, nil)
	require.NoError(t, err)
	citizen := authentication.NewCitizen("t", "999993653", nil, nil)

	k, err := svc.UpdateContact(context.Background(), citizen, openklant.KlantUpdate{
		Emailadres:     ptr("s.moulin@Gemeente.NL"),
		Telefoonnummer: ptr("06-1234 5678"),
	})
	require.NoError(t, err)
	assert.Equal(t, "s.moulin@gemeente.nl", k.Emailadres)
	assert.Equal(t, "0612345678", k.Telefoonnummer)

	sent := registry.patched["https://klanten.example/api/v1/klanten/k1"]
	require.NotNil(t, sent.Emailadres)
	assert.Equal(t, "s.moulin@gemeente.nl", *sent.Emailadres)
}

func TestUpdateContact_NoKlant(t *testing.T) {
	svc, err := NewService(&fakeOpenKlant{}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateContact(context.Background(), authentication.NewCitizen("t", "999993653", nil, nil),
		openklant.KlantUpdate{Emailadres: ptr("a@b.nl")})
	assert.ErrorIs(t, err, ErrKlantNotFound)
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name    string
		update  openklant.KlantUpdate
		wantErr error
	}{
		{"empty", openklant.KlantUpdate{}, ErrNothingToPatch},
		{"bad email", openklant.KlantUpdate{Emailadres: ptr("nope")}, email.ErrInvalid},
		{"letters in phone", openklant.KlantUpdate{Telefoonnummer: ptr("06-abcdefgh")}, ErrInvalidPhone},
		{"short phone", openklant.KlantUpdate{Telefoonnummer: ptr("12345")}, ErrInvalidPhone},
		{"plus inside phone", openklant.KlantUpdate{Telefoonnummer: ptr("06+12345678")}, ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateUpdate(tt.update)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("international phone", func(t *testing.T) {
		out, err := ValidateUpdate(openklant.KlantUpdate{Telefoonnummer: ptr("+31 6 12345678")})
		require.NoError(t, err)
		assert.Equal(t, "+31612345678", *out.Telefoonnummer)
		assert.Nil(t, out.Emailadres)
	})
}
