package payment

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/authentication"
	"nlportal/pkg/testutil"
)

func TestSigner_KnownDigest(t *testing.T) {
	// Worked example from the Ogone integration guide.
	s, err := NewSigner(SHA1, "Mysecretsig1875!?")
	require.NoError(t, err)

	sig := s.Sign(map[string]string{
		"AMOUNT":   "1500",
		"CURRENCY": "EUR",
		"LANGUAGE": "en_US",
		"ORDERID":  "1234",
		"PSPID":    "MyPSPID",
	})
	assert.Equal(t, "F4CC376CD7A834D997B91598FA747825A238BE0A", sig)
}

func TestSigner_Normalization(t *testing.T) {
	s, err := NewSigner(SHA512, "passphrase")
	require.NoError(t, err)

	a := s.Sign(map[string]string{"orderID": "1", "amount": "100", "COM": ""})
	b := s.Sign(map[string]string{"AMOUNT": "100", "ORDERID": "1", "SHASIGN": "ignored"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
	assert.Equal(t, strings.ToUpper(a), a)

	assert.True(t, s.Verify(map[string]string{"AMOUNT": "100", "ORDERID": "1"}, strings.ToLower(a)))
	assert.False(t, s.Verify(map[string]string{"AMOUNT": "101", "ORDERID": "1"}, a))
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{"": SHA512, "sha-256": SHA256, "SHA1": SHA1, "sha512": SHA512} {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlgorithm("MD5")
	assert.Error(t, err)
}

type recordingNotifier struct {
	results []Result
}

func (n *recordingNotifier) PaymentCompleted(_ context.Context, r Result) {
	n.results = append(n.results, r)
}

func newTestService(t *testing.T, n Notifier) *Service {
	t.Helper()
	svc, err := NewService(Config{
		PSPID:     "NLPORTAL",
		ShaInKey:  "in-passphrase",
		ShaOutKey: "out-passphrase",
		Algorithm: "SHA256",
		URL:       "https://secure.ogone.com/ncol/test/orderstandard_utf8.asp",
	}, WithNotifier(n), WithOrderIDs(func() string { return "ORDER1" }))
	require.NoError(t, err)
	return svc
}

func TestBuildForm(t *testing.T) {
	svc := newTestService(t, nil)
	citizen := authentication.NewCitizen("t", "999993653", nil, nil)

	form, err := svc.BuildForm(context.Background(), citizen, Request{AmountCents: 2450, Reference: "zaak-123", AcceptURL: "https://portal.example/betaald"})
	require.NoError(t, err)

	assert.Equal(t, "ORDER1", form.OrderID)
	assert.Equal(t, "2450", form.Fields["AMOUNT"])
	assert.Equal(t, "EUR", form.Fields["CURRENCY"])
	assert.Equal(t, "burger:999993653", form.Fields["COMPLUS"])
	assert.NotContains(t, form.Fields, "DECLINEURL")

	in, err := NewSigner(SHA256, "in-passphrase")
	require.NoError(t, err)
	assert.True(t, in.Verify(form.Fields, form.Fields[ParamSHASign]))

	_, err = svc.BuildForm(context.Background(), citizen, Request{AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

// signedPostsale builds a callback the way Ogone sends one: the SHA-OUT
// fields signed and the PARAMPLUS pairs echoed back unsigned.
func signedPostsale(t *testing.T, signed, echoed map[string]string) url.Values {
	t.Helper()
	out, err := NewSigner(SHA256, "out-passphrase")
	require.NoError(t, err)
	values := url.Values{}
	for k, v := range signed {
		values.Set(k, v)
	}
	for k, v := range echoed {
		values.Set(k, v)
	}
	values.Set(ParamSHASign, out.Sign(signed))
	return values
}

func TestVerifyPostsale(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestService(t, notifier)
	signed := map[string]string{
		"orderID":  "ORDER1",
		"PAYID":    "3014156250",
		"STATUS":   "9",
		"amount":   "24.5",
		"currency": "EUR",
		"COMPLUS":  "burger:999993653",
	}
	echoed := map[string]string{"reference": "zaak-123"}

	t.Run("valid", func(t *testing.T) {
		result, err := svc.VerifyPostsale(context.Background(), signedPostsale(t, signed, echoed))
		require.NoError(t, err)
		assert.True(t, result.Succeeded)
		assert.Equal(t, "zaak-123", result.Reference)
		assert.Equal(t, "999993653", result.Recipient)
		require.Len(t, notifier.results, 1)
		assert.Equal(t, "ORDER1", notifier.results[0].OrderID)
	})

	t.Run("unsigned extras are ignored", func(t *testing.T) {
		values := signedPostsale(t, signed, echoed)
		values.Set("session", "abc")
		_, err := svc.VerifyPostsale(context.Background(), values)
		require.NoError(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		values := signedPostsale(t, signed, echoed)
		values.Set("amount", "0.01")
		_, err := svc.VerifyPostsale(context.Background(), values)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unsigned", func(t *testing.T) {
		_, err := svc.VerifyPostsale(context.Background(), url.Values{"ORDERID": {"ORDER1"}})
		assert.ErrorIs(t, err, ErrMissingSignature)
	})
}

func TestHandlers(t *testing.T) {
	svc := newTestService(t, nil)
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterPublic(r)

	t.Run("create", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/payments/ogone", `{"amount":2450,"reference":"zaak-123"}`)
		rr := testutil.DoRequest(r, testutil.WithCitizen(req, "999993653"))
		require.Equal(t, http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[formResponse](t, rr)
		assert.Equal(t, "ORDER1", body.OrderID)
		assert.NotEmpty(t, body.Fields[ParamSHASign])
	})

	t.Run("create without reference", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/payments/ogone", `{"amount":2450}`)
		rr := testutil.DoRequest(r, testutil.WithCitizen(req, "999993653"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("postsale form body", func(t *testing.T) {
		values := signedPostsale(t, map[string]string{"ORDERID": "ORDER1", "STATUS": "2"}, nil)
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/payments/ogone/postsale", values.Encode())
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := testutil.DoRequest(r, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"orderId":"ORDER1","succeeded":false}`, rr.Body.String())
	})

	t.Run("postsale bad signature", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/payments/ogone/postsale?ORDERID=ORDER1&SHASIGN=00", "")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := testutil.DoRequest(r, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}
