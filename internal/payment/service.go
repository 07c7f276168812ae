// Package payment builds signed Ogone (Ingenico e-Commerce) payment forms
// and verifies the post-sale callbacks that report their outcome.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"nlportal/internal/authentication"
	dErrors "nlportal/pkg/domain-errors"
)

var (
	ErrInvalidAmount    = dErrors.New(dErrors.CodeValidation, "amount must be a positive number of cents")
	ErrInvalidSignature = dErrors.New(dErrors.CodeForbidden, "postsale signature does not match")
	ErrMissingSignature = dErrors.New(dErrors.CodeBadRequest, "postsale request has no SHASIGN")
)

// paramReference is the PARAMPLUS key Ogone echoes back on the callback.
const paramReference = "reference"

// Config is the merchant configuration.
type Config struct {
	PSPID     string
	ShaInKey  string
	ShaOutKey string
	Algorithm string
	URL       string
	Currency  string
	Language  string
}

// Notifier is told about verified payment outcomes.
type Notifier interface {
	PaymentCompleted(ctx context.Context, result Result)
}

// Request describes the payment a principal wants to make.
type Request struct {
	AmountCents  int64
	Reference    string
	Title        string
	AcceptURL    string
	DeclineURL   string
	CancelURL    string
	ExceptionURL string
}

// Form is the auto-submitting form the browser posts to Ogone.
type Form struct {
	Action  string
	OrderID string
	Fields  map[string]string
}

// Result is a verified post-sale callback.
type Result struct {
	OrderID   string
	PayID     string
	Status    int
	Amount    string
	Currency  string
	Reference string
	Recipient string
	Succeeded bool
}

type Service struct {
	cfg      Config
	in       *Signer
	out      *Signer
	notifier Notifier
	logger   *slog.Logger
	newID    func() string
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOrderIDs replaces the order id source.
func WithOrderIDs(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	if cfg.PSPID == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "ogone pspId is required")
	}
	if cfg.URL == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "ogone url is required")
	}
	alg, err := ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	in, err := NewSigner(alg, cfg.ShaInKey)
	if err != nil {
		return nil, fmt.Errorf("sha-in: %w", err)
	}
	out, err := NewSigner(alg, cfg.ShaOutKey)
	if err != nil {
		return nil, fmt.Errorf("sha-out: %w", err)
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if cfg.Language == "" {
		cfg.Language = "nl_NL"
	}
	s := &Service{
		cfg:    cfg,
		in:     in,
		out:    out,
		logger: slog.Default(),
		newID: func() string {
			return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:30]
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BuildForm returns the signed payment form for auth. The principal is
// carried in COMPLUS so the post-sale callback can address the outcome.
func (s *Service) BuildForm(ctx context.Context, auth authentication.Authentication, req Request) (*Form, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	orderID := s.newID()
	fields := map[string]string{
		"PSPID":        s.cfg.PSPID,
		"ORDERID":      orderID,
		"AMOUNT":       strconv.FormatInt(req.AmountCents, 10),
		"CURRENCY":     s.cfg.Currency,
		"LANGUAGE":     s.cfg.Language,
		"COM":          req.Title,
		"PARAMPLUS":    paramReference + "=" + url.QueryEscape(req.Reference),
		"COMPLUS":      string(auth.Kind()) + ":" + auth.SubjectID(),
		"ACCEPTURL":    req.AcceptURL,
		"DECLINEURL":   req.DeclineURL,
		"CANCELURL":    req.CancelURL,
		"EXCEPTIONURL": req.ExceptionURL,
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	fields[ParamSHASign] = s.in.Sign(fields)

	s.logger.InfoContext(ctx, "payment form built",
		"order_id", orderID,
		"amount", req.AmountCents,
	)
	return &Form{Action: s.cfg.URL, OrderID: orderID, Fields: fields}, nil
}

// successful Ogone STATUS values: authorised, payment requested, and
// payment processing.
func succeeded(status int) bool {
	return status == 5 || status == 9 || status == 91
}

// VerifyPostsale checks the SHA-OUT signature of a post-sale callback and
// returns its outcome. Only the SHA-OUT parameters are signed; the
// reference comes back unsigned as the PARAMPLUS echo.
func (s *Service) VerifyPostsale(ctx context.Context, values url.Values) (*Result, error) {
	params := make(map[string]string, len(values))
	var signature, reference string
	for k, v := range values {
		if len(v) == 0 {
			continue
		}
		switch {
		case strings.EqualFold(k, ParamSHASign):
			signature = v[0]
		case k == paramReference:
			reference = v[0]
		case isSHAOutParam(k):
			params[strings.ToUpper(k)] = v[0]
		}
	}
	if signature == "" {
		return nil, ErrMissingSignature
	}
	if !s.out.Verify(params, signature) {
		s.logger.WarnContext(ctx, "postsale signature mismatch", "order_id", params["ORDERID"])
		return nil, ErrInvalidSignature
	}

	status, _ := strconv.Atoi(params["STATUS"])
	result := Result{
		OrderID:   params["ORDERID"],
		PayID:     params["PAYID"],
		Status:    status,
		Amount:    params["AMOUNT"],
		Currency:  params["CURRENCY"],
		Reference: reference,
		Succeeded: succeeded(status),
	}
	if _, id, ok := strings.Cut(params["COMPLUS"], ":"); ok {
		result.Recipient = id
	}

	s.logger.InfoContext(ctx, "postsale verified",
		"order_id", result.OrderID,
		"status", result.Status,
		"succeeded", result.Succeeded,
	)
	if s.notifier != nil && result.Recipient != "" {
		s.notifier.PaymentCompleted(ctx, result)
	}
	return &result, nil
}
