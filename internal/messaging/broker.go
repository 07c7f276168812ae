// Package messaging delivers portal messages to the sessions of their
// recipient. A Broker owns every subscription; producers hold a Publisher
// and consumers call Subscribe with the recipient's subject id.
//
// Without a Backend delivery stays within the process. With the Redis
// backend every instance publishes to one channel and delivers what it
// receives to its local subscribers, so a message reaches the recipient
// whichever instance holds the stream.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "nlportal/pkg/domain-errors"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 16

var ErrBrokerClosed = errors.New("message broker closed")

// ErrInvalidType rejects types that would break the stream framing.
var ErrInvalidType = dErrors.New(dErrors.CodeValidation, "type must not contain line breaks")

func validType(msgType string) bool {
	return !strings.ContainsAny(msgType, "\r\n")
}

// Message is one portal notification.
type Message struct {
	ID        string          `json:"id"`
	Recipient string          `json:"recipient"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Recorder receives broker events. *metrics.Metrics implements it.
type Recorder interface {
	MessagePublished()
	MessageDropped()
	SubscriptionOpened()
	SubscriptionClosed()
}

type nopRecorder struct{}

func (nopRecorder) MessagePublished()   {}
func (nopRecorder) MessageDropped()     {}
func (nopRecorder) SubscriptionOpened() {}
func (nopRecorder) SubscriptionClosed() {}

// Backend distributes messages between broker instances.
type Backend interface {
	Publish(ctx context.Context, msg Message) error
	// Receive blocks, handing every message published by any instance to
	// deliver, until ctx is done.
	Receive(ctx context.Context, deliver func(Message)) error
}

// Subscription is one consumer's view of a recipient's messages. C is
// closed when the subscription or the broker is closed.
type Subscription struct {
	C <-chan Message

	ch        chan Message
	recipient string
	broker    *Broker
	once      sync.Once
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.broker.remove(s) })
}

type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool

	buffer   int
	backend  Backend
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Broker)

func WithBackend(b Backend) Option {
	return func(br *Broker) { br.backend = b }
}

func WithRecorder(r Recorder) Option {
	return func(br *Broker) { br.recorder = r }
}

func WithBuffer(n int) Option {
	return func(br *Broker) {
		if n > 0 {
			br.buffer = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(br *Broker) { br.logger = l }
}

func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subs:     make(map[string]map[*Subscription]struct{}),
		buffer:   DefaultBuffer,
		recorder: nopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe opens a subscription for recipient.
func (b *Broker) Subscribe(recipient string) (*Subscription, error) {
	ch := make(chan Message, b.buffer)
	sub := &Subscription{C: ch, ch: ch, recipient: recipient, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	set, ok := b.subs[recipient]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[recipient] = set
	}
	set[sub] = struct{}{}
	b.recorder.SubscriptionOpened()
	return sub, nil
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[sub.recipient]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.recipient)
	}
	close(sub.ch)
	b.recorder.SubscriptionClosed()
}

// deliver hands msg to the recipient's local subscriptions. A subscription
// whose queue is full loses the message.
func (b *Broker) deliver(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[msg.Recipient] {
		select {
		case sub.ch <- msg:
		default:
			b.recorder.MessageDropped()
			b.logger.Warn("dropping message for slow subscriber",
				"message_id", msg.ID,
				"type", msg.Type,
			)
		}
	}
}

func (b *Broker) publish(ctx context.Context, msg Message) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBrokerClosed
	}

	b.recorder.MessagePublished()
	if b.backend == nil {
		b.deliver(msg)
		return nil
	}
	if err := b.backend.Publish(ctx, msg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to publish message")
	}
	return nil
}

// Run pumps messages from the backend into local subscriptions until ctx is
// done. Without a backend it only waits for ctx.
func (b *Broker) Run(ctx context.Context) error {
	if b.backend == nil {
		<-ctx.Done()
		return nil
	}
	err := b.backend.Receive(ctx, b.deliver)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close ends every subscription. Later Subscribe and Publish calls fail.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for recipient, set := range b.subs {
		for sub := range set {
			close(sub.ch)
			b.recorder.SubscriptionClosed()
		}
		delete(b.subs, recipient)
	}
}

// Publisher returns a producer handle bound to b.
func (b *Broker) Publisher() *Publisher {
	return &Publisher{broker: b}
}

// Publisher creates messages and hands them to the broker.
type Publisher struct {
	broker *Broker
}

// Publish sends a message of msgType to recipient. payload is encoded as
// JSON; nil leaves it empty.
func (p *Publisher) Publish(ctx context.Context, recipient, msgType string, payload any) (Message, error) {
	if recipient == "" {
		return Message{}, dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if msgType == "" {
		return Message{}, dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if !validType(msgType) {
		return Message{}, ErrInvalidType
	}
	msg := Message{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Type:      msgType,
		CreatedAt: p.broker.now().UTC(),
	}
	if payload != nil {
		raw, ok := payload.(json.RawMessage)
		if !ok {
			var err error
			if raw, err = json.Marshal(payload); err != nil {
				return Message{}, dErrors.Wrap(err, dErrors.CodeValidation, "payload is not JSON encodable")
			}
		}
		msg.Payload = raw
	}
	if err := p.broker.publish(ctx, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
