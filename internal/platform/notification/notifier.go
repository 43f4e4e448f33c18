// Package notification renders and delivers the e-mails sent when a patient
// shares data or a clinician adds a patient to their list.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier sends templated e-mails in the background. Delivery is best
// effort: a failed send is retried with exponential backoff up to
// maxAttempts times, and the final failure is logged, never returned.
type Notifier struct {
	sender      EmailSender
	templates   *TemplateEngine
	logger      zerolog.Logger
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	wg          sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithRetry sets how many times a message is attempted and the delay before
// the first retry. The delay doubles after each failure.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(n *Notifier) {
		if attempts > 0 {
			n.maxAttempts = attempts
		}
		if backoff >= 0 {
			n.backoff = backoff
		}
	}
}

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

func NewNotifier(sender EmailSender, templates *TemplateEngine, logger zerolog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		sender:      sender,
		templates:   templates,
		logger:      logger.With().Str("component", "notification").Logger(),
		timeout:     15 * time.Second,
		maxAttempts: 3,
		backoff:     time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify renders templateID and sends it to recipient. It returns
// immediately; the request context only contributes its values.
func (n *Notifier) Notify(ctx context.Context, templateID, recipient string, data map[string]string) {
	if recipient == "" {
		return
	}
	subject, body, err := n.templates.Render(templateID, data)
	if err != nil {
		n.logger.Error().Err(err).Str("template", templateID).Msg("render failed")
		return
	}

	base := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		attempts, err := n.deliver(base, recipient, subject, body)
		if err != nil {
			n.logger.Warn().Err(err).Str("template", templateID).Str("to", recipient).
				Int("attempts", attempts).Msg("notification not delivered")
			return
		}
		n.logger.Debug().Str("template", templateID).Str("to", recipient).
			Int("attempts", attempts).Msg("notification sent")
	}()
}

// deliver attempts the send up to maxAttempts times and reports how many
// attempts were made.
func (n *Notifier) deliver(ctx context.Context, to, subject, body string) (int, error) {
	delay := n.backoff
	var err error
	for attempt := 1; ; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		err = n.sender.SendEmail(sendCtx, to, subject, body)
		cancel()
		if err == nil || attempt >= n.maxAttempts {
			return attempt, err
		}
		n.logger.Debug().Err(err).Str("to", to).Int("attempt", attempt).Dur("retry_in", delay).Msg("notification send failed")
		time.Sleep(delay)
		delay *= 2
	}
}

// Wait blocks until in-flight notifications finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
