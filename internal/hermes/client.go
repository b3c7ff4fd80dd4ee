package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// conn is the part of *nats.Conn the client uses.
type conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// Client publishes chat report events and delivers archive submissions.
type Client struct {
	conn   conn
	subs   []*nats.Subscription
	now    func() time.Time
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("nats url is empty")
	}
	opts := []nats.Option{
		nats.Name("chatreport"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return newClient(nc, logger), nil
}

func newClient(c conn, logger *slog.Logger) *Client {
	return &Client{conn: c, now: time.Now, logger: logger}
}

// Publish sends data as JSON on subject.
func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// PublishAnalysisCompleted announces a persisted analysis. A zero
// CompletedAt is stamped with the current time.
func (c *Client) PublishAnalysisCompleted(evt AnalysisCompleted) error {
	if evt.ExtractID == "" {
		return errors.New("analysis completed: extract id is required")
	}
	if evt.CompletedAt.IsZero() {
		evt.CompletedAt = c.now().UTC()
	}
	if err := c.Publish(SubjectAnalysisCompleted, evt); err != nil {
		return err
	}
	c.logger.Debug("analysis announced", "extract_id", evt.ExtractID, "chat", evt.ChatName)
	return nil
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	if sub != nil {
		c.subs = append(c.subs, sub)
	}
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// SubscribeArchiveSubmitted delivers decoded submissions to handler.
// Payloads that fail validation are logged and dropped.
func (c *Client) SubscribeArchiveSubmitted(handler func(ArchiveSubmitted)) error {
	return c.Subscribe(SubjectArchiveSubmitted, func(subject string, data []byte) {
		evt, err := ParseArchiveSubmitted(data)
		if err != nil {
			c.logger.Error("dropping archive submission", "subject", subject, "error", err)
			return
		}
		handler(evt)
	})
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
