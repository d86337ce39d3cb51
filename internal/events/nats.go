package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"patrolops/api/internal/model"
)

const (
	// StreamOperatives keeps operative events for replay when JetStream is
	// available on the server.
	StreamOperatives = "OPS_OPERATIVES"
	// SubjectPrefix prefixes every operative event subject.
	SubjectPrefix = "ops.operative."
	subjectAll    = SubjectPrefix + "*"
)

// Subject returns the subject an event kind is published on.
func Subject(kind model.OperativeEventKind) string {
	return SubjectPrefix + string(kind)
}

// NATSPublisher publishes events on ops.operative.<kind>. Events go through
// JetStream when the server has it enabled and through core NATS otherwise.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewNATSPublisher prepares the operative stream.
func NewNATSPublisher(nc *nats.Conn, logger *zap.Logger) *NATSPublisher {
	p := &NATSPublisher{nc: nc, logger: logger}

	js, err := nc.JetStream()
	if err == nil {
		err = p.initStream(js)
	}
	if err != nil {
		logger.Warn("jetstream unavailable, publishing on core nats", zap.Error(err))
		return p
	}
	p.js = js
	return p
}

// initStream 初始化Stream
func (p *NATSPublisher) initStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:      StreamOperatives,
		Subjects:  []string{subjectAll},
		Retention: nats.LimitsPolicy,
		MaxMsgs:   -1,
		MaxBytes:  1024 * 1024 * 1024,
		MaxAge:    30 * 24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	}
	if _, err := js.AddStream(cfg); err != nil {
		if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		// Stream已存在，更新配置
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// JetStreamEnabled reports whether events are persisted in a stream.
func (p *NATSPublisher) JetStreamEnabled() bool {
	return p.js != nil
}

// StreamInfo returns the state of the operative stream.
func (p *NATSPublisher) StreamInfo() (*nats.StreamInfo, error) {
	if p.js == nil {
		return nil, errors.New("jetstream disabled")
	}
	return p.js.StreamInfo(StreamOperatives)
}

func (p *NATSPublisher) Publish(ctx context.Context, event model.OperativeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	subject := Subject(event.Kind)
	if p.js != nil {
		_, err = p.js.Publish(subject, payload, nats.Context(ctx))
	} else {
		err = p.nc.Publish(subject, payload)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// SubscribeNATS delivers every operative event published by any API instance
// to h. Undecodable messages are logged and dropped.
func SubscribeNATS(nc *nats.Conn, logger *zap.Logger, h Handler) (*nats.Subscription, error) {
	return nc.Subscribe(subjectAll, func(msg *nats.Msg) {
		var event model.OperativeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("dropping malformed operative event",
				zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		h(event)
	})
}
