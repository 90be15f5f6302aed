/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package nats receives samples published on a NATS subject.
package nats

import (
	"context"
	"fmt"
	"time"

	natslib "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/numaproj/qos-scaler/pkg/shared/logging"
	"github.com/numaproj/qos-scaler/pkg/sources"
)

const Transport = "nats"

type natsSource struct {
	subject    string
	queue      string
	bufferSize int
	natsOpts   []natslib.Option
	logger     *zap.SugaredLogger
	ingester   *sources.Ingester
	natsConn   *natslib.Conn
	sub        *natslib.Subscription
	messages   chan *natslib.Msg
}

var _ sources.Source = (*natsSource)(nil)

// New connects to the server and queue-subscribes to the subject, so that
// several scaler replicas share the samples.
func New(ctx context.Context, url, subject, queue string, ingester *sources.Ingester, opts ...Option) (*natsSource, error) {
	n := &natsSource{
		subject:    subject,
		queue:      queue,
		bufferSize: 1000, // default size
		logger:     logging.FromContext(ctx).Named("nats-source"),
		ingester:   ingester,
	}
	for _, o := range opts {
		if err := o(n); err != nil {
			return nil, err
		}
	}
	n.messages = make(chan *natslib.Msg, n.bufferSize)

	opt := []natslib.Option{
		natslib.MaxReconnects(-1),
		natslib.ReconnectWait(3 * time.Second),
		natslib.PingInterval(3 * time.Second),
		natslib.MaxPingsOutstanding(2),
		natslib.ErrorHandler(func(c *natslib.Conn, s *natslib.Subscription, err error) {
			n.logger.Errorw("Nats error occurred for subscription", zap.Error(err))
		}),
		natslib.DisconnectErrHandler(func(c *natslib.Conn, err error) {
			n.logger.Errorw("Nats disconnected", zap.Error(err))
		}),
		natslib.ReconnectHandler(func(c *natslib.Conn) {
			n.logger.Info("Nats reconnected")
		}),
	}
	opt = append(opt, n.natsOpts...)

	n.logger.Infow("Connecting to nats service...", zap.String("url", url))
	if conn, err := natslib.Connect(url, opt...); err != nil {
		return nil, fmt.Errorf("failed to connect to nats server, %w", err)
	} else {
		n.natsConn = conn
	}
	if sub, err := n.natsConn.ChanQueueSubscribe(subject, queue, n.messages); err != nil {
		n.natsConn.Close()
		return nil, fmt.Errorf("failed to QueueSubscribe nats messages, %w", err)
	} else {
		n.sub = sub
	}
	return n, nil
}

type Option func(*natsSource) error

// WithBufferSize sets the buffer size for storing the messages from nats
func WithBufferSize(s int) Option {
	return func(o *natsSource) error {
		if s <= 0 {
			return fmt.Errorf("invalid buffer size %d", s)
		}
		o.bufferSize = s
		return nil
	}
}

// WithUserInfo authenticates with a user and password.
func WithUserInfo(user, password string) Option {
	return func(o *natsSource) error {
		o.natsOpts = append(o.natsOpts, natslib.UserInfo(user, password))
		return nil
	}
}

// WithToken authenticates with a token.
func WithToken(token string) Option {
	return func(o *natsSource) error {
		o.natsOpts = append(o.natsOpts, natslib.Token(token))
		return nil
	}
}

// Start ingests messages until the context is cancelled, then unsubscribes
// and closes the connection.
func (ns *natsSource) Start(ctx context.Context) error {
	ctx = logging.WithLogger(ctx, ns.logger)
	defer ns.close()
	for {
		select {
		case <-ctx.Done():
			ns.logger.Info("Stopped nats source")
			return nil
		case msg := <-ns.messages:
			ns.ingester.Ingest(ctx, msg.Data)
		}
	}
}

func (ns *natsSource) close() {
	if err := ns.sub.Unsubscribe(); err != nil {
		ns.logger.Errorw("Failed to unsubscribe nats subscription", zap.Error(err))
	}
	ns.natsConn.Close()
}
