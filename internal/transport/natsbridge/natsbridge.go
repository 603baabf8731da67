// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package natsbridge exposes a Manager over a NATS subject: every
// message received on the configured subject is handed to
// Manager.RequestJob unchanged, and — if the message carries a reply
// subject — the job's result (or an error string) is published back.
package natsbridge

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/iondb-project/sensor-jobmanager/internal/manager"
	"github.com/iondb-project/sensor-jobmanager/pkg/log"
)

// Bridge owns a NATS connection and the subscription forwarding
// requests into a Manager.
type Bridge struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	manager *manager.Manager
}

// reply is the JSON body published back on a message's reply subject.
type reply struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Connect dials addr and subscribes subject, forwarding every message
// body to m.RequestJob. The caller must call Close when done.
func Connect(addr, subject string, m *manager.Manager) (*Bridge, error) {
	conn, err := nats.Connect(addr,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("natsbridge: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("natsbridge: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("natsbridge: %v", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	b := &Bridge{conn: conn, manager: m}
	sub, err := conn.Subscribe(subject, b.handle)
	if err != nil {
		conn.Close()
		return nil, err
	}
	b.sub = sub

	log.Infof("natsbridge: subscribed to '%s' on %s", subject, addr)
	return b, nil
}

func (b *Bridge) handle(msg *nats.Msg) {
	var out any
	err := b.manager.RequestJob(msg.Data, &out)

	if msg.Reply == "" {
		if err != nil {
			log.Warnf("natsbridge: request failed: %v", err)
		}
		return
	}

	r := reply{Result: out}
	if err != nil {
		r.Error = err.Error()
	}
	body, marshalErr := json.Marshal(r)
	if marshalErr != nil {
		log.Errorf("natsbridge: marshaling reply: %v", marshalErr)
		return
	}
	if pubErr := b.conn.Publish(msg.Reply, body); pubErr != nil {
		log.Errorf("natsbridge: publishing reply: %v", pubErr)
	}
}

// Close unsubscribes and closes the underlying connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			log.Warnf("natsbridge: unsubscribe failed: %v", err)
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
