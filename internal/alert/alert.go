// Package alert publishes persisted threat records to NATS JetStream.
package alert

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/eervaisa/FMI-Gliders/internal/monitoring"
	"github.com/eervaisa/FMI-Gliders/internal/threat"
)

const (
	DefaultStream        = "GLIDER_THREATS"
	DefaultSubjectPrefix = "gliders.threats"

	// JetStream drops a repeated message id within this window.
	DefaultDuplicateWindow = 2 * time.Hour
	DefaultMaxAge          = 7 * 24 * time.Hour
)

// streamPublisher is the part of jetstream.JetStream used here.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

var logf = monitoring.Prefixed("[alert] ")

// Publisher sends one message per record on <prefix>.<glider>.<tier>.
type Publisher struct {
	js     streamPublisher
	prefix string
}

// New returns a publisher over an existing JetStream context.
func New(js streamPublisher, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{js: js, prefix: prefix}
}

// Options configures Connect.
type Options struct {
	Stream        string
	SubjectPrefix string
	ClientName    string
}

// Connect dials the NATS server at url, makes sure the alert stream exists
// and returns a publisher plus a function that closes the connection.
func Connect(ctx context.Context, url string, opts Options) (*Publisher, func(), error) {
	if opts.Stream == "" {
		opts.Stream = DefaultStream
	}
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = DefaultSubjectPrefix
	}
	if opts.ClientName == "" {
		opts.ClientName = "glider-watch"
	}

	nc, err := nats.Connect(url,
		nats.Name(opts.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logf("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       opts.Stream,
		Subjects:   []string{opts.SubjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		MaxAge:     DefaultMaxAge,
		Duplicates: DefaultDuplicateWindow,
	})
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to set up stream %s: %w", opts.Stream, err)
	}

	return New(js, opts.SubjectPrefix), func() { nc.Drain() }, nil
}

// Publish sends records in order and stops at the first failure. It returns
// the number of records accepted by the server.
func (p *Publisher) Publish(ctx context.Context, records []threat.Record) (int, error) {
	sent := 0
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return sent, fmt.Errorf("failed to marshal record for %d: %w", r.MMSI, err)
		}
		subject := p.Subject(r)
		ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(MessageID(data)))
		if err != nil {
			return sent, fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
		if ack != nil && ack.Duplicate {
			logf("Alert for %d on %s already published", r.MMSI, subject)
		}
		sent++
	}
	return sent, nil
}

// Subject returns the subject a record is published on.
func (p *Publisher) Subject(r threat.Record) string {
	return p.prefix + "." + subjectToken(r.GliderName) + "." + strconv.Itoa(int(r.Tier))
}

// MessageID identifies a record payload for JetStream de-duplication.
// Identical records share an id, matching the history table's full-row
// de-duplication.
func MessageID(payload []byte) string {
	return fmt.Sprintf("%x", sha1.Sum(payload))
}

// subjectToken makes a glider name safe for use as one subject token.
func subjectToken(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}
