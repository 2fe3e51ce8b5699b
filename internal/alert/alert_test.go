package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/monitoring"
	"github.com/eervaisa/FMI-Gliders/internal/threat"
)

type published struct {
	subject string
	data    []byte
	opts    int
}

type fakeStream struct {
	msgs   []published
	failAt int
	seen   map[string]bool
}

func (f *fakeStream) Publish(_ context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.failAt > 0 && len(f.msgs)+1 == f.failAt {
		return nil, errors.New("nats: timeout")
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	id := MessageID(data)
	dup := f.seen[id]
	f.seen[id] = true
	f.msgs = append(f.msgs, published{subject: subject, data: data, opts: len(opts)})
	return &jetstream.PubAck{Stream: DefaultStream, Sequence: uint64(len(f.msgs)), Duplicate: dup}, nil
}

func rec(mmsi int64, glider string, tier threat.Tier) threat.Record {
	return threat.Record{
		MMSI:       mmsi,
		SOG:        ais.Known(12),
		GliderName: glider,
		Tier:       tier,
		Colour:     tier.Colour(),
		ObservedAt: time.Date(2023, 11, 8, 12, 0, 0, 0, time.UTC),
	}
}

func init() {
	monitoring.SetLogger(nil)
}

func TestPublisher_Publish(t *testing.T) {
	fs := &fakeStream{}
	p := New(fs, "")

	n, err := p.Publish(context.Background(), []threat.Record{
		rec(1, "Uivelo", threat.TierProximity),
		rec(2, "Koskelo", threat.TierPathCrossing),
		rec(1, "Uivelo", threat.TierProximity),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, fs.msgs, 3)

	assert.Equal(t, "gliders.threats.uivelo.5", fs.msgs[0].subject)
	assert.Equal(t, "gliders.threats.koskelo.2", fs.msgs[1].subject)
	assert.Equal(t, 1, fs.msgs[0].opts, "message id option")
	assert.Contains(t, string(fs.msgs[0].data), `"class_colour":"purple"`)

	// Identical records produce identical ids.
	assert.Equal(t, MessageID(fs.msgs[0].data), MessageID(fs.msgs[2].data))
	assert.NotEqual(t, MessageID(fs.msgs[0].data), MessageID(fs.msgs[1].data))
}

func TestPublisher_StopsAtFirstError(t *testing.T) {
	fs := &fakeStream{failAt: 2}
	p := New(fs, "test.threats")

	n, err := p.Publish(context.Background(), []threat.Record{
		rec(1, "Uivelo", threat.TierProximity),
		rec(2, "Uivelo", threat.TierInRange),
		rec(3, "Uivelo", threat.TierInRange),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.threats.uivelo.3")
	assert.Equal(t, 1, n)
}

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"Uivelo":     "uivelo",
		" Koskelo ":  "koskelo",
		"sea.glider": "sea_glider",
		"wild*card>": "wild_card_",
		"two words":  "two_words",
		"":           "unknown",
		"Äyriäinen":  "äyriäinen",
	}
	for in, want := range tests {
		assert.Equal(t, want, subjectToken(in), "input %q", in)
	}
}
