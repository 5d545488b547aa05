package querylog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

func TestInterpolate(t *testing.T) {
	when := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		query  string
		params []binder.Binding
		want   string
	}{
		{
			name:  "named markers",
			query: "SELECT * FROM users WHERE name = :c0 AND age > :c1",
			params: []binder.Binding{
				{Placeholder: ":c0", Value: "O'Brien", Type: types.String},
				{Placeholder: ":c1", Value: 30, Type: types.Integer},
			},
			want: "SELECT * FROM users WHERE name = 'O''Brien' AND age > 30",
		},
		{
			name:  "positional markers",
			query: "UPDATE t SET a = ?, b = ? WHERE id = ?",
			params: []binder.Binding{
				{Value: nil},
				{Value: true, Type: types.Boolean},
				{Value: int64(7), Type: types.BigInteger},
			},
			want: "UPDATE t SET a = NULL, b = TRUE WHERE id = 7",
		},
		{
			name:  "literals untouched",
			query: "SELECT ':c0', \":c0\" FROM t WHERE x = :c0 -- :c0",
			params: []binder.Binding{
				{Placeholder: ":c0", Value: 1, Type: types.Integer},
			},
			want: "SELECT ':c0', \":c0\" FROM t WHERE x = 1 -- :c0",
		},
		{
			name:  "times and dates",
			query: "SELECT :c0, :c1",
			params: []binder.Binding{
				{Placeholder: ":c0", Value: when, Type: types.DateTime},
				{Placeholder: ":c1", Value: when, Type: types.Date},
			},
			want: "SELECT '2024-03-01 10:30:00', '2024-03-01'",
		},
		{
			name:  "missing value keeps marker",
			query: "SELECT :c0, :c1",
			params: []binder.Binding{
				{Placeholder: ":c0", Value: false, Type: types.Boolean},
			},
			want: "SELECT FALSE, :c1",
		},
		{
			name:  "numeric string stays bare",
			query: "SELECT :c0",
			params: []binder.Binding{
				{Placeholder: ":c0", Value: "12.50", Type: types.Decimal},
			},
			want: "SELECT 12.50",
		},
		{
			name:  "binary",
			query: "SELECT :c0",
			params: []binder.Binding{
				{Placeholder: ":c0", Value: []byte{0xff, 0x01}, Type: types.Binary},
			},
			want: "SELECT X'FF01'",
		},
		{
			name:  "no params",
			query: "SELECT 1",
			want:  "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := LoggedQuery{Query: tt.query, Params: tt.params}
			assert.Equal(t, tt.want, q.Interpolate())
		})
	}
}

func TestRender(t *testing.T) {
	var nilPtr *int
	n := 5
	assert.Equal(t, "NULL", Render(nilPtr, types.Integer))
	assert.Equal(t, "5", Render(&n, types.Integer))
	assert.Equal(t, "1.5", Render(1.5, types.Float))
	assert.Equal(t, "'abc'", Render("abc", ""))
	assert.Equal(t, "1, 2, 3", Render([]int{1, 2, 3}, types.Multi(types.Integer)))
}

func TestLoggerJoinsErrors(t *testing.T) {
	var got []string
	ok := EngineFunc(func(_ context.Context, q LoggedQuery) error {
		got = append(got, q.Query)
		return nil
	})
	bad := EngineFunc(func(context.Context, LoggedQuery) error { return errors.New("sink down") })

	l := NewLogger(bad, nil, ok)
	assert.Equal(t, 2, l.Len())

	err := l.Log(context.Background(), LoggedQuery{Query: "SELECT 1"})
	assert.EqualError(t, err, "sink down")
	assert.Equal(t, []string{"SELECT 1"}, got)

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Log(context.Background(), LoggedQuery{}))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("slog", NewSlogEngine(nil, slog.LevelDebug))
	r.Register("null", EngineFunc(func(context.Context, LoggedQuery) error { return nil }))

	assert.Equal(t, []string{"null", "slog"}, r.Names())

	l, err := r.Logger("slog", "null")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())

	_, err = r.Logger("missing")
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestSlogEngine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := NewSlogEngine(logger, slog.LevelDebug)

	err := e.Log(context.Background(), LoggedQuery{
		Query:      "SELECT :c0",
		Params:     []binder.Binding{{Placeholder: ":c0", Value: "x", Type: types.String}},
		Took:       3 * time.Millisecond,
		NumRows:    1,
		Connection: "default",
		Err:        errors.New("boom"),
	})
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "query", rec["msg"])
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "SELECT 'x'", rec["query"])
	assert.Equal(t, "default", rec["connection"])
	assert.Equal(t, "boom", rec["error"])
}

type pointRecorder struct{ points []*write.Point }

func (p *pointRecorder) WritePoint(point *write.Point) { p.points = append(p.points, point) }

func TestInfluxEngine(t *testing.T) {
	rec := &pointRecorder{}
	e := NewInfluxEngine(rec, "")

	require.NoError(t, e.Log(context.Background(), LoggedQuery{
		Query:      "DELETE FROM t",
		Took:       2 * time.Millisecond,
		NumRows:    4,
		Connection: "main",
	}))
	require.Len(t, rec.points, 1)

	p := rec.points[0]
	assert.Equal(t, DefaultMeasurement, p.Name())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"connection": "main", "status": "ok"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, "DELETE FROM t", fields["query"])
	assert.Equal(t, int64(4), fields["rows"])
	assert.InDelta(t, 2.0, fields["took_ms"], 0.001)
}

type fakeToken struct {
	err      error
	complete bool
}

func (t *fakeToken) Wait() bool                     { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakePublisher struct {
	topic   string
	payload []byte
	token   *fakeToken
}

func (p *fakePublisher) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	p.topic = topic
	p.payload = payload.([]byte)
	return p.token
}

func TestMQTTEngine(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{complete: true}}
	e := NewMQTTEngine(pub, "", 1, time.Second)

	require.NoError(t, e.Log(context.Background(), LoggedQuery{
		Query:   "SELECT ?",
		Params:  []binder.Binding{{Value: 3, Type: types.Integer}},
		NumRows: 1,
	}))
	assert.Equal(t, DefaultTopic, pub.topic)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(pub.payload, &rec))
	assert.Equal(t, "SELECT 3", rec["query"])
	assert.EqualValues(t, 1, rec["rows"])
	assert.NotContains(t, rec, "error")

	pub.token = &fakeToken{complete: false}
	assert.ErrorIs(t, e.Log(context.Background(), LoggedQuery{Query: "SELECT 1"}), ErrPublishTimeout)

	pub.token = &fakeToken{complete: true, err: errors.New("not connected")}
	assert.EqualError(t, e.Log(context.Background(), LoggedQuery{Query: "SELECT 1"}), "not connected")
}
