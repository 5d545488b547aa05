package querylog

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DefaultMeasurement is the InfluxDB measurement for query points
const DefaultMeasurement = "dbal_query"

// PointWriter accepts points for asynchronous delivery. api.WriteAPI
// satisfies it.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// InfluxEngine records query timings as InfluxDB points. Writes are
// non-blocking and batched by the client.
type InfluxEngine struct {
	writer      PointWriter
	measurement string
	now         func() time.Time
}

// NewInfluxEngine creates an engine writing to w
func NewInfluxEngine(w PointWriter, measurement string) *InfluxEngine {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &InfluxEngine{writer: w, measurement: measurement, now: time.Now}
}

// InfluxOptions configures DialInflux
type InfluxOptions struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Token         string        `mapstructure:"token" yaml:"token,omitempty"`
	Org           string        `mapstructure:"org" yaml:"org"`
	Bucket        string        `mapstructure:"bucket" yaml:"bucket"`
	Measurement   string        `mapstructure:"measurement" yaml:"measurement,omitempty"`
	BatchSize     uint          `mapstructure:"batch_size" yaml:"batch_size,omitempty"`
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval,omitempty"`
}

// DialInflux creates a client and an engine on its write API. The returned
// close function flushes pending points. Async write failures go to onError.
func DialInflux(opts InfluxOptions, onError func(error)) (*InfluxEngine, func(), error) {
	options := influxdb2.DefaultOptions()
	if opts.BatchSize > 0 {
		options.SetBatchSize(opts.BatchSize)
	}
	if opts.FlushInterval > 0 {
		options.SetFlushInterval(uint(opts.FlushInterval.Milliseconds()))
	}
	client := influxdb2.NewClientWithOptions(opts.URL, opts.Token, options)
	writeAPI := client.WriteAPI(opts.Org, opts.Bucket)

	go func() {
		for err := range writeAPI.Errors() {
			if onError != nil {
				onError(err)
			}
		}
	}()

	closeFn := func() {
		writeAPI.Flush()
		client.Close()
	}
	return NewInfluxEngine(writeAPI, opts.Measurement), closeFn, nil
}

// Log writes one point per statement
func (e *InfluxEngine) Log(_ context.Context, q LoggedQuery) error {
	tags := map[string]string{
		"connection": q.Connection,
		"status":     "ok",
	}
	if q.Err != nil {
		tags["status"] = "error"
	}
	fields := map[string]interface{}{
		"took_ms": float64(q.Took) / float64(time.Millisecond),
		"rows":    q.NumRows,
		"query":   q.Interpolate(),
	}
	e.writer.WritePoint(write.NewPoint(e.measurement, tags, fields, e.now()))
	return nil
}
