package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/openvest/vestd/core/metrics"
	"github.com/openvest/vestd/infra/logger"
)

// InfluxSink writes ledger events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRegistration writes the registration as a line protocol event.
func (s *InfluxSink) RecordRegistration(ev coremetrics.RegistrationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("vesting_registration").
		AddTag("beneficiary", ev.Beneficiary).
		AddTag("component", "registry").
		AddField("schedules", ev.Schedules).
		AddField("amount", int64(ev.Amount)).
		AddField("logical_time", int64(ev.Time)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordClaim writes the claim as a line protocol event.
func (s *InfluxSink) RecordClaim(ev coremetrics.ClaimEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("vesting_claim").
		AddTag("beneficiary", ev.Beneficiary).
		AddTag("component", "claim_engine").
		AddField("amount", int64(ev.Amount)).
		AddField("withdrawn", int64(ev.Withdrawn)).
		AddField("logical_time", int64(ev.Time)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTransferFailure writes the aborted claim as a line protocol event.
func (s *InfluxSink) RecordTransferFailure(ev coremetrics.TransferFailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("vesting_transfer_failure").
		AddTag("beneficiary", ev.Beneficiary).
		AddTag("component", "claim_engine").
		AddField("amount", int64(ev.Amount)).
		AddField("reason", ev.Reason).
		AddField("logical_time", int64(ev.Time)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
