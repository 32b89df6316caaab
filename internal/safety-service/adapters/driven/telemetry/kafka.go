package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/segmentio/kafka-go"
)

// KafkaIngest feeds samples published by the location pipeline into the same
// monitor sessions the websocket uses, so a driver is scored identically
// whichever path their telemetry takes.
type KafkaIngest struct {
	mylog     mylogger.Logger
	telemetry ports.ITelemetryService
	reader    *kafka.Reader
}

func NewKafkaIngest(cfg config.Kafkaconfig, mylog mylogger.Logger, telemetry ports.ITelemetryService) *KafkaIngest {
	return &KafkaIngest{
		mylog:     mylog,
		telemetry: telemetry,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  strings.Split(cfg.Brokers, ","),
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1e3,
			MaxBytes: 10e6,
		}),
	}
}

// Run blocks reading the telemetry topic until ctx is cancelled.
func (k *KafkaIngest) Run(ctx context.Context) error {
	log := k.mylog.Action("kafka-ingest")
	log.Info("kafka ingest enabled",
		"topic", k.reader.Config().Topic, "group_id", k.reader.Config().GroupID)

	defer k.reader.Close()
	for {
		m, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("kafka read error", "error", err.Error())
			continue
		}
		k.handle(ctx, m.Value, log)
	}
}

func (k *KafkaIngest) handle(ctx context.Context, value []byte, log mylogger.Logger) {
	var sample messagebrokerdto.TelemetrySample
	if err := json.Unmarshal(value, &sample); err != nil {
		log.Warn("kafka decode error", "error", err.Error())
		return
	}

	recordedAt, err := time.Parse(time.RFC3339, sample.RecordedAt)
	if err != nil {
		recordedAt = time.Now().UTC()
	}
	input := model.SpeedReadingInput{
		TripId:     sample.TripId,
		SpeedMps:   sample.SpeedMps,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		RecordedAt: recordedAt,
	}

	_, err = k.telemetry.HandleSample(ctx, sample.DriverId, input)
	if err == nil {
		return
	}

	// samples can beat the trip.started event; the sample itself carries
	// enough to open the session
	if errors.Is(err, myerrors.ErrNoActiveTrip) && sample.TripId != "" {
		if err := k.telemetry.StartTrip(ctx, sample.DriverId, sample.TripId); err != nil {
			log.Warn("cannot open session from sample",
				"driver_id", sample.DriverId, "error", err.Error())
			return
		}
		if _, err := k.telemetry.HandleSample(ctx, sample.DriverId, input); err != nil {
			log.Warn("sample handling failed", "driver_id", sample.DriverId, "error", err.Error())
		}
		return
	}
	log.Warn("sample handling failed", "driver_id", sample.DriverId, "error", err.Error())
}
