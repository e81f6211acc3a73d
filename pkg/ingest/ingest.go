package ingest

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/domain"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/store"
)

// Channel names, one per event kind.
const (
	TopicRace     = "race"
	TopicSpeed    = "speed"
	TopicLap      = "lap"
	TopicOfftrack = "offtrack"
)

// Topics lists every channel a zone session subscribes to.
var Topics = []string{TopicRace, TopicSpeed, TopicLap, TopicOfftrack}

// Ingestor turns inbound message batches into table rows for one zone's
// store. Records are validated one by one: a bad record is dropped and
// logged, the rest of the batch goes through. Valid rows land in the
// store as a single append.
type Ingestor struct {
	store *store.Store
	log   zerolog.Logger
}

func New(s *store.Store, log zerolog.Logger) *Ingestor {
	return &Ingestor{store: s, log: log}
}

// Handle processes one message from the named channel. The payload is a
// msgpack array of envelopes. Only a completely undecodable payload is
// an error; per-record problems are logged and swallowed here.
func (i *Ingestor) Handle(topic string, payload []byte) error {
	batch, err := decodeBatch(payload)
	if err != nil {
		return err
	}

	// correlation id, ties the drop/append log lines of one batch together
	batchID := ksuid.New().String()

	switch topic {
	case TopicRace:
		i.handleRace(batch)
	case TopicSpeed:
		i.handleSpeed(batch, batchID)
	case TopicLap:
		i.handleLap(batch, batchID)
	case TopicOfftrack:
		i.handleOfftrack(batch, batchID)
	default:
		return fmt.Errorf("unknown topic %q", topic)
	}

	return nil
}

func (i *Ingestor) handleRace(batch []Envelope) {
	for _, m := range batch {
		status, err := m.Payload.Data.str("raceStatus")
		if err != nil {
			i.log.Error().Err(err).Msg("race message without status")
			continue
		}

		switch domain.RaceStatus(status) {
		case domain.StatusRacing:
			// new race, clean existing data up
			i.store.Reset()
			i.log.Info().Msg("race started, store reset")
		case domain.StatusStopped:
			// deliberately no store effect; the tables keep the finished
			// race until the next RACING signal
			i.log.Debug().Msg("race stopped")
		default:
			// should never happen
			i.log.Error().Str("status", status).Msg("unknown race status")
		}
	}
}

func (i *Ingestor) handleSpeed(batch []Envelope, batchID string) {
	rows := make([]domain.SpeedSample, 0, len(batch))
	for _, m := range batch {
		row, err := speedRow(m.Payload.Data)
		if err != nil {
			i.dropRecord(TopicSpeed, batchID, err)
			continue
		}
		rows = append(rows, row)
	}
	i.store.AppendSpeed(rows)
}

func (i *Ingestor) handleLap(batch []Envelope, batchID string) {
	rows := make([]domain.LapSample, 0, len(batch))
	for _, m := range batch {
		row, err := lapRow(m.Payload.Data)
		if err != nil {
			i.dropRecord(TopicLap, batchID, err)
			continue
		}
		rows = append(rows, row)
	}
	i.store.AppendLaps(rows)
}

func (i *Ingestor) handleOfftrack(batch []Envelope, batchID string) {
	rows := make([]domain.OfftrackEvent, 0, len(batch))
	for _, m := range batch {
		row, err := offtrackRow(m.Payload.Data)
		if err != nil {
			i.dropRecord(TopicOfftrack, batchID, err)
			continue
		}
		rows = append(rows, row)
	}
	i.store.AppendOfftracks(rows)
}

func (i *Ingestor) dropRecord(topic, batchID string, err error) {
	i.log.Warn().Err(err).Str("topic", topic).Str("batch", batchID).Msg("dropped malformed record")
}

func speedRow(r Record) (domain.SpeedSample, error) {
	car, err := r.str("data_carname")
	if err != nil {
		return domain.SpeedSample{}, err
	}
	race, err := r.integer("data_raceid")
	if err != nil {
		return domain.SpeedSample{}, err
	}
	lap, err := r.integer("data_lap")
	if err != nil {
		return domain.SpeedSample{}, err
	}
	speed, err := r.num("data_speed")
	if err != nil {
		return domain.SpeedSample{}, err
	}

	return domain.SpeedSample{Car: car, Race: race, Lap: lap, Speed: speed}, nil
}

func lapRow(r Record) (domain.LapSample, error) {
	car, err := r.str("data_carname")
	if err != nil {
		return domain.LapSample{}, err
	}
	race, err := r.integer("data_raceid")
	if err != nil {
		return domain.LapSample{}, err
	}
	lap, err := r.integer("data_lap")
	if err != nil {
		return domain.LapSample{}, err
	}
	laptime, err := r.num("data_laptime")
	if err != nil {
		return domain.LapSample{}, err
	}

	return domain.LapSample{Car: car, Race: race, Lap: lap, LapTime: laptime}, nil
}

func offtrackRow(r Record) (domain.OfftrackEvent, error) {
	eventTime, err := r.num("data_eventtime")
	if err != nil {
		return domain.OfftrackEvent{}, err
	}
	car, err := r.str("data_carname")
	if err != nil {
		return domain.OfftrackEvent{}, err
	}
	race, err := r.integer("data_raceid")
	if err != nil {
		return domain.OfftrackEvent{}, err
	}
	lap, err := r.integer("data_lap")
	if err != nil {
		return domain.OfftrackEvent{}, err
	}
	track, err := r.integer("data_lastknowntrack")
	if err != nil {
		return domain.OfftrackEvent{}, err
	}

	return domain.OfftrackEvent{
		Timestamp: eventTime / 1e6, // producers send nanoseconds
		Car:       car,
		Race:      race,
		Lap:       lap,
		Track:     track,
	}, nil
}
