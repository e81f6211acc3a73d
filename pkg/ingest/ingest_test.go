package ingest

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/store"
)

// encodeBatch builds the wire form of a message: a msgpack array of
// envelopes, one payload.data record each.
func encodeBatch(t *testing.T, records ...map[string]interface{}) []byte {
	t.Helper()

	batch := make([]map[string]interface{}, 0, len(records))
	for _, data := range records {
		batch = append(batch, map[string]interface{}{
			"payload": map[string]interface{}{"data": data},
		})
	}

	raw, err := msgpack.Marshal(batch)
	if err != nil {
		t.Fatalf("failed to encode batch: %v", err)
	}
	return raw
}

func speedRecord(car string, speed float64) map[string]interface{} {
	return map[string]interface{}{
		"data_carname": car,
		"data_raceid":  17,
		"data_lap":     3,
		"data_speed":   speed,
		// transport noise that must be ignored
		"msg_priority":  "MEDIUM",
		"data_demozone": "BARCELONA",
		"data_deviceid": "0000000051b9c6ae",
	}
}

func newIngestor() (*Ingestor, *store.Store) {
	st := store.New()
	return New(st, zerolog.Nop()), st
}

func TestHandle_SpeedBatch(t *testing.T) {
	ing, st := newIngestor()

	payload := encodeBatch(t, speedRecord("Thermo", 3155), speedRecord("Skull", 2890))
	if err := ing.Handle(TopicSpeed, payload); err != nil {
		t.Fatalf("Handle(speed) error: %v", err)
	}

	got := st.SpeedAggregates()
	if len(got) != 2 {
		t.Fatalf("got %d cars, want 2", len(got))
	}
	if got[1].Car != "Thermo" || got[1].Max != 3155 {
		t.Errorf("Thermo aggregate = %+v, want max 3155", got[1])
	}
}

func TestHandle_PartialBatchTolerance(t *testing.T) {
	ing, st := newIngestor()

	bad := speedRecord("Skull", 2890)
	delete(bad, "data_speed")

	payload := encodeBatch(t, speedRecord("Thermo", 3155), bad)
	if err := ing.Handle(TopicSpeed, payload); err != nil {
		t.Fatalf("Handle(speed) error: %v", err)
	}

	got := st.SpeedAggregates()
	if len(got) != 1 {
		t.Fatalf("got %d cars, want 1 (malformed record dropped)", len(got))
	}
	if got[0].Car != "Thermo" {
		t.Errorf("surviving car = %q, want Thermo", got[0].Car)
	}
}

func TestHandle_WrongFieldType(t *testing.T) {
	ing, st := newIngestor()

	bad := speedRecord("Thermo", 3155)
	bad["data_speed"] = "fast"

	if err := ing.Handle(TopicSpeed, encodeBatch(t, bad)); err != nil {
		t.Fatalf("Handle(speed) error: %v", err)
	}
	if n := len(st.SpeedAggregates()); n != 0 {
		t.Errorf("got %d cars, want 0 (bad type dropped)", n)
	}
}

func TestHandle_LapBatch(t *testing.T) {
	ing, st := newIngestor()

	payload := encodeBatch(t, map[string]interface{}{
		"data_carname": "Skull",
		"data_raceid":  17,
		"data_lap":     1,
		"data_laptime": 31440,
	})
	if err := ing.Handle(TopicLap, payload); err != nil {
		t.Fatalf("Handle(lap) error: %v", err)
	}

	got := st.LapAggregates()
	if len(got) != 1 || got[0].Fastest != 31440 {
		t.Fatalf("LapAggregates() = %+v, want Skull at 31440", got)
	}
}

func TestHandle_OfftrackTimeNormalization(t *testing.T) {
	ing, st := newIngestor()

	payload := encodeBatch(t, map[string]interface{}{
		"data_eventtime":      int64(1488750696235000000), // nanoseconds
		"data_carname":        "Thermo",
		"data_raceid":         17,
		"data_lap":            3,
		"data_lastknowntrack": 4,
	})
	if err := ing.Handle(TopicOfftrack, payload); err != nil {
		t.Fatalf("Handle(offtrack) error: %v", err)
	}

	got := st.Offtracks()
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Timestamp != 1488750696235 {
		t.Errorf("Timestamp = %v, want 1488750696235 (milliseconds)", got[0].Timestamp)
	}
	if got[0].Track != 4 {
		t.Errorf("Track = %d, want 4", got[0].Track)
	}
}

func TestHandle_RaceResetBoundary(t *testing.T) {
	ing, st := newIngestor()

	if err := ing.Handle(TopicSpeed, encodeBatch(t, speedRecord("Thermo", 3155))); err != nil {
		t.Fatalf("Handle(speed) error: %v", err)
	}

	racing := encodeBatch(t, map[string]interface{}{"raceStatus": "RACING"})
	if err := ing.Handle(TopicRace, racing); err != nil {
		t.Fatalf("Handle(race) error: %v", err)
	}

	if n := len(st.SpeedAggregates()); n != 0 {
		t.Fatalf("got %d cars after RACING, want 0", n)
	}

	// only post-reset samples are visible
	if err := ing.Handle(TopicSpeed, encodeBatch(t, speedRecord("Skull", 2890))); err != nil {
		t.Fatalf("Handle(speed) error: %v", err)
	}
	got := st.SpeedAggregates()
	if len(got) != 1 || got[0].Car != "Skull" {
		t.Fatalf("aggregates after reset = %+v, want only Skull", got)
	}
}

func TestHandle_RaceStoppedKeepsData(t *testing.T) {
	ing, st := newIngestor()

	if err := ing.Handle(TopicSpeed, encodeBatch(t, speedRecord("Thermo", 3155))); err != nil {
		t.Fatalf("Handle(speed) error: %v", err)
	}

	stopped := encodeBatch(t, map[string]interface{}{"raceStatus": "STOPPED"})
	if err := ing.Handle(TopicRace, stopped); err != nil {
		t.Fatalf("Handle(race) error: %v", err)
	}

	if n := len(st.SpeedAggregates()); n != 1 {
		t.Errorf("got %d cars after STOPPED, want 1 (no reset)", n)
	}
}

func TestHandle_UnknownRaceStatus(t *testing.T) {
	ing, st := newIngestor()

	if err := ing.Handle(TopicSpeed, encodeBatch(t, speedRecord("Thermo", 3155))); err != nil {
		t.Fatalf("Handle(speed) error: %v", err)
	}

	weird := encodeBatch(t, map[string]interface{}{"raceStatus": "PAUSED"})
	if err := ing.Handle(TopicRace, weird); err != nil {
		t.Fatalf("Handle(race) error: %v", err)
	}

	if n := len(st.SpeedAggregates()); n != 1 {
		t.Errorf("got %d cars after unknown status, want 1 (no state change)", n)
	}
}

func TestHandle_UnknownTopic(t *testing.T) {
	ing, _ := newIngestor()

	if err := ing.Handle("telemetry", encodeBatch(t, speedRecord("Thermo", 3155))); err == nil {
		t.Error("Handle(unknown topic) = nil, want error")
	}
}

func TestHandle_UndecodablePayload(t *testing.T) {
	ing, st := newIngestor()

	if err := ing.Handle(TopicSpeed, []byte{0xc1}); err == nil {
		t.Error("Handle(garbage) = nil, want error")
	}
	if n := len(st.SpeedAggregates()); n != 0 {
		t.Errorf("garbage payload appended %d rows", n)
	}
}

func TestHandle_EmptyBatch(t *testing.T) {
	ing, st := newIngestor()

	if err := ing.Handle(TopicSpeed, encodeBatch(t)); err != nil {
		t.Fatalf("Handle(empty batch) error: %v", err)
	}
	if n := len(st.SpeedAggregates()); n != 0 {
		t.Errorf("empty batch appended %d rows", n)
	}
}
