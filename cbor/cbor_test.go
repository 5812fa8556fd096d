package cbor_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/recwire/recwire"
	"github.com/recwire/recwire/cbor"
)

func eventRegistry(tb testing.TB) *recwire.Registry {
	tb.Helper()
	reg := recwire.NewRegistry()
	reg.Register("Event", recwire.Fields(
		recwire.Field("id", recwire.UUID()),
		recwire.Field("at", recwire.Time()),
		recwire.Field("kind", recwire.String(), recwire.MinLen(3), recwire.MaxLen(24)),
		recwire.Field("count", recwire.Int(), recwire.Min(0)),
		recwire.Field("blob", recwire.Bytes()),
		recwire.Field("meta", recwire.OptionalOf(recwire.MapOf(recwire.Any()))),
	))
	if err := reg.Compile(); err != nil {
		tb.Fatalf("compile failed: %v", err)
	}
	return reg
}

func sampleEvent(tb testing.TB, reg *recwire.Registry) *recwire.Record {
	tb.Helper()
	event, _ := reg.TypeOf("Event")
	v, err := recwire.Convert(map[string]any{
		"id":    "8f14e45f-ceea-4672-a2c5-6d5c2f8c7a01",
		"at":    "2024-05-01T12:34:56.789Z",
		"kind":  "login",
		"count": 3,
		"blob":  []byte{0x01, 0x02, 0xff},
		"meta":  map[string]any{"source": "test", "retries": int64(2)},
	}, event)
	if err != nil {
		tb.Fatalf("convert failed: %v", err)
	}
	return v.(*recwire.Record)
}

func TestRoundTripTypedRecord(t *testing.T) {
	reg := eventRegistry(t)
	event, _ := reg.TypeOf("Event")
	r := sampleEvent(t, reg)

	data, err := cbor.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	back, err := cbor.Unmarshal(data, event)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !r.Equal(back.(*recwire.Record)) {
		t.Fatalf("round trip changed the record:\n in  %v\n out %v", r, back)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	reg := eventRegistry(t)
	r := sampleEvent(t, reg)
	a, err := cbor.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	b, err := cbor.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("equal values produced different bytes")
	}
}

func TestUnmarshalValidates(t *testing.T) {
	reg := eventRegistry(t)
	event, _ := reg.TypeOf("Event")
	data, err := cbor.Marshal(map[string]any{
		"id":    "8f14e45f-ceea-4672-a2c5-6d5c2f8c7a01",
		"at":    "2024-05-01T12:34:56Z",
		"kind":  "no", // below minimum_length 3
		"count": int64(1),
		"blob":  []byte{},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	_, err = cbor.Unmarshal(data, event)
	var ve *recwire.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if ve.Path != "kind" {
		t.Fatalf("expected path kind, got %q", ve.Path)
	}
}

func TestUnmarshalMalformedBytes(t *testing.T) {
	_, err := cbor.Unmarshal([]byte{0xff, 0x00}, recwire.Int())
	var de *recwire.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestDecodeGenericTree(t *testing.T) {
	data, err := cbor.Marshal(map[string]any{"a": int64(1), "b": []any{"x"}})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	v, err := cbor.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", v)
	}
	if m["b"].([]any)[0] != "x" {
		t.Fatalf("unexpected tree %v", m)
	}
}

func TestGenericIncludesDiscriminant(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Point", recwire.Fields(
		recwire.Field("coordinates", recwire.SeqOf(recwire.Float())),
	), recwire.Tagged())
	reg.MustCompile()
	point, _ := reg.Schema("Point")
	r, _ := point.New([]any{1.0, 2.0})
	m := cbor.Generic(r).(map[string]any)
	if m["type"] != "Point" {
		t.Fatalf("expected discriminant in generic form, got %v", m)
	}

	// Tagged records round-trip through their union.
	reg2 := recwire.NewRegistry()
	reg2.Register("Point", recwire.Fields(
		recwire.Field("coordinates", recwire.SeqOf(recwire.Float())),
	), recwire.Tagged())
	reg2.RegisterUnion("Geometry", "Point")
	reg2.MustCompile()
	geometry, _ := reg2.TypeOf("Geometry")
	p2, _ := reg2.Schema("Point")
	r2, _ := p2.New([]any{1.0, 2.0})
	data, err := cbor.Marshal(r2)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	back, err := cbor.Unmarshal(data, geometry)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !r2.Equal(back.(*recwire.Record)) {
		t.Fatalf("union round trip changed the record")
	}
}
