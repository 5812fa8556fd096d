package recwire_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/recwire/recwire"
)

func TestMarshalRecordFieldOrder(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Address", recwire.Fields(
		recwire.Field("zebra", recwire.String()),
		recwire.Field("apple", recwire.Int()),
	))
	reg.MustCompile()
	addr, _ := reg.Schema("Address")
	r, _ := addr.New("z", 1)
	out, err := recwire.Marshal(r)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	// Declaration order, not alphabetical.
	if string(out) != `{"zebra":"z","apple":1}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestMarshalTaggedRecordEmitsDiscriminantFirst(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Point", recwire.Fields(
		recwire.Field("coordinates", recwire.SeqOf(recwire.Float())),
	), recwire.Tagged())
	reg.MustCompile()
	point, _ := reg.Schema("Point")
	r, _ := point.New([]any{1.0, 2.0})
	out, err := recwire.Marshal(r)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(out) != `{"type":"Point","coordinates":[1,2]}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestMarshalGenericMapSortsKeys(t *testing.T) {
	out, err := recwire.Marshal(map[string]any{"b": int64(2), "a": int64(1)})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(out) != `{"a":1,"b":2}` {
		t.Fatalf("expected sorted keys, got %s", out)
	}
}

func TestMarshalSpecialScalars(t *testing.T) {
	u := uuid.MustParse("8f14e45f-ceea-4672-a2c5-6d5c2f8c7a01")
	ts := time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC)
	out, err := recwire.Marshal(map[string]any{
		"id":   u,
		"at":   ts,
		"blob": []byte("hello"),
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	want := `{"at":"2024-05-01T12:34:56Z","blob":"aGVsbG8=","id":"8f14e45f-ceea-4672-a2c5-6d5c2f8c7a01"}`
	if string(out) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", out, want)
	}
}

func TestMarshalStringEscaping(t *testing.T) {
	out, err := recwire.Marshal("a\"b\\c\nd\x01e é")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(out) != `"a\"b\\c\nde é"` {
		t.Fatalf("unexpected escaping %s", out)
	}
}

func TestMarshalRejectsNonFiniteFloats(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := recwire.Marshal(f); err == nil {
			t.Fatalf("non-finite float %v accepted", f)
		}
	}
}

func TestMarshalAbsentOptionalAsNull(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("R", recwire.Fields(
		recwire.Field("opt", recwire.OptionalOf(recwire.String())),
	))
	reg.MustCompile()
	s, _ := reg.Schema("R")
	r, _ := s.New()
	out, err := recwire.Marshal(r)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(out) != `{"opt":null}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestEncoderReusesBuffer(t *testing.T) {
	enc := recwire.NewEncoder()
	first, err := enc.Encode(map[string]any{"n": int64(1)})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(first) != `{"n":1}` {
		t.Fatalf("unexpected encoding %s", first)
	}
	second, err := enc.Encode(map[string]any{"n": int64(2)})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(second) != `{"n":2}` {
		t.Fatalf("unexpected encoding %s", second)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Event", recwire.Fields(
		recwire.Field("ts", recwire.Time()),
		recwire.Field("kind", recwire.String()),
		recwire.Field("payload", recwire.MapOf(recwire.Int())),
	))
	reg.Register("User", recwire.Fields(
		recwire.Field("user_id", recwire.UUID()),
		recwire.Field("active", recwire.Bool()),
		recwire.Field("score", recwire.Int()),
		recwire.Field("weight", recwire.Float()),
		recwire.Field("tags", recwire.SeqOf(recwire.String())),
		recwire.Field("blob", recwire.Bytes()),
		recwire.Field("events", recwire.SeqOf(recwire.Ref("Event"))),
	))
	reg.MustCompile()
	user, _ := reg.TypeOf("User")

	v, err := recwire.Convert(map[string]any{
		"user_id": "8f14e45f-ceea-4672-a2c5-6d5c2f8c7a01",
		"active":  true,
		"score":   41,
		"weight":  72.5,
		"tags":    []any{"x", "y"},
		"blob":    "aGVsbG8=",
		"events": []any{
			map[string]any{
				"ts":      "2024-05-01T12:34:56.789Z",
				"kind":    "login",
				"payload": map[string]any{"n": 1},
			},
		},
	}, user)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	data, err := recwire.Marshal(v)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	back, err := recwire.MustDecoder(user).Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !v.(*recwire.Record).Equal(back.(*recwire.Record)) {
		t.Fatalf("round trip changed the record:\n in  %v\n out %v", v, back)
	}
}
