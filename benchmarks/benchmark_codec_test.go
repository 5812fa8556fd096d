package recwire_test

import (
	"bytes"
	"testing"

	"github.com/recwire/recwire"
)

func userJSON(tb testing.TB) []byte {
	tb.Helper()
	data, err := recwire.Marshal(userPayload(7))
	if err != nil {
		tb.Fatalf("seed encode failed: %v", err)
	}
	return data
}

func userArrayJSON(tb testing.TB, n int) []byte {
	tb.Helper()
	one := userJSON(tb)
	var buf bytes.Buffer
	buf.Grow(n*(len(one)+1) + 2)
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(one)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// ---- Decode: fused vs generic-then-convert ----

func BenchmarkDecodeFused(b *testing.B) {
	reg := userRegistry(b)
	user, _ := reg.TypeOf("User")
	dec := recwire.MustDecoder(user)
	data := userJSON(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dec.Decode(data); err != nil {
			b.Fatalf("decode failed: %v", err)
		}
	}
}

func BenchmarkDecodeGenericThenConvert(b *testing.B) {
	reg := userRegistry(b)
	user, _ := reg.TypeOf("User")
	data := userJSON(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v, err := recwire.Unmarshal(data)
		if err != nil {
			b.Fatalf("unmarshal failed: %v", err)
		}
		if _, err := recwire.Convert(v, user); err != nil {
			b.Fatalf("convert failed: %v", err)
		}
	}
}

func BenchmarkDecodeFusedArray(b *testing.B) {
	reg := userRegistry(b)
	user, _ := reg.TypeOf("User")
	dec := recwire.MustDecoder(recwire.SeqOf(user))
	data := userArrayJSON(b, 1000)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dec.Decode(data); err != nil {
			b.Fatalf("decode failed: %v", err)
		}
	}
}

func BenchmarkDecodeReader(b *testing.B) {
	reg := userRegistry(b)
	user, _ := reg.TypeOf("User")
	dec := recwire.MustDecoder(user)
	data := userJSON(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dec.DecodeReader(bytes.NewReader(data)); err != nil {
			b.Fatalf("decode failed: %v", err)
		}
	}
}

// ---- Encode ----

func BenchmarkEncodeRecord(b *testing.B) {
	reg := userRegistry(b)
	user, _ := reg.TypeOf("User")
	v, err := recwire.Convert(userPayload(7), user)
	if err != nil {
		b.Fatalf("seed convert failed: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := recwire.Marshal(v); err != nil {
			b.Fatalf("encode failed: %v", err)
		}
	}
}

func BenchmarkEncodeRecordReused(b *testing.B) {
	reg := userRegistry(b)
	user, _ := reg.TypeOf("User")
	v, err := recwire.Convert(userPayload(7), user)
	if err != nil {
		b.Fatalf("seed convert failed: %v", err)
	}
	enc := recwire.NewEncoder()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Encode(v); err != nil {
			b.Fatalf("encode failed: %v", err)
		}
	}
}
