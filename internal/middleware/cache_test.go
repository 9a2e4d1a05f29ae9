package middleware

import (
	"net/http"
	"testing"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Add("X-Custom", "a")
	hdr.Add("X-Custom", "b")
	body := []byte(`{"tables":[]}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(bs)
	if !ok {
		t.Fatalf("decode failed")
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if got := gotHdr.Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
	if vals := gotHdr.Values("X-Custom"); len(vals) != 2 || vals[0] != "a" || vals[1] != "b" {
		t.Fatalf("X-Custom = %v", vals)
	}
	if string(gotBody) != string(body) {
		t.Fatalf("body = %q, want %q", gotBody, body)
	}
}

func TestPayloadEmptyBody(t *testing.T) {
	bs, err := encodePayload(http.StatusNoContent, http.Header{}, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, _, body, ok := decodePayload(bs)
	if !ok {
		t.Fatalf("decode failed")
	}
	if status != http.StatusNoContent {
		t.Fatalf("status = %d", status)
	}
	if len(body) != 0 {
		t.Fatalf("body = %q, want empty", body)
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	for _, bs := range [][]byte{nil, {1, 2, 3}, make([]byte, 8)} {
		if _, _, _, ok := decodePayload(bs); ok && len(bs) < 8 {
			t.Fatalf("decode accepted %d-byte payload", len(bs))
		}
	}
	// header length pointing past the buffer must not panic
	bad := []byte{0, 0, 0, 200, 0, 0, 1, 0}
	if _, _, _, ok := decodePayload(bad); ok {
		t.Fatalf("decode accepted truncated header")
	}
}

func TestAsInt64(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int64
	}{
		{int64(7), 7},
		{int(3), 3},
		{float64(41), 41},
		{"12", 12},
		{"not a number", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := asInt64(tc.in); got != tc.want {
			t.Fatalf("asInt64(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
