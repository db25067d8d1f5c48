package session

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

func TestRingKeepsSuffixOfHistory(t *testing.T) {
	r := NewRing(8)
	r.Append([]byte("abcd"))
	r.Append([]byte("efgh"))
	r.Append([]byte("ij"))

	got := r.Snapshot()
	if string(got) != "cdefghij" {
		t.Fatalf("expected trailing 8 bytes, got %q", got)
	}
}

func TestRingOversizedAppend(t *testing.T) {
	r := NewRing(4)
	r.Append([]byte("0123456789"))
	if got := r.Snapshot(); string(got) != "6789" {
		t.Fatalf("expected last 4 bytes of oversized chunk, got %q", got)
	}
}

func TestRingSnapshotIsIdempotent(t *testing.T) {
	r := NewRing(16)
	r.Append([]byte("hello world"))

	first := r.Snapshot()
	second := r.Snapshot()
	if !bytes.Equal(first, second) {
		t.Fatalf("snapshots differ: %q vs %q", first, second)
	}

	// A snapshot must stay stable even if the ring moves on afterwards.
	r.Append([]byte("more output"))
	if string(first) != "hello world" {
		t.Fatalf("snapshot mutated by later append: %q", first)
	}
}

func TestRingReset(t *testing.T) {
	r := NewRing(8)
	r.Append([]byte("abcdefgh"))
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after reset, got %d bytes", r.Len())
	}
	r.Append([]byte("xy"))
	if got := r.Snapshot(); string(got) != "xy" {
		t.Fatalf("expected fresh contents after reset, got %q", got)
	}
}

func TestRingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(t, "capacity")
		r := NewRing(capacity)

		var history []byte
		numAppends := rapid.IntRange(0, 20).Draw(t, "num_appends")
		for i := 0; i < numAppends; i++ {
			chunk := rapid.SliceOfN(rapid.Byte(), 0, 100).Draw(t, "chunk")
			r.Append(chunk)
			history = append(history, chunk...)
		}

		got := r.Snapshot()
		if len(got) > capacity {
			t.Fatalf("ring exceeded capacity: %d > %d", len(got), capacity)
		}

		want := history
		if len(want) > capacity {
			want = want[len(want)-capacity:]
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("ring contents %q are not the history suffix %q", got, want)
		}
	})
}
