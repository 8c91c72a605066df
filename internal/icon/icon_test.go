package icon

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/image/webp"
)

func decodeSize(t *testing.T, b []byte) (int, int) {
	t.Helper()
	img, err := webp.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode webp: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestRenderer_outletPin(t *testing.T) {
	r := NewRenderer(32)

	b, err := r.Outlet()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if w, h := decodeSize(t, b); w != 32 || h != 32 {
		t.Fatalf("unexpected size %dx%d", w, h)
	}

	again, _ := r.Outlet()
	if &again[0] != &b[0] {
		t.Fatalf("expected cached bytes")
	}
}

func TestRenderer_clusterBadge(t *testing.T) {
	r := NewRenderer(40)

	small, err := r.Cluster(3)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if w, h := decodeSize(t, small); w != 40 || h != 40 {
		t.Fatalf("unexpected size %dx%d", w, h)
	}

	big, _ := r.Cluster(1500)
	bigger, _ := r.Cluster(2500)
	if &big[0] != &bigger[0] {
		t.Fatalf("counts above the label limit should share one badge")
	}
	if bytes.Equal(small, big) {
		t.Fatalf("different counts should render differently")
	}
}

func TestRenderer_invalidCount(t *testing.T) {
	r := NewRenderer(32)
	if _, err := r.Cluster(0); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
}

func TestLabel(t *testing.T) {
	cases := map[int]string{1: "1", 42: "42", 999: "999", 1000: "999+"}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%d) = %q, want %q", in, got, want)
		}
	}
}
