package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/tabla-live/tabla-server/internal/engine"
)

func TestBoardPNGOpeningPosition(t *testing.T) {
	b := engine.NewBoard()
	data, err := BoardPNG(context.Background(), &b, 0, 0, Options{Die1: 3, Die2: 5})
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != baseWidth || img.Bounds().Dy() != baseHeight {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
}

func TestBoardPNGScaled(t *testing.T) {
	b := engine.NewBoard()
	data, err := BoardPNG(context.Background(), &b, 0, 0, Options{Width: 480})
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 480 {
		t.Fatalf("width = %d, want 480", img.Bounds().Dx())
	}
}

func TestBoardPNGDiffersByPosition(t *testing.T) {
	opening := engine.NewBoard()
	moved := engine.NewBoard()
	moved.Points[0] = 1
	moved.Points[3] = 1
	moved.BarB = 2
	moved.Points[23] = 0

	a, err := BoardPNG(context.Background(), &opening, 0, 0, Options{})
	if err != nil {
		t.Fatalf("BoardPNG opening: %v", err)
	}
	b, err := BoardPNG(context.Background(), &moved, 3, 0, Options{})
	if err != nil {
		t.Fatalf("BoardPNG moved: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("renders of different positions are identical")
	}
}

func TestBoardPNGNilBoard(t *testing.T) {
	if _, err := BoardPNG(context.Background(), nil, 0, 0, Options{}); err == nil {
		t.Fatal("expected error for nil board")
	}
}

func TestBoardPNGCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := engine.NewBoard()
	if _, err := BoardPNG(ctx, &b, 0, 0, Options{}); err == nil {
		t.Fatal("expected context error")
	}
}
