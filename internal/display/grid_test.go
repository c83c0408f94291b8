package display

import "testing"

func TestSerpentine(t *testing.T) {
	tests := []struct {
		x, y int
		want int
	}{
		{0, 0, 15},
		{0, 15, 0},
		{1, 0, 16},
		{1, 15, 31},
		{2, 0, 47},
		{15, 15, 255},
		{14, 15, 224},
	}
	for _, tt := range tests {
		if got := Serpentine(tt.x, tt.y); got != tt.want {
			t.Errorf("Serpentine(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestSerpentine_Bijective(t *testing.T) {
	seen := make(map[int]bool, Width*Height)
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			i := Serpentine(x, y)
			if i < 0 || i >= Width*Height {
				t.Fatalf("Serpentine(%d, %d) = %d out of range", x, y, i)
			}
			if seen[i] {
				t.Fatalf("Serpentine index %d produced twice", i)
			}
			seen[i] = true
		}
	}
}

func TestSerpentine_ChainAdjacent(t *testing.T) {
	// Consecutive wiring indices must be physically adjacent cells.
	pos := make([][2]int, Width*Height)
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			pos[Serpentine(x, y)] = [2]int{x, y}
		}
	}
	for i := 1; i < len(pos); i++ {
		dx := pos[i][0] - pos[i-1][0]
		dy := pos[i][1] - pos[i-1][1]
		if dx*dx+dy*dy != 1 {
			t.Fatalf("index %d at %v not adjacent to %d at %v", i, pos[i], i-1, pos[i-1])
		}
	}
}

func TestParseBrightness(t *testing.T) {
	tests := []struct {
		in   string
		want Brightness
	}{
		{"full", BrightnessFull},
		{"Half", BrightnessHalf},
		{"", BrightnessHalf},
		{"quarter", BrightnessQuarter},
		{" eighth ", BrightnessEighth},
	}
	for _, tt := range tests {
		got, err := ParseBrightness(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseBrightness(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseBrightness("blinding"); err == nil {
		t.Error("ParseBrightness(blinding) succeeded")
	}
}
