package palette

import (
	"testing"

	"moodlog/internal/models"
)

func brightness(c models.EmotionColor) int {
	return int(c.RGB[0]) + int(c.RGB[1]) + int(c.RGB[2])
}

func TestColorFor_DarkensAsIntensityRises(t *testing.T) {
	for _, emotion := range WheelOrder {
		prev := ColorFor(emotion, MinIntensity)
		for i := MinIntensity + 1; i <= MaxIntensity; i++ {
			cur := ColorFor(emotion, i)
			if brightness(cur) > brightness(prev) {
				t.Errorf("%s: brightness rose from %v (i=%d) to %v (i=%d)", emotion, prev.RGB, i-1, cur.RGB, i)
			}
			for ch := range cur.RGB {
				if cur.RGB[ch] > prev.RGB[ch] {
					t.Errorf("%s: channel %d rose from %d to %d at intensity %d", emotion, ch, prev.RGB[ch], cur.RGB[ch], i)
				}
			}
			prev = cur
		}
	}
}

func TestColorFor_KnownValues(t *testing.T) {
	tests := []struct {
		emotion   string
		intensity int
		want      models.RGB
		hex       string
	}{
		{models.EmotionJoy, 5, models.RGB{191, 191, 0}, "#bfbf00"},
		{models.EmotionJoy, 1, models.RGB{242, 242, 49}, "#f2f231"},
		{models.EmotionSadness, 1, models.RGB{25, 25, 121}, "#191979"},
		{models.EmotionAnger, 10, models.RGB{127, 0, 0}, "#7f0000"},
	}
	for _, tt := range tests {
		got := ColorFor(tt.emotion, tt.intensity)
		if got.RGB != tt.want {
			t.Errorf("ColorFor(%s, %d) rgb = %v, want %v", tt.emotion, tt.intensity, got.RGB, tt.want)
		}
		if got.Hex != tt.hex {
			t.Errorf("ColorFor(%s, %d) hex = %q, want %q", tt.emotion, tt.intensity, got.Hex, tt.hex)
		}
		if got.Intensity != tt.intensity {
			t.Errorf("intensity = %d, want %d", got.Intensity, tt.intensity)
		}
	}
}

func TestColorFor_UnknownInputsFallBack(t *testing.T) {
	got := ColorFor("nostalgia", 5)
	want := ColorFor(models.EmotionJoy, 5)
	if got != want {
		t.Errorf("unknown emotion: got %+v, want %+v", got, want)
	}

	if got := ColorFor(models.EmotionAnger, 42); got != ColorFor(models.EmotionAnger, DefaultIntensity) {
		t.Errorf("out of range intensity not normalized: %+v", got)
	}
}

func TestBuildExtendedPalette_SixteenDistinctLabels(t *testing.T) {
	for i := MinIntensity; i <= MaxIntensity; i++ {
		p := BuildExtendedPalette(i)
		if len(p) != 16 {
			t.Fatalf("intensity %d: got %d entries", i, len(p))
		}
		seen := make(map[string]bool)
		for _, e := range p {
			if seen[e.Label] {
				t.Errorf("intensity %d: duplicate label %q", i, e.Label)
			}
			seen[e.Label] = true
		}
	}
}

func TestBuildExtendedPalette_DyadIsMidpoint(t *testing.T) {
	p := BuildExtendedPalette(5)
	love, ok := p.Lookup("사랑")
	if !ok {
		t.Fatal("missing dyad 사랑")
	}
	joy := ColorFor(models.EmotionJoy, 5)
	trust := ColorFor(models.EmotionTrust, 5)
	want := models.RGB{
		uint8((int(joy.RGB[0]) + int(trust.RGB[0])) / 2),
		uint8((int(joy.RGB[1]) + int(trust.RGB[1])) / 2),
		uint8((int(joy.RGB[2]) + int(trust.RGB[2])) / 2),
	}
	if love.RGB != want {
		t.Errorf("사랑 = %v, want %v", love.RGB, want)
	}

	optimism, _ := p.Lookup("낙관")
	if optimism.Description != "기대+기쁨 조합 색" {
		t.Errorf("wrap-around dyad description = %q", optimism.Description)
	}
}

func TestRepresentativeColor_Empty(t *testing.T) {
	got := RepresentativeColor(nil)
	if got.Color != ColorFor(models.EmotionJoy, 5) {
		t.Errorf("empty input: got %+v", got.Color)
	}
}

func TestRepresentativeColor_SingleColorSnapsToItself(t *testing.T) {
	in := ColorFor(models.EmotionSadness, 7)
	got := RepresentativeColor([]models.EmotionColor{in})
	if got.ClosestEmotion != models.EmotionSadness {
		t.Errorf("closest = %q, want %q", got.ClosestEmotion, models.EmotionSadness)
	}
	if got.Color.RGB != in.RGB {
		t.Errorf("rgb = %v, want %v", got.Color.RGB, in.RGB)
	}
	if got.Period != 1 || got.AverageIntensity != 7 {
		t.Errorf("period/intensity = %d/%d", got.Period, got.AverageIntensity)
	}
}

func TestRepresentativeColor_BlendPicksDyad(t *testing.T) {
	joy := ColorFor(models.EmotionJoy, 5)
	trust := ColorFor(models.EmotionTrust, 5)
	got := RepresentativeColor([]models.EmotionColor{joy, trust})
	if got.ClosestEmotion != "사랑" {
		t.Errorf("closest = %q, want 사랑", got.ClosestEmotion)
	}
}
