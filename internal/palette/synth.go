package palette

import (
	"fmt"

	"moodlog/internal/models"
)

type Entry struct {
	Label string              `json:"label"`
	Color models.EmotionColor `json:"color"`
}

// Palette is the extended 16 color palette for one intensity: the eight
// base emotions in wheel order followed by the eight dyads.
type Palette []Entry

func (p Palette) Lookup(label string) (models.EmotionColor, bool) {
	for _, e := range p {
		if e.Label == label {
			return e.Color, true
		}
	}
	return models.EmotionColor{}, false
}

// Closest returns the entry with the minimum squared RGB distance.
// Equal distances keep the earlier entry.
func (p Palette) Closest(rgb models.RGB) Entry {
	best := -1
	bestDist := 0
	for i, e := range p {
		d := squaredDistance(rgb, e.Color.RGB)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Entry{Label: DefaultEmotion, Color: ColorFor(DefaultEmotion, DefaultIntensity)}
	}
	return p[best]
}

// BuildExtendedPalette builds the palette for intensity, clamped to 1..10.
// It is rebuilt on every call; nothing is cached across intensities.
func BuildExtendedPalette(intensity int) Palette {
	intensity = ClampIntensity(intensity)

	p := make(Palette, 0, 2*len(WheelOrder))
	base := make([]models.EmotionColor, len(WheelOrder))
	for i, emotion := range WheelOrder {
		base[i] = ColorFor(emotion, intensity)
		p = append(p, Entry{Label: emotion, Color: base[i]})
	}

	n := len(WheelOrder)
	for i, emotion := range WheelOrder {
		j := (i + 1) % n
		rgb := mix(base[i].RGB, base[j].RGB)
		label := dyadLabels[i]
		p = append(p, Entry{
			Label: label,
			Color: models.EmotionColor{
				Name:        label,
				Hex:         Hex(rgb),
				RGB:         rgb,
				Description: fmt.Sprintf("%s+%s 조합 색", emotion, WheelOrder[j]),
				Intensity:   intensity,
			},
		})
	}
	return p
}

type Representative struct {
	Color            models.EmotionColor `json:"color"`
	ClosestEmotion   string              `json:"closest_emotion"`
	Period           int                 `json:"period"`
	AverageIntensity int                 `json:"average_intensity"`
}

// RepresentativeColor averages the channels and intensities of colors and
// snaps the mean to the nearest entry of the extended palette at the mean
// intensity. An empty input yields joy at intensity 5.
func RepresentativeColor(colors []models.EmotionColor) Representative {
	if len(colors) == 0 {
		return Representative{
			Color:            ColorFor(DefaultEmotion, DefaultIntensity),
			ClosestEmotion:   DefaultEmotion,
			AverageIntensity: DefaultIntensity,
		}
	}

	var sum [3]int
	intensitySum := 0
	for _, c := range colors {
		for i, ch := range c.RGB {
			sum[i] += int(ch)
		}
		intensitySum += c.Intensity
	}
	count := len(colors)
	avg := models.RGB{uint8(sum[0] / count), uint8(sum[1] / count), uint8(sum[2] / count)}
	avgIntensity := ClampIntensity(roundHalfEven(float64(intensitySum) / float64(count)))

	chosen := BuildExtendedPalette(avgIntensity).Closest(avg)
	color := chosen.Color
	color.Description = fmt.Sprintf("지난 %d일간의 대표 감정색입니다.", count)
	color.Intensity = avgIntensity

	return Representative{
		Color:            color,
		ClosestEmotion:   chosen.Label,
		Period:           count,
		AverageIntensity: avgIntensity,
	}
}
