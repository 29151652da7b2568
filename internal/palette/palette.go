// Package palette maps emotions of the Plutchik wheel to colors.
//
// All tables are immutable package data. Every function is pure and total:
// unknown emotion labels fall back to joy and intensities outside 1..10 fall
// back to 5.
package palette

import (
	"fmt"
	"math"

	"moodlog/internal/models"
)

const (
	DefaultEmotion   = models.EmotionJoy
	DefaultIntensity = 5
	MinIntensity     = 1
	MaxIntensity     = 10
)

type baseColor struct {
	name        string
	hex         string
	rgb         models.RGB
	description string
}

var baseColors = map[string]baseColor{
	models.EmotionJoy:          {"옐로우", "#FFFF00", models.RGB{255, 255, 0}, "기쁨의 원색"},
	models.EmotionTrust:        {"그린", "#00FF00", models.RGB{0, 255, 0}, "신뢰의 원색"},
	models.EmotionFear:         {"청록", "#00FFFF", models.RGB{0, 255, 255}, "두려움의 원색"},
	models.EmotionSurprise:     {"블루", "#0000FF", models.RGB{0, 0, 255}, "놀람의 원색"},
	models.EmotionSadness:      {"네이비", "#000080", models.RGB{0, 0, 128}, "슬픔의 원색"},
	models.EmotionDisgust:      {"퍼플", "#800080", models.RGB{128, 0, 128}, "혐오의 원색"},
	models.EmotionAnger:        {"레드", "#FF0000", models.RGB{255, 0, 0}, "분노의 원색"},
	models.EmotionAnticipation: {"오렌지", "#FFA500", models.RGB{255, 165, 0}, "기대의 원색"},
}

// modifier darkens and saturates a base hue. Index 0 is intensity 1.
type modifier struct {
	brightness float64
	saturation float64
}

var intensityModifiers = [MaxIntensity]modifier{
	{0.95, 0.8},
	{0.9, 0.85},
	{0.85, 0.9},
	{0.8, 0.95},
	{0.75, 1.0},
	{0.7, 1.0},
	{0.65, 1.0},
	{0.6, 1.0},
	{0.55, 1.0},
	{0.5, 1.0},
}

// WheelOrder is the clockwise order of the wheel; neighbours form dyads.
var WheelOrder = [8]string{
	models.EmotionJoy,
	models.EmotionTrust,
	models.EmotionFear,
	models.EmotionSurprise,
	models.EmotionSadness,
	models.EmotionDisgust,
	models.EmotionAnger,
	models.EmotionAnticipation,
}

// dyadLabels is indexed like WheelOrder: dyadLabels[i] blends WheelOrder[i] and WheelOrder[i+1].
var dyadLabels = [8]string{
	"사랑",  // joy + trust
	"순종",  // trust + fear
	"경외",  // fear + surprise
	"실망",  // surprise + sadness
	"후회",  // sadness + disgust
	"경멸",  // disgust + anger
	"공격성", // anger + anticipation
	"낙관",  // anticipation + joy
}

// IsBaseEmotion reports whether label is one of the eight wheel emotions.
func IsBaseEmotion(label string) bool {
	_, ok := baseColors[label]
	return ok
}

// NormalizeIntensity maps anything outside 1..10 to the default intensity.
func NormalizeIntensity(intensity int) int {
	if intensity < MinIntensity || intensity > MaxIntensity {
		return DefaultIntensity
	}
	return intensity
}

func ClampIntensity(intensity int) int {
	return max(MinIntensity, min(MaxIntensity, intensity))
}

// ColorFor returns the color of emotion at the given intensity. Higher
// intensity gives a deeper, more saturated color, never a brighter one.
func ColorFor(emotion string, intensity int) models.EmotionColor {
	base, ok := baseColors[emotion]
	if !ok {
		base = baseColors[DefaultEmotion]
	}
	intensity = NormalizeIntensity(intensity)
	m := intensityModifiers[intensity-1]

	var adjusted [3]int
	for i, c := range base.rgb {
		adjusted[i] = int(float64(c) * m.brightness)
	}

	if m.saturation < 1.0 {
		hi := max(adjusted[0], adjusted[1], adjusted[2])
		lo := min(adjusted[0], adjusted[1], adjusted[2])
		if delta := hi - lo; delta > 0 {
			newDelta := int(float64(delta) * m.saturation)
			for i, c := range adjusted {
				adjusted[i] = int(float64(hi) - float64(newDelta)*float64(hi-c)/float64(delta))
			}
		}
	}

	rgb := models.RGB{uint8(adjusted[0]), uint8(adjusted[1]), uint8(adjusted[2])}
	return models.EmotionColor{
		Name:        base.name,
		Hex:         Hex(rgb),
		RGB:         rgb,
		Description: base.description,
		Intensity:   intensity,
	}
}

// BaseColors returns the unmodified table in wheel order.
func BaseColors() []models.EmotionColor {
	out := make([]models.EmotionColor, 0, len(WheelOrder))
	for _, emotion := range WheelOrder {
		b := baseColors[emotion]
		out = append(out, models.EmotionColor{
			Name:        b.name,
			Hex:         b.hex,
			RGB:         b.rgb,
			Description: b.description,
		})
	}
	return out
}

func Hex(rgb models.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

func mix(a, b models.RGB) models.RGB {
	var out models.RGB
	for i := range out {
		out[i] = uint8(float64(a[i])*0.5 + float64(b[i])*0.5)
	}
	return out
}

func squaredDistance(a, b models.RGB) int {
	d := 0
	for i := range a {
		x := int(a[i]) - int(b[i])
		d += x * x
	}
	return d
}

// roundHalfEven matches the rounding used when the averages were first
// computed for stored reports.
func roundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}
