package models

// Base emotion labels of the Plutchik wheel.
const (
	EmotionJoy          = "기쁨"
	EmotionTrust        = "신뢰"
	EmotionFear         = "두려움"
	EmotionSurprise     = "놀람"
	EmotionSadness      = "슬픔"
	EmotionDisgust      = "혐오"
	EmotionAnger        = "분노"
	EmotionAnticipation = "기대"
)

// RGB is an 8-bit color triple. It encodes as a JSON array.
type RGB [3]uint8

type EmotionColor struct {
	Name        string `json:"name"`
	Hex         string `json:"hex"`
	RGB         RGB    `json:"rgb"`
	Description string `json:"description"`
	Intensity   int    `json:"intensity"`
}

type Classification struct {
	PrimaryEmotion string       `json:"primary_emotion"`
	Intensity      int          `json:"intensity"`
	Confidence     float64      `json:"confidence"`
	Reasoning      string       `json:"reasoning"`
	Color          EmotionColor `json:"color"`
	Summary        string       `json:"summary,omitempty"`
	AIUsed         bool         `json:"ai_used"`
}

// NegativeEmotions are the labels counted as negative days.
var NegativeEmotions = map[string]struct{}{
	"우울":  {},
	"슬픔":  {},
	"분노":  {},
	"혐오":  {},
	"두려움": {},
	"불안":  {},
	"짜증":  {},
	"화남":  {},
}

func IsNegative(emotion string) bool {
	_, ok := NegativeEmotions[emotion]
	return ok
}
