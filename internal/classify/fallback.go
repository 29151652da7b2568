package classify

import (
	"fmt"
	"strings"

	"moodlog/internal/models"
	"moodlog/internal/palette"
)

const fallbackConfidence = 0.6

var negativeKeywords = []string{
	"힘들", "어렵", "스트레스", "피곤", "지치", "불안", "걱정", "우울", "슬픔",
	"화나", "짜증", "답답", "절망", "무기력", "의미없", "싫", "혐오", "두려움",
	"무섭", "놀람", "충격", "실망", "후회", "미안", "죄송", "부끄러", "창피",
	"죽고싶", "자살", "끝내", "그만", "싫어", "힘들어", "지쳐", "피곤해",
}

var positiveKeywords = []string{
	"기쁘", "행복", "즐겁", "신나", "좋", "만족", "감사", "희망", "기대",
	"설렘", "신뢰", "안전", "편안", "평온", "차분", "여유", "성취", "성공",
	"자랑", "뿌듯", "감동", "감탄", "놀라", "신기", "재미", "웃음",
}

// negativeSubsets refine a negative-dominant entry. The first matching subset
// wins; sadness is the default when none match.
var negativeSubsets = []struct {
	emotion  string
	keywords []string
}{
	{models.EmotionSadness, []string{"힘들", "지치", "피곤", "무기력", "절망", "죽고싶"}},
	{models.EmotionAnger, []string{"화나", "짜증", "답답"}},
	{models.EmotionFear, []string{"불안", "걱정", "두려움", "무섭"}},
	{models.EmotionSurprise, []string{"놀람", "충격", "신기"}},
}

var fallbackSummaries = map[string]string{
	models.EmotionJoy:          "긍정적이고 기쁜 감정을 느낀 하루였습니다.",
	models.EmotionTrust:        "안정감과 신뢰를 느낀 하루였습니다.",
	models.EmotionFear:         "불안하고 두려운 감정이 있었던 하루였습니다.",
	models.EmotionSurprise:     "예상치 못한 일로 놀란 하루였습니다.",
	models.EmotionSadness:      "슬프고 우울한 감정이 있었던 하루였습니다.",
	models.EmotionDisgust:      "불쾌하고 싫은 감정이 있었던 하루였습니다.",
	models.EmotionAnger:        "화가 나고 분노한 감정이 있었던 하루였습니다.",
	models.EmotionAnticipation: "희망과 기대를 느낀 하루였습니다.",
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

func containsAny(text string, keywords []string) bool {
	return countMatches(text, keywords) > 0
}

// Fallback classifies text by keyword counts. It cannot fail.
//
// Ties with any matches resolve to sadness: ambiguous entries are flagged
// rather than ignored by the alerting path.
func Fallback(text string) models.Classification {
	lower := strings.ToLower(text)
	neg := countMatches(lower, negativeKeywords)
	pos := countMatches(lower, positiveKeywords)

	var emotion string
	var intensity int
	switch {
	case neg > pos:
		emotion = models.EmotionSadness
		for _, sub := range negativeSubsets {
			if containsAny(lower, sub.keywords) {
				emotion = sub.emotion
				break
			}
		}
		intensity = palette.ClampIntensity(neg * 2)
	case pos > neg:
		emotion = models.EmotionJoy
		intensity = palette.ClampIntensity(pos * 2)
	case neg == 0:
		emotion = models.EmotionTrust
		intensity = palette.DefaultIntensity
	default:
		emotion = models.EmotionSadness
		intensity = palette.DefaultIntensity
	}

	return models.Classification{
		PrimaryEmotion: emotion,
		Intensity:      intensity,
		Confidence:     fallbackConfidence,
		Reasoning:      fmt.Sprintf("키워드 분석 결과: 부정(%d), 긍정(%d) - 폴백 분석 사용", neg, pos),
		Color:          palette.ColorFor(emotion, intensity),
		Summary:        FallbackSummary(emotion),
	}
}

// FallbackSummary returns the fixed one-line summary template for emotion.
func FallbackSummary(emotion string) string {
	if s, ok := fallbackSummaries[emotion]; ok {
		return s
	}
	return fmt.Sprintf("%s한 감정을 느낀 하루였습니다.", emotion)
}
