package usecases

import (
	"encoding/json"
	"fmt"
	"strings"

	"moodlog/internal/classify"
)

const classificationPrompt = `다음 텍스트의 감정을 로버트 플루치크의 감정의 바퀴 8가지 중에서 분석해주세요:
감정: 기쁨, 신뢰, 두려움, 놀람, 슬픔, 혐오, 분노, 기대

텍스트: %s

반드시 다음 JSON 형태로만 응답해주세요. 다른 텍스트는 포함하지 마세요:
{
  "primary_emotion": "감정명",
  "intensity": 1-10 사이의 감정 강도,
  "confidence": 0.0-1.0 사이의 분석 확신도,
  "reasoning": "분석 근거",
  "color_name": "이 감정을 나타내는 색상의 이름 (예: 선명한 빨강, 밝은 노랑)",
  "summary": "감정의 핵심을 담은 한 줄 요약"
}`

func BuildClassificationPrompt(text string) string {
	return fmt.Sprintf(classificationPrompt, text)
}

// ParseClassification extracts the JSON object from a model reply. Replies
// wrapped in markdown fences or surrounded by prose are accepted.
func ParseClassification(reply string) (*classify.Result, error) {
	jsonText := extractJSONObject(reply)
	if jsonText == "" {
		return nil, fmt.Errorf("no json object in reply")
	}

	var result classify.Result
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if strings.TrimSpace(result.PrimaryEmotion) == "" {
		return nil, fmt.Errorf("missing primary_emotion")
	}
	return &result, nil
}

func extractJSONObject(reply string) string {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
