package usecases

import (
	"strings"
	"testing"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr bool
	}{
		{"plain", `{"primary_emotion":"슬픔","intensity":6,"confidence":0.8}`, "슬픔", false},
		{"fenced", "```json\n{\"primary_emotion\":\"기쁨\",\"intensity\":3}\n```", "기쁨", false},
		{"prose around", "분석 결과입니다:\n{\"primary_emotion\":\"분노\"}\n감사합니다", "분노", false},
		{"no object", "모르겠어요", "", true},
		{"missing emotion", `{"intensity":4}`, "", true},
		{"broken", `{"primary_emotion": "슬픔",`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassification(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.PrimaryEmotion != tt.want {
				t.Errorf("emotion = %q, want %q", got.PrimaryEmotion, tt.want)
			}
		})
	}
}

func TestBuildClassificationPrompt(t *testing.T) {
	p := BuildClassificationPrompt("비가 왔다")
	if !strings.Contains(p, "텍스트: 비가 왔다") {
		t.Errorf("prompt does not embed text: %s", p)
	}
}
