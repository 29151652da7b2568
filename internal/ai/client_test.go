package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatClient_Classify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("authorization = %q", got)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "m" || len(req.Messages) != 1 {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "```json\n{\"primary_emotion\":\"두려움\",\"intensity\":7,\"confidence\":0.9}\n```"}},
			},
		})
	}))
	defer srv.Close()

	c := NewChatClient("k", srv.URL+"/", "m", time.Second)
	res, err := c.Classify(context.Background(), "내일 발표가 무섭다")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.PrimaryEmotion != "두려움" || res.Intensity != 7 {
		t.Errorf("result = %+v", res)
	}
}

func TestChatClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewChatClient("k", srv.URL, "m", time.Second)
	if _, err := c.Classify(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}
