package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botpanel/telegram-bot-service/internal/config"
	"github.com/botpanel/telegram-bot-service/internal/store"
)

func testBot() store.Bot {
	return store.Bot{
		ID:       "11111111-1111-1111-1111-111111111111",
		Name:     "Shop Helper",
		Language: "sk",
		AI: store.AIConfig{
			Tone:      store.ToneFriendly,
			Knowledge: "We are open 9:00-17:00 on weekdays.",
			FAQ: []store.FAQEntry{
				{Question: "Where are you located?", Answer: "Main Street 1."},
			},
			ForbiddenTopics: []string{"politics"},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(nil, config.OpenAIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
	return client, srv
}

func completionHandler(calls *atomic.Int64, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}
}

func TestGenerate(t *testing.T) {
	var calls atomic.Int64
	var gotBody completionRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  We open at 9.  "}},
			},
		})
	})

	reply, err := client.Generate(context.Background(), "Aké máte otváracie hodiny?", testBot(), "user-1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "We open at 9.", reply)
	assert.EqualValues(t, 1, calls.Load())

	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.Equal(t, "Aké máte otváracie hodiny?", gotBody.Messages[1].Content)
	assert.Equal(t, "test-model", gotBody.Model)
	// Bot configured no max tokens, the default applies.
	assert.Equal(t, defaultMaxTokens, gotBody.MaxTokens)
}

func TestGenerateDebounce(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, completionHandler(&calls, "hello"))

	now := time.Now()
	client.now = func() time.Time { return now }

	first, err := client.Generate(context.Background(), "same question", testBot(), "user-1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", first)

	// Identical call inside the window returns "" without hitting the endpoint.
	now = now.Add(2 * time.Second)
	second, err := client.Generate(context.Background(), "same question", testBot(), "user-1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "", second)
	assert.EqualValues(t, 1, calls.Load())

	// Past the window the call goes through again.
	now = now.Add(debounceWindow)
	third, err := client.Generate(context.Background(), "same question", testBot(), "user-1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", third)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGenerateDebounceKeyedByChatAndUser(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, completionHandler(&calls, "hello"))

	_, err := client.Generate(context.Background(), "question", testBot(), "user-1", "chat-1")
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "question", testBot(), "user-2", "chat-1")
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "question", testBot(), "user-1", "chat-2")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGenerateProviderFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	reply, err := client.Generate(context.Background(), "hi", testBot(), "user-1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestGenerateWithoutKey(t *testing.T) {
	client := NewClient(nil, config.OpenAIConfig{BaseURL: "http://127.0.0.1:1", Model: "m"})
	reply, err := client.Generate(context.Background(), "hi", testBot(), "user-1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(testBot())

	for _, want := range []string{
		"Shop Helper",
		"We are open 9:00-17:00 on weekdays.",
		"Q: Where are you located?",
		"A: Main Street 1.",
		"politics",
		`"sk"`,
		"Never reveal which AI model",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPromptCustomTone(t *testing.T) {
	bot := testBot()
	bot.AI.Tone = store.ToneCustom
	bot.AI.CustomTone = "Speak like a pirate."

	assert.Contains(t, BuildSystemPrompt(bot), "Speak like a pirate.")
}
