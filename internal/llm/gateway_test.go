package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFallbackResponseKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  fallbackKind
	}{
		{"I feel so LONELY tonight", fallbackLonely},
		{"I am afraid of tomorrow", fallbackFear},
		{"work has me stressed", fallbackAnxious},
		{"I can't stop crying", fallbackSad},
		{"I want to give up", fallbackHopeless},
		{"I'm so angry at my brother", fallbackGeneric},
		{"what a lovely day", fallbackGeneric},
		{"", fallbackGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.input))
			assert.Equal(t, fallbackResponses[tt.want], FallbackResponse(tt.input))
		})
	}
}

func TestFallbackFirstGroupWins(t *testing.T) {
	// "alone" (lonely) and "afraid" (fear) both match; lonely is listed first.
	assert.Equal(t, fallbackLonely, classify("I am afraid to be alone"))
}

func TestFallbackResponsesDistinct(t *testing.T) {
	seen := map[string]bool{}
	for kind, text := range fallbackResponses {
		assert.NotEmpty(t, text, kind)
		assert.False(t, seen[text], "duplicate text for %s", kind)
		seen[text] = true
	}
	assert.Len(t, fallbackResponses, 6)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Groq ")
	require.NoError(t, err)
	assert.Equal(t, ProviderGroq, p)

	_, err = ParseProvider("mistral")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestConfigConfigured(t *testing.T) {
	assert.False(t, Config{Provider: ProviderOpenAI}.Configured())
	assert.False(t, Config{Provider: ProviderOpenAI, APIKey: "YOUR_API_KEY_HERE"}.Configured())
	assert.False(t, Config{Provider: ProviderOpenAI, APIKey: "   "}.Configured())
	assert.True(t, Config{Provider: ProviderOpenAI, APIKey: "sk-test"}.Configured())
}

func TestStatusHidesKeyAndDefaultsModel(t *testing.T) {
	g := NewGateway(Config{Provider: ProviderAnthropic, APIKey: "secret"}, zap.NewNop())

	status := g.Status()
	assert.Equal(t, ProviderAnthropic, status.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", status.Model)
	assert.True(t, status.Configured)

	raw, err := json.Marshal(status)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}

func TestGetResponseUnconfiguredUsesFallback(t *testing.T) {
	g := NewGateway(Config{Provider: ProviderOpenAI}, zap.NewNop())

	reply := g.GetResponse(context.Background(), "I feel lonely", nil)
	assert.Equal(t, SourceFallback, reply.Source)
	assert.Equal(t, fallbackResponses[fallbackLonely], reply.Text)
}

func TestGetResponseUnsupportedProviderUsesFallback(t *testing.T) {
	g := NewGateway(Config{Provider: "mistral", APIKey: "key"}, zap.NewNop())

	reply := g.GetResponse(context.Background(), "hello", nil)
	assert.Equal(t, SourceFallback, reply.Source)
	assert.Equal(t, fallbackResponses[fallbackGeneric], reply.Text)
}

func TestGetResponseOpenAI(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  Beloved, be still.  "}}]}`)
	}))
	defer srv.Close()

	g := NewGateway(Config{Provider: ProviderOpenAI, APIKey: "sk-test"}, zap.NewNop(), WithBaseURL(ProviderOpenAI, srv.URL))

	var history []Turn
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	reply := g.GetResponse(context.Background(), "How do I find peace?", history)
	assert.Equal(t, SourceProvider, reply.Source)
	assert.Equal(t, ProviderOpenAI, reply.Provider)
	assert.Equal(t, "Beloved, be still.", reply.Text)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, MaxHistoryTurns+2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "turn 4", got.Messages[1].Content, "only the last turns are sent")
	assert.Equal(t, "How do I find peace?", got.Messages[len(got.Messages)-1].Content)
}

func TestGetResponseGroqUsesOpenAIWireFormat(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Peace be with you."}}]}`)
	}))
	defer srv.Close()

	g := NewGateway(Config{Provider: ProviderGroq, APIKey: "gsk"}, zap.NewNop(), WithBaseURL(ProviderGroq, srv.URL))

	reply := g.GetResponse(context.Background(), "hi", nil)
	assert.Equal(t, SourceProvider, reply.Source)
	assert.Equal(t, "llama-3.1-70b-versatile", got.Model)
}

func TestGetResponseAnthropic(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"My child, "},{"type":"text","text":"rest in Him."}]}`)
	}))
	defer srv.Close()

	g := NewGateway(Config{Provider: ProviderAnthropic, APIKey: "sk-ant"}, zap.NewNop(), WithBaseURL(ProviderAnthropic, srv.URL))

	history := []Turn{{Role: "user", Content: "hello"}, {Role: "assistant", Content: "hello, beloved"}}
	reply := g.GetResponse(context.Background(), "I am tired", history)
	assert.Equal(t, SourceProvider, reply.Source)
	assert.Equal(t, "My child, rest in Him.", reply.Text)

	assert.Equal(t, SystemPrompt, got.System)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[2].Role)
}

func TestGetResponseServerErrorUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGateway(Config{Provider: ProviderOpenAI, APIKey: "bad"}, zap.NewNop(), WithBaseURL(ProviderOpenAI, srv.URL))

	reply := g.GetResponse(context.Background(), "I am so worried", nil)
	assert.Equal(t, SourceFallback, reply.Source)
	assert.Equal(t, fallbackResponses[fallbackAnxious], reply.Text)
}

func TestGetResponseMalformedBodyUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	g := NewGateway(Config{Provider: ProviderOpenAI, APIKey: "key"}, zap.NewNop(), WithBaseURL(ProviderOpenAI, srv.URL))

	reply := g.GetResponse(context.Background(), "hello", nil)
	assert.Equal(t, SourceFallback, reply.Source)
}

func TestGetResponseTimeoutUsesFallback(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := NewGateway(Config{Provider: ProviderOpenAI, APIKey: "key"}, zap.NewNop(),
		WithBaseURL(ProviderOpenAI, srv.URL), WithTimeout(50*time.Millisecond))

	start := time.Now()
	reply := g.GetResponse(context.Background(), "I feel hopeless", nil)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, SourceFallback, reply.Source)
	assert.Equal(t, fallbackResponses[fallbackHopeless], reply.Text)
}

func TestSetConfigSwapsProvider(t *testing.T) {
	g := NewGateway(Config{Provider: ProviderOpenAI}, zap.NewNop())
	assert.False(t, g.Status().Configured)

	g.SetConfig(Config{Provider: ProviderGemini, APIKey: "g-key"})
	status := g.Status()
	assert.Equal(t, ProviderGemini, status.Provider)
	assert.Equal(t, "gemini-1.5-flash", status.Model)
	assert.True(t, status.Configured)
}

func TestGeminiRole(t *testing.T) {
	assert.Equal(t, "model", geminiRole("assistant"))
	assert.Equal(t, "user", geminiRole("user"))
}
