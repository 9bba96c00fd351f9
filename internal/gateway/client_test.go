package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankbot/internal/prompt"
)

func TestGenerate_SendsCompletionRequest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"  NEFT settles in half-hourly batches. "}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	env := prompt.New("", "What is NEFT?")
	text, err := c.Generate(context.Background(), env, Options{Temperature: 0.2, NumPredict: 200})

	require.NoError(t, err)
	assert.Equal(t, "NEFT settles in half-hourly batches.", text)
	assert.Equal(t, DefaultModel, got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, env.String(), got.Prompt)
	assert.Equal(t, 0.2, got.Options.Temperature)
	assert.Equal(t, 200, got.Options.NumPredict)
}

func TestGenerate_ChatMode(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Use the app."}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Mode: ModeChat, Model: "llama3"})
	text, err := c.Generate(context.Background(), prompt.New("ctx", "How do I reset my UPI PIN?"), Options{})

	require.NoError(t, err)
	assert.Equal(t, "Use the app.", text)
	assert.Equal(t, "llama3", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "How do I reset my UPI PIN?", got.Messages[1].Content)
	assert.Equal(t, DefaultNumPredict, got.Options.NumPredict)
}

func TestGenerate_MissingTextField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	text, err := New(Config{BaseURL: srv.URL}).Generate(context.Background(), prompt.New("", "q"), Options{})

	require.NoError(t, err)
	assert.Equal(t, EmptyReply, text)
}

func TestGenerate_ServerErrorIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Generate(context.Background(), prompt.New("", "q"), Options{})

	require.Error(t, err)
	assert.Equal(t, BadResponse, KindOf(err))
	var f *Failure
	assert.True(t, errors.As(err, &f))
}

func TestGenerate_MalformedBodyIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Generate(context.Background(), prompt.New("", "q"), Options{})

	assert.Equal(t, BadResponse, KindOf(err))
}

func TestGenerate_RefusedConnectionIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: url}).Generate(context.Background(), prompt.New("", "q"), Options{})

	assert.Equal(t, Unavailable, KindOf(err))
}

func TestGenerate_SlowServerIsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	_, err := New(Config{BaseURL: srv.URL}).Generate(context.Background(), prompt.New("", "q"), Options{Timeout: 50 * time.Millisecond})

	assert.Equal(t, Timeout, KindOf(err))
}

func TestReply_MapsEveryKindToText(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	got := Reply(context.Background(), New(Config{BaseURL: url}), prompt.New("", "q"), Options{})

	assert.Equal(t, "Unable to connect to the banking assistant service. Please ensure Ollama is running.", got)
}

func TestMessage_Table(t *testing.T) {
	assert.Equal(t, "The request took too long. Please try a simpler question.", Message(Timeout))
	assert.Equal(t, "I'm currently unable to connect to the banking knowledge base. Please try again.", Message(BadResponse))
	assert.Equal(t, "I encountered an error processing your request. Please try again.", Message(Unknown))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, FailureKind(0), KindOf(nil))
}

func TestDetectModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral:7b"},{"name":"llama3"}]}`))
	}))
	defer srv.Close()

	assert.Equal(t, "mistral:7b", New(Config{BaseURL: srv.URL}).DetectModel(context.Background()))
}

func TestDetectModel_FallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Equal(t, FallbackModel, New(Config{BaseURL: url}).DetectModel(context.Background()))
}

func TestWithDefaults_ClampsTemperature(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, 1.0, c.withDefaults(Options{Temperature: 3}).Temperature)
	assert.Equal(t, 0.0, c.withDefaults(Options{Temperature: -1}).Temperature)
	assert.Equal(t, DefaultTimeout, c.withDefaults(Options{}).Timeout)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()

	got, err := m.Generate(context.Background(), prompt.New("first passage\n\nsecond", "q"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "[mock] From the document: first passage", got)

	got, err = m.Generate(context.Background(), prompt.New("", "What is KYC?"), Options{})
	require.NoError(t, err)
	assert.Contains(t, got, "What is KYC?")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Generate(ctx, prompt.New("", "q"), Options{})
	assert.Equal(t, Unknown, KindOf(err))
}
