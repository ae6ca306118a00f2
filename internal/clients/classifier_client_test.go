package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClassifierClientDisabledWithoutURL(t *testing.T) {
	assert.Nil(t, NewClassifierClient(ClassifierConfig{}))
}

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://img.example/1.jpg", req.ImageURL)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"labels":[{"name":"blanket","score":0.91},{"name":"textile","score":0.4}]}`))
	}))
	defer srv.Close()

	client := NewClassifierClient(ClassifierConfig{URL: srv.URL, APIKey: "secret"})
	labels, err := client.Classify(context.Background(), "https://img.example/1.jpg")

	require.NoError(t, err)
	assert.Equal(t, []Label{{Name: "blanket", Score: 0.91}, {Name: "textile", Score: 0.4}}, labels)
}

func TestClassifyNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClassifierClient(ClassifierConfig{URL: srv.URL})
	_, err := client.Classify(context.Background(), "https://img.example/1.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}
