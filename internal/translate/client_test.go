package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexiqai/readaloud/internal/persona"
)

func TestTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("dt") != "t" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("sl") != "en" || q.Get("tl") != "vi" {
			t.Errorf("Expected en->vi, got %s->%s", q.Get("sl"), q.Get("tl"))
		}
		if q.Get("q") != "hello" {
			t.Errorf("Expected trimmed text 'hello', got %q", q.Get("q"))
		}
		w.Write([]byte(`[[["xin chào","hello",null,null,1]]]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Translate(context.Background(), "  hello  ", "vi")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}

	if result.Text != "xin chào" {
		t.Errorf("Expected 'xin chào', got '%s'", result.Text)
	}
	if result.SuggestedPersona != persona.ViFemale {
		t.Errorf("Expected suggested persona vi_female, got %s", result.SuggestedPersona)
	}
}

func TestTranslate_ToEnglish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sl") != "vi" {
			t.Errorf("Expected source vi, got %s", r.URL.Query().Get("sl"))
		}
		w.Write([]byte(`[[["hello","xin chào",null,null,10]],null,"vi"]`))
	}))
	defer server.Close()

	result, err := NewClient(server.URL).Translate(context.Background(), "xin chào", "en")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if result.Text != "hello" || result.SuggestedPersona != persona.EnFemale {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestTranslate_InputValidation(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(server.URL)

	if _, err := client.Translate(context.Background(), "   ", "vi"); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
	if _, err := client.Translate(context.Background(), "hello", "fr"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("Expected ErrUnsupportedLanguage, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no endpoint calls, got %d", calls)
	}
}

func TestTranslate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `[[["x"]]]`},
		{"rate limited", http.StatusTooManyRequests, ``},
		{"not json", http.StatusOK, `<html>error</html>`},
		{"empty array", http.StatusOK, `[]`},
		{"empty segments", http.StatusOK, `[[]]`},
		{"null segments", http.StatusOK, `[null]`},
		{"non-string text", http.StatusOK, `[[[42,"hello"]]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Translate(context.Background(), "hello", "vi")
			if !errors.Is(err, ErrTranslationFailed) {
				t.Errorf("Expected ErrTranslationFailed, got %v", err)
			}
			if calls != 1 {
				t.Errorf("Expected exactly one call (no retry), got %d", calls)
			}
		})
	}
}

func TestSourceFor(t *testing.T) {
	if SourceFor("vi") != "en" {
		t.Error("Expected source en for target vi")
	}
	if SourceFor("en") != "vi" {
		t.Error("Expected source vi for target en")
	}
}
