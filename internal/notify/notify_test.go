package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/theirongolddev/fintrack/internal/model"
)

func TestNewWithoutTokenIsNop(t *testing.T) {
	if _, ok := New("http://x", "123", "").(Nop); !ok {
		t.Fatal("New without token did not return Nop")
	}
	if err := (Nop{}).Send(context.Background(), "", "hi"); err != nil {
		t.Fatalf("Nop.Send: %v", err)
	}
}

func TestClientSend(t *testing.T) {
	var got textMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/555/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"messages":[{"id":"m1"}]}`))
	}))
	defer srv.Close()

	s := New(srv.URL+"/", "555", "tok")
	if err := s.Send(context.Background(), "+15551234", "Ana sent you a friend request"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.To != "15551234" || got.Text.Body != "Ana sent you a friend request" || got.Type != "text" {
		t.Fatalf("message = %+v", got)
	}
}

func TestClientSendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(srv.URL, "555", "tok")
	if err := s.Send(context.Background(), "1", "x"); !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if err := s.Send(context.Background(), " ", "x"); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("err = %v, want ErrNoRecipient", err)
	}
}
