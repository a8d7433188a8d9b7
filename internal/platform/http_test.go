package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func agentServer(t *testing.T, handler http.HandlerFunc) *AgentClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAgentClient(srv.URL, time.Second)
}

func TestAgentClient_Login(t *testing.T) {
	client := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"token": "sess-42"}`))
	})

	creds, err := client.Login(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, ok := creds.(agentToken)
	if !ok || tok.Token != "sess-42" {
		t.Errorf("unexpected credentials %#v", creds)
	}
}

func TestAgentClient_LoginUnauthorizedIsFatal(t *testing.T) {
	client := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Login(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Error("401 on login is bad credentials, not an expired session")
	}
	if IsTransient(err) {
		t.Error("bad credentials must not be retried")
	}
}

func TestAgentClient_LoginServerErrorIsTransient(t *testing.T) {
	client := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Login(context.Background())
	if !IsTransient(err) {
		t.Errorf("5xx must be transient, got %v", err)
	}
}

func TestAgentClient_LoginEmptyToken(t *testing.T) {
	client := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	if _, err := client.Login(context.Background()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestAgentClient_ExtractPage(t *testing.T) {
	client := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sess-42" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("expected page 2, got %q", got)
		}
		if got := r.URL.Query().Get("scope"); got != "today" {
			t.Errorf("expected scope today, got %q", got)
		}
		w.Write([]byte(`{"records": [{"name": "load-a", "status": "Success"}], "more": true}`))
	})

	records, more, err := client.ExtractPage(context.Background(), agentToken{Token: "sess-42"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Name != "load-a" {
		t.Errorf("unexpected records %v", records)
	}
	if !more {
		t.Error("expected more pages")
	}
}

func TestAgentClient_ExtractUnauthorizedIsSessionExpired(t *testing.T) {
	client := agentServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, _, err := client.ExtractPage(context.Background(), agentToken{Token: "stale"}, 0)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestAgentClient_ExtractWithoutCredentials(t *testing.T) {
	client := agentServer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, _, err := client.ExtractPage(context.Background(), nil, 0)
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestAgentClient_ConnectionErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := NewAgentClient(srv.URL, time.Second)

	_, err := client.Login(context.Background())
	if !IsTransient(err) {
		t.Errorf("connection refused must be transient, got %v", err)
	}
}
