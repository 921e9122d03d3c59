package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harborai/beacon/internal/domain"
)

func TestHTTPClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/progress" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("key") {
		case "done":
			w.Write([]byte(`{"state":"COMPLETED","data":{"rows":3}}`))
		case "broken":
			w.Write([]byte(`{"state":"FAILED","error":"disk full"}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	ctx := context.Background()

	rec, visible, err := client.Lookup(ctx, "done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !visible {
		t.Fatal("expected visible record")
	}
	if rec.State != domain.StateCompleted {
		t.Errorf("expected COMPLETED, got %s", rec.State)
	}
	if string(rec.Data) != `{"rows":3}` {
		t.Errorf("expected data passed through, got %s", rec.Data)
	}

	rec, visible, err = client.Lookup(ctx, "broken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !visible || rec.State != domain.StateFailed {
		t.Fatalf("expected visible FAILED record, got visible=%v rec=%+v", visible, rec)
	}
	if rec.Error == nil || *rec.Error != "disk full" {
		t.Errorf("expected error 'disk full', got %v", rec.Error)
	}

	// Empty body: key not yet visible, not an error.
	rec, visible, err = client.Lookup(ctx, "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visible || rec != nil {
		t.Errorf("expected not visible, got visible=%v rec=%+v", visible, rec)
	}
}

func TestHTTPClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	_, _, err := client.Lookup(context.Background(), "k1")
	if err == nil {
		t.Error("expected error on 500 response")
	}
}
