package dataset

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetchHTTP(t *testing.T) {
	t.Parallel()
	const payload = "T_REC,HARPNUM\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "table.csv")
	n, err := Fetch(srv.URL, path)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("Fetch() = %d bytes, want %d", n, len(payload))
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Errorf("fetched file = %q, want %q", got, payload)
	}
}

func TestFetchHTTPRetriesTransient(t *testing.T) {
	t.Parallel()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "table.csv")
	if _, err := Fetch(srv.URL, path); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if calls < 2 {
		t.Errorf("server saw %d calls, want a retry after 503", calls)
	}
}

func TestFetchHTTPPermanentFailure(t *testing.T) {
	t.Parallel()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "table.csv")
	if _, err := Fetch(srv.URL, path); err == nil {
		t.Fatal("Fetch() returned nil error for 404")
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want no retries on 404", calls)
	}
}

func TestFetchRejectsUnknownScheme(t *testing.T) {
	t.Parallel()
	_, err := Fetch("gopher://example.com/table", filepath.Join(t.TempDir(), "t.csv"))
	if err == nil {
		t.Fatal("Fetch() returned nil error for unsupported scheme")
	}
	if !strings.Contains(err.Error(), "gopher") {
		t.Errorf("error %q does not name the scheme", err)
	}
}
