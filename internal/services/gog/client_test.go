package gog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gogvault/internal/config"
	"gogvault/internal/logging"
	"gogvault/internal/services"
	"gogvault/internal/services/gog"
)

func newClient(t *testing.T, handler http.Handler) (*gog.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.GOG{
		BaseURL:        server.URL,
		Token:          "test-token",
		TimeoutSeconds: 5,
		PageSize:       50,
	}
	return gog.NewClient(cfg, logging.NewNop()), server
}

func TestListOwnedPagination(t *testing.T) {
	var sawAuth string
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getFilteredProducts" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		sawAuth = r.Header.Get("Authorization")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Write([]byte(`{
				"page": 1, "totalPages": 2,
				"products": [
					{"id": 1, "slug": "game_a", "title": "Game A", "updates": 1},
					{"id": 2, "slug": "game_b", "title": "Game B", "isHidden": true,
					 "downloadsUpdated": "2026-02-01T00:00:00Z"}
				]
			}`))
		case "2":
			w.Write([]byte(`{"page": 2, "totalPages": 2, "products": [{"id": 3, "slug": "game_c", "title": "Game C"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	page, err := client.ListOwned(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if sawAuth != "Bearer test-token" {
		t.Fatalf("token not sent, got %q", sawAuth)
	}
	if len(page.Products) != 2 || page.Next != "2" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if !page.Products[0].HasUpdates {
		t.Fatal("updates flag must map to HasUpdates")
	}
	if !page.Products[1].Hidden || page.Products[1].DownloadsUpdated.IsZero() {
		t.Fatalf("listing fields not mapped: %+v", page.Products[1])
	}

	last, err := client.ListOwned(context.Background(), page.Next)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if last.Next != "" {
		t.Fatalf("final page must end the listing, got next %q", last.Next)
	}
}

func TestListOwnedBadCursor(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if _, err := client.ListOwned(context.Background(), "banana"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestItemDetailFlattensDLCs(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gameDetails/42.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"id": 42, "slug": "game", "title": "Game",
			"cdKeys": {"base": "AAAA-BBBB"},
			"releaseDate": "2020-05-01",
			"downloads": [{"name": "setup.sh", "osType": "linux", "lang": "en", "md5": "abc", "size": 100}],
			"extras": [{"name": "manual.pdf", "size": 5}],
			"dlcs": [{
				"downloads": [{"name": "dlc_setup.sh", "osType": "linux", "lang": "en", "md5": "def", "size": 50}],
				"extras": [{"name": "dlc_art.zip", "size": 7}]
			}]
		}`))
	}))

	detail, err := client.ItemDetail(context.Background(), 42)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.ID != 42 || detail.Slug != "game" {
		t.Fatalf("identity not mapped: %+v", detail)
	}
	if detail.Released.IsZero() {
		t.Fatal("date-only release timestamps must parse")
	}
	if detail.Serials["base"] != "AAAA-BBBB" {
		t.Fatalf("serials not mapped: %v", detail.Serials)
	}
	if len(detail.Downloads) != 2 || len(detail.Extras) != 2 {
		t.Fatalf("dlc files must fold into the parent: %d downloads, %d extras", len(detail.Downloads), len(detail.Extras))
	}
	if detail.Downloads[1].Name != "dlc_setup.sh" {
		t.Fatalf("dlc download missing: %+v", detail.Downloads)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		marker error
	}{
		{"unauthorized", http.StatusUnauthorized, services.ErrAuth},
		{"forbidden", http.StatusForbidden, services.ErrAuth},
		{"not found", http.StatusNotFound, services.ErrNotFound},
		{"server error", http.StatusInternalServerError, services.ErrTransient},
		{"throttled", http.StatusTooManyRequests, services.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			_, err := client.ItemDetail(context.Background(), 1)
			if !errors.Is(err, tc.marker) {
				t.Fatalf("status %d should map to %v, got %v", tc.status, tc.marker, err)
			}
		})
	}
}

func TestAuthFailureIsFatal(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	_, err := client.ListOwned(context.Background(), "")
	if !services.IsFatal(err) {
		t.Fatalf("auth failures must abort the run, got %v", err)
	}
}

func TestDecodeFailureIsTransient(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	_, err := client.ItemDetail(context.Background(), 1)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
