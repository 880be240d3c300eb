package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/trellislearn/trellis-server/internal/identity"
)

// newProbeRouter mirrors the server's middleware order: Heartbeat
// answers /health before the identity middleware runs.
func newProbeRouter(repo *fakeRepo) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(identity.Middleware(repo, "html", true))
	NewHealthHandler(repo).RegisterHealth(r)
	return r
}

func TestHealthProbesDoNotMintUsers(t *testing.T) {
	repo := newFakeRepo()
	router := newProbeRouter(repo)

	// A load balancer probes without cookies. None of these requests
	// may reach the identity middleware and seed a snapshot.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("probe %d: expected status 200, got %d", i+1, rr.Code)
		}
	}

	count, err := repo.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Errorf("cookie-less health probes created %d user snapshots, want 0", count)
	}
}

func TestHealthProbeSetsNoIdentityCookie(t *testing.T) {
	repo := newFakeRepo()
	router := newProbeRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.Name == identity.AnonCookieName {
			t.Errorf("health probe was issued an identity cookie %q", c.Value)
		}
	}
}
