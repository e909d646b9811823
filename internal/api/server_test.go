package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aka-Rakesh/Xbot/internal/bot"
	"github.com/aka-Rakesh/Xbot/internal/config"
	"github.com/aka-Rakesh/Xbot/internal/poster"
	"github.com/aka-Rakesh/Xbot/internal/store"
	"github.com/aka-Rakesh/Xbot/pkg/models"
)

type blockingDiscovery struct {
	release chan struct{}
}

func (d *blockingDiscovery) Discover(ctx context.Context) ([]models.Opportunity, error) {
	if d.release != nil {
		<-d.release
	}
	return nil, nil
}

type noopGenerator struct{}

func (noopGenerator) GenerateThread(ctx context.Context, opp models.Opportunity) []string {
	return nil
}

type noopPoster struct{}

func (noopPoster) PostThread(ctx context.Context, thread []string) (*poster.PostResult, error) {
	return &poster.PostResult{}, nil
}

func (noopPoster) VerifyCredentials(ctx context.Context) error { return nil }

func newTestServer(d bot.Discovery, st store.Store) *Server {
	cfg := &config.Config{}
	cfg.Bot.MaxPostsPerDay = 10
	b := bot.New(cfg, st, d, noopGenerator{}, noopPoster{})
	return NewServer(b, st)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&blockingDiscovery{}, store.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActivity(t *testing.T) {
	st := store.NewInMemoryStore()
	require.NoError(t, st.RecordPost(context.Background(), models.PostRecord{
		OpportunityID: "b-1",
		RootMessageID: "m-1",
		MessageIDs:    []string{"m-1", "m-2"},
	}))

	s := newTestServer(&blockingDiscovery{}, st)

	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp activityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Threads24h)
	assert.Equal(t, 1, resp.PostedToday)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "b-1", resp.Posts[0].OpportunityID)
}

func TestTrigger_ConflictWhileRunning(t *testing.T) {
	release := make(chan struct{})
	s := newTestServer(&blockingDiscovery{release: release}, store.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/trigger", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The first cycle is blocked in discovery; a second trigger must
	// be rejected, not queued.
	deadline := time.After(time.Second)
	for {
		rec2 := httptest.NewRecorder()
		s.echo.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/trigger", nil))
		if rec2.Code == http.StatusConflict {
			break
		}
		select {
		case <-deadline:
			t.Fatal("second trigger never reported a running cycle")
		case <-time.After(10 * time.Millisecond):
		}
	}

	close(release)
}
