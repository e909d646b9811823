package poster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	text    string
	replyTo string
}

// fakeTransport returns scripted results, one per Post call.
type fakeTransport struct {
	calls   []call
	errs    []error
	nextID  int
	verifyE error
}

func (f *fakeTransport) Post(ctx context.Context, text, replyTo string) (string, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, call{text: text, replyTo: replyTo})

	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}

	f.nextID++
	return fmt.Sprintf("m-%d", f.nextID), nil
}

func (f *fakeTransport) VerifyCredentials(ctx context.Context) error {
	return f.verifyE
}

func newTestPoster(tr Transport) *ThreadPoster {
	return New(tr, time.Millisecond, 0, 10*time.Millisecond)
}

func TestPostThread_Empty(t *testing.T) {
	p := newTestPoster(&fakeTransport{})
	_, err := p.PostThread(context.Background(), nil)
	assert.Error(t, err)
}

func TestPostThread_ChainsReplies(t *testing.T) {
	tr := &fakeTransport{}
	p := newTestPoster(tr)

	result, err := p.PostThread(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)

	assert.Equal(t, "m-1", result.RootMessageID)
	assert.Equal(t, []string{"m-1", "m-2", "m-3"}, result.MessageIDs)
	assert.Equal(t, 3, result.ThreadLength)

	require.Len(t, tr.calls, 3)
	assert.Equal(t, "", tr.calls[0].replyTo)
	assert.Equal(t, "m-1", tr.calls[1].replyTo)
	assert.Equal(t, "m-2", tr.calls[2].replyTo)
}

func TestPostThread_RootFailureAborts(t *testing.T) {
	tr := &fakeTransport{errs: []error{errors.New("boom")}}
	p := newTestPoster(tr)

	_, err := p.PostThread(context.Background(), []string{"one", "two"})
	assert.Error(t, err)
	assert.Len(t, tr.calls, 1)
}

func TestPostThread_ReplyFailureKeepsCursor(t *testing.T) {
	// Second message fails; the third must chain to the root.
	tr := &fakeTransport{errs: []error{nil, errors.New("boom"), nil}}
	p := newTestPoster(tr)

	result, err := p.PostThread(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)

	assert.Equal(t, []string{"m-1", "m-2"}, result.MessageIDs)
	assert.Equal(t, 2, result.ThreadLength)

	require.Len(t, tr.calls, 3)
	assert.Equal(t, "m-1", tr.calls[2].replyTo)
}

func TestPostThread_FailedRootRefundsSpacing(t *testing.T) {
	// Root fails on the first attempt; the retry must not wait out a
	// full spacing interval on top of the caller's backoff.
	tr := &fakeTransport{errs: []error{errors.New("boom")}}
	p := New(tr, 500*time.Millisecond, 0, 0)

	_, err := p.PostThread(context.Background(), []string{"one"})
	require.Error(t, err)

	start := time.Now()
	result, err := p.PostThread(context.Background(), []string{"one"})
	require.NoError(t, err)
	assert.Equal(t, "m-1", result.RootMessageID)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestPostThread_SuccessChargesSpacing(t *testing.T) {
	tr := &fakeTransport{}
	p := New(tr, 50*time.Millisecond, 0, 0)

	start := time.Now()
	_, err := p.PostThread(context.Background(), []string{"one"})
	require.NoError(t, err)
	_, err = p.PostThread(context.Background(), []string{"two"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPostThread_RateLimitCoolsDownBeforeReturning(t *testing.T) {
	tr := &fakeTransport{errs: []error{fmt.Errorf("%w (status 429)", ErrRateLimited)}}
	p := New(tr, time.Millisecond, 0, 50*time.Millisecond)

	start := time.Now()
	_, err := p.PostThread(context.Background(), []string{"one"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestPostThread_CooldownInterruptedByContext(t *testing.T) {
	tr := &fakeTransport{errs: []error{fmt.Errorf("%w", ErrRateLimited)}}
	p := New(tr, time.Millisecond, 0, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.PostThread(ctx, []string{"one"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestXAPIClient_Post(t *testing.T) {
	var rootIdempotency, replyIdempotency string
	var replyPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		if _, isReply := payload["reply"]; isReply {
			replyIdempotency = r.Header.Get("X-Idempotency-Key")
			replyPayload = payload
			fmt.Fprint(w, `{"data":{"id":"200","text":"reply"}}`)
			return
		}

		rootIdempotency = r.Header.Get("X-Idempotency-Key")
		fmt.Fprint(w, `{"data":{"id":"100","text":"root"}}`)
	}))
	defer srv.Close()

	c := NewXAPIClient(srv.URL, Credentials{AccessToken: "user-token"})
	ctx := context.Background()

	rootID, err := c.Post(ctx, "root", "")
	require.NoError(t, err)
	assert.Equal(t, "100", rootID)
	assert.NotEmpty(t, rootIdempotency)

	replyID, err := c.Post(ctx, "reply", rootID)
	require.NoError(t, err)
	assert.Equal(t, "200", replyID)
	assert.Empty(t, replyIdempotency)

	reply := replyPayload["reply"].(map[string]interface{})
	assert.Equal(t, "100", reply["in_reply_to_tweet_id"])
}

func TestXAPIClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c := NewXAPIClient(srv.URL, Credentials{AccessToken: "user-token"})
		_, err := c.Post(context.Background(), "text", "")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)

		srv.Close()
	}
}

func TestNewXAPIClient_BaseURLNormalization(t *testing.T) {
	assert.Equal(t, "https://api.x.com", NewXAPIClient("https://api.x.com/", Credentials{}).baseURL)
	assert.Equal(t, "https://api.x.com", NewXAPIClient("https://api.x.com", Credentials{}).baseURL)
	assert.Equal(t, "", NewXAPIClient("", Credentials{}).baseURL)
}

func TestXAPIClient_VerifyCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/users/me", r.URL.Path)
		fmt.Fprint(w, `{"data":{"id":"1","username":"bot"}}`)
	}))
	defer srv.Close()

	c := NewXAPIClient(srv.URL, Credentials{AccessToken: "user-token"})
	assert.NoError(t, c.VerifyCredentials(context.Background()))
}
