package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aka-Rakesh/Xbot/pkg/models"
)

type stubStrategy struct {
	name   string
	thread []string
	err    error
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) GenerateThread(ctx context.Context, opp models.Opportunity) ([]string, error) {
	s.calls++
	return s.thread, s.err
}

func testOpportunity() models.Opportunity {
	return models.Opportunity{
		ID:          "b-1",
		Title:       "Build a dashboard",
		URL:         "https://bounties.example.com/bounty/b-1",
		Description: "Build a metrics dashboard for the community",
	}
}

func TestGenerator_FallsThroughOnError(t *testing.T) {
	failing := &stubStrategy{name: "llm", err: errors.New("api down")}
	working := &stubStrategy{name: "template", thread: []string{"hello", "world"}}

	g := New(280, 6, failing, working)
	thread := g.GenerateThread(context.Background(), testOpportunity())

	assert.Equal(t, []string{"hello", "world"}, thread)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
}

func TestGenerator_EmptyWhenAllFail(t *testing.T) {
	a := &stubStrategy{name: "a", err: errors.New("down")}
	b := &stubStrategy{name: "b", err: errors.New("also down")}

	g := New(280, 6, a, b)
	assert.Empty(t, g.GenerateThread(context.Background(), testOpportunity()))
}

func TestGenerator_DropsInvalidMessages(t *testing.T) {
	s := &stubStrategy{name: "s", thread: []string{
		"valid message",
		"",
		"click here for FREE MONEY",
		strings.Repeat("x", 300),
		"another valid one",
	}}

	g := New(280, 6, s)
	thread := g.GenerateThread(context.Background(), testOpportunity())
	assert.Equal(t, []string{"valid message", "another valid one"}, thread)
}

func TestGenerator_CapsThreadLengthKeepingEarliest(t *testing.T) {
	s := &stubStrategy{name: "s", thread: []string{"1", "2", "3", "4", "5", "6", "7", "8"}}

	g := New(280, 6, s)
	thread := g.GenerateThread(context.Background(), testOpportunity())
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, thread)
}

func TestGenerator_AllInvalidFallsThrough(t *testing.T) {
	spammy := &stubStrategy{name: "spammy", thread: []string{"guaranteed returns, act now"}}
	clean := &stubStrategy{name: "clean", thread: []string{"a real update"}}

	g := New(280, 6, spammy, clean)
	thread := g.GenerateThread(context.Background(), testOpportunity())
	assert.Equal(t, []string{"a real update"}, thread)
}

func TestTemplateStrategy_ShortShape(t *testing.T) {
	s := NewTemplateStrategy(280)
	opp := testOpportunity()

	thread, err := s.GenerateThread(context.Background(), opp)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Contains(t, thread[0], opp.Title)
	assert.Contains(t, thread[1], opp.Description)
	assert.Contains(t, thread[2], opp.URL)
}

func TestTemplateStrategy_LongShape(t *testing.T) {
	s := NewTemplateStrategy(280)
	opp := testOpportunity()
	opp.Description = strings.Repeat("a detailed requirement ", 10)

	thread, err := s.GenerateThread(context.Background(), opp)
	require.NoError(t, err)
	assert.Len(t, thread, 4)
}

func TestTemplateStrategy_EmptyDescription(t *testing.T) {
	s := NewTemplateStrategy(280)
	opp := testOpportunity()
	opp.Description = ""

	thread, err := s.GenerateThread(context.Background(), opp)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Contains(t, thread[1], "Check out this new bounty opportunity!")
}

func TestParseThread(t *testing.T) {
	content := `Thread:
Tweet 1: First message #Bounty
Tweet 2: Second message

3. Third message
- ignored style is kept as text`

	thread := parseThread(content)
	require.Len(t, thread, 4)
	assert.Equal(t, "First message #Bounty", thread[0])
	assert.Equal(t, "Second message", thread[1])
	assert.Equal(t, "Third message", thread[2])
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 280))

	long := strings.Repeat("word ", 100)
	got := TruncateText(long, 50)
	assert.LessOrEqual(t, len([]rune(got)), 50)
	assert.True(t, strings.HasSuffix(got, "..."))

	// Truncation is idempotent
	assert.Equal(t, got, TruncateText(got, 50))
}

func TestTruncateText_WordBoundary(t *testing.T) {
	// Space at position 45 of a 50-char budget: past the 80% mark, so
	// the cut lands on the boundary.
	text := strings.Repeat("x", 45) + " " + strings.Repeat("y", 20)
	got := TruncateText(text, 50)
	assert.Equal(t, strings.Repeat("x", 45)+"...", got)

	// Space early in the text: boundary is too far back, hard cut wins.
	text = "ab " + strings.Repeat("z", 100)
	got = TruncateText(text, 50)
	assert.Equal(t, 50, len([]rune(got)))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, `He said "hi" - now`, SanitizeText("He said “hi” — now"))
	assert.Equal(t, "one two three", SanitizeText("one\ntwo\t\tthree"))
	assert.Equal(t, "trimmed", SanitizeText("  trimmed  "))
}

func TestValidMessage(t *testing.T) {
	assert.True(t, ValidMessage("a normal update", 280))
	assert.False(t, ValidMessage("", 280))
	assert.False(t, ValidMessage("   ", 280))
	assert.False(t, ValidMessage(strings.Repeat("x", 281), 280))
	assert.False(t, ValidMessage("Click HERE to win", 280))
	assert.False(t, ValidMessage("free money inside", 280))
}
