package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/fundcrm/internal/models"
)

func sampleVC() models.VC {
	return models.VC{
		ID:             "acme",
		Name:           "Acme Capital",
		Status:         models.StatusFinalized,
		PurchaseAmount: models.Amount(500_000),
		MeetingNotes: []models.MeetingNote{
			{ID: "n2", Timestamp: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), Content: "Signed SAFE\nwire next week"},
			{ID: "n1", Timestamp: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Content: "Intro call <b>good</b>"},
		},
	}
}

func TestDigestBriefer(t *testing.T) {
	round := &models.Round{Name: "Seed", ValuationCap: 5_000_000}
	b, err := DigestBriefer{}.Brief(context.Background(), sampleVC(), round)
	require.NoError(t, err)
	assert.Equal(t, "digest", b.Source)
	assert.Equal(t, 2, b.Notes)
	assert.Equal(t,
		"Acme Capital is finalized in Seed ($500,000 committed).\n- 2026-02-10: Signed SAFE\n- 2026-01-05: Intro call <b>good</b>",
		b.Summary)

	_, err = DigestBriefer{}.Brief(context.Background(), models.VC{Name: "Empty"}, nil)
	assert.ErrorIs(t, err, ErrNoNotes)
}

func TestDigestBriefer_LimitsRecentNotes(t *testing.T) {
	b, err := DigestBriefer{Recent: 1}.Brief(context.Background(), sampleVC(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme Capital is finalized ($500,000 committed).\n- 2026-02-10: Signed SAFE", b.Summary)
}

func TestClaudeBriefer(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		var body struct {
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		prompt = body.Messages[0].Content[0].Text

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": "  - Wire expected next week  "}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	b := NewClaudeBriefer("test-key", "claude-haiku-4-5", slog.New(slog.NewTextHandler(io.Discard, nil)),
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	brief, err := b.Brief(context.Background(), sampleVC(), nil)
	require.NoError(t, err)
	assert.Equal(t, "- Wire expected next week", brief.Summary)
	assert.Equal(t, "claude", brief.Source)

	assert.Contains(t, prompt, "<investor>Acme Capital</investor>")
	assert.Contains(t, prompt, "<commitment>$500,000</commitment>")
	assert.Contains(t, prompt, "Intro call &lt;b&gt;good&lt;/b&gt;")
	assert.Less(t, strings.Index(prompt, "2026-01-05"), strings.Index(prompt, "2026-02-10"))
}

func TestClaudeBriefer_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"api_error","message":"down"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewClaudeBriefer("test-key", "claude-haiku-4-5", slog.New(slog.NewTextHandler(io.Discard, nil)),
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := b.Brief(context.Background(), sampleVC(), nil)
	assert.Error(t, err)

	_, err = b.Brief(context.Background(), models.VC{}, nil)
	assert.ErrorIs(t, err, ErrNoNotes)
}

func TestRenderNotes_KeepsNewestWithinBudget(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var notes []models.MeetingNote
	for i := 0; i < 10; i++ {
		notes = append(notes, models.MeetingNote{
			ID:        fmt.Sprintf("n%02d", i),
			Timestamp: base.AddDate(0, 0, i),
			Content:   fmt.Sprintf("marker%02d %s", i, strings.Repeat("word ", 100)),
		})
	}

	out := renderNotes(notes, 300)
	assert.Contains(t, out, "marker09")
	assert.NotContains(t, out, "marker00")
	assert.True(t, strings.HasPrefix(out, "<omitted count="), out[:40])
	kept := strings.Count(out, "<note ")
	assert.Greater(t, kept, 0)
	assert.Less(t, kept, 10)

	out = renderNotes(notes, defaultNoteBudget)
	assert.Equal(t, 10, strings.Count(out, "<note "))
	assert.NotContains(t, out, "<omitted")

	// The newest note is always sent, even over budget.
	out = renderNotes(notes, 1)
	assert.Contains(t, out, "marker09")
	assert.Contains(t, out, `<omitted count="9">`)
}
