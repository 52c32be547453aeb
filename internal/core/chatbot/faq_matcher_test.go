package chatbot

import (
	"testing"

	"github.com/markdave123-py/zapdesk/internal/models"
)

func TestMatchFAQs_NoOverlap(t *testing.T) {
	entries := []models.FAQ{
		{ID: "1", Question: "Qual o horário de funcionamento", Keywords: []string{"horário"}},
		{ID: "2", Question: "Como rastrear pedido", Keywords: []string{"rastreio"}},
	}
	if got := MatchFAQs("xyz abc", entries); len(got) != 0 {
		t.Errorf("MatchFAQs = %v; want empty", got)
	}
}

func TestMatchFAQs_RefundScore(t *testing.T) {
	entries := []models.FAQ{
		{ID: "refund", Question: "Como solicito reembolso", Keywords: []string{"reembolso"}},
	}
	got := MatchFAQs("quero saber como solicito meu reembolso", entries)
	if len(got) != 1 {
		t.Fatalf("len(MatchFAQs) = %d; want 1", len(got))
	}
	// keyword (10) + "como", "solicito", "reembolso" (3 x 5)
	if got[0].Score != 25 {
		t.Errorf("score = %d; want 25", got[0].Score)
	}
}

func TestMatchFAQs_CaseInsensitiveKeywords(t *testing.T) {
	entries := []models.FAQ{{ID: "1", Question: "x", Keywords: []string{"PIX"}}}
	got := MatchFAQs("Posso pagar com pix?", entries)
	if len(got) != 1 || got[0].Score != KeywordScore {
		t.Errorf("MatchFAQs = %+v; want one match scored %d", got, KeywordScore)
	}
}

func TestMatchFAQs_ShortWordsIgnored(t *testing.T) {
	entries := []models.FAQ{{ID: "1", Question: "Oi, tem app"}}
	if got := MatchFAQs("oi, tem app sim", entries); len(got) != 0 {
		t.Errorf("MatchFAQs = %+v; want empty (all question words <= 3 runes)", got)
	}
}

func TestMatchFAQs_EmptyKeywordIgnored(t *testing.T) {
	entries := []models.FAQ{{ID: "1", Question: "x", Keywords: []string{"", "  "}}}
	if got := MatchFAQs("qualquer coisa", entries); len(got) != 0 {
		t.Errorf("MatchFAQs = %+v; want empty", got)
	}
}

func TestMatchFAQs_OrderAndStableTies(t *testing.T) {
	entries := []models.FAQ{
		{ID: "a", Question: "x", Keywords: []string{"boleto"}},
		{ID: "b", Question: "x", Keywords: []string{"boleto", "segunda via"}},
		{ID: "c", Question: "x", Keywords: []string{"via"}},
	}
	got := MatchFAQs("segunda via do boleto", entries)
	wantIDs := []string{"b", "a", "c"}
	if len(got) != len(wantIDs) {
		t.Fatalf("len = %d; want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].FAQ.ID != id {
			t.Errorf("got[%d] = %s; want %s", i, got[i].FAQ.ID, id)
		}
	}
}

func TestBestMatch_Threshold(t *testing.T) {
	faq := models.FAQ{ID: "1"}
	tests := []struct {
		score int
		want  bool
	}{
		{14, false},
		{15, false},
		{16, true},
		{25, true},
	}
	for _, tt := range tests {
		_, ok := BestMatch([]ScoredFAQ{{FAQ: faq, Score: tt.score}})
		if ok != tt.want {
			t.Errorf("BestMatch(score=%d) ok = %v; want %v", tt.score, ok, tt.want)
		}
	}
	if _, ok := BestMatch(nil); ok {
		t.Error("BestMatch(nil) ok = true; want false")
	}
}

func TestScoreFAQ_KeywordsMatchAsStored(t *testing.T) {
	faq := models.FAQ{Question: "x", Keywords: []string{" prazo ", "", "Frete"}}
	// " prazo " needs the surrounding spaces; "Frete" matches case-insensitively.
	if got := ScoreFAQ("prazo do frete", faq); got != KeywordScore {
		t.Errorf("ScoreFAQ = %d; want %d", got, KeywordScore)
	}
	if got := ScoreFAQ("qual o prazo do frete", faq); got != 2*KeywordScore {
		t.Errorf("ScoreFAQ = %d; want %d", got, 2*KeywordScore)
	}
}
