package classifier

import (
	"testing"

	"trendsiam/internal/domain"
)

func TestClassifyBelowThresholdIsOther(t *testing.T) {
	c := NewKeywordWithTable([]Category{
		{Name: "Sports", SummaryKeywords: []string{"score"}},
	})
	// Единственное совпадение в резюме весит 1 — ниже порога 3.
	category, _, score := c.Classify(domain.RawItem{Title: "просто видео"}, "final score")
	if category != CategoryOther {
		t.Fatalf("ожидали Other, получили %s", category)
	}
	if score >= minMatchScore {
		t.Fatalf("балл должен быть ниже порога, получили %d", score)
	}
}

func TestClassifyEmptyFieldsIsUnknown(t *testing.T) {
	c := NewKeyword()
	category, parent, score := c.Classify(domain.RawItem{Description: "#football"}, "")
	if category != CategoryUnknown || parent != "" || score != 0 {
		t.Fatalf("пустые заголовок, канал и резюме должны давать Unknown/0, получили %s/%d", category, score)
	}
}

func TestClassifyTieBreaksByDeclarationOrder(t *testing.T) {
	c := NewKeywordWithTable([]Category{
		{Name: "First", TitleKeywords: []string{"overlap"}},
		{Name: "Second", TitleKeywords: []string{"overlap"}},
	})
	category, _, score := c.Classify(domain.RawItem{Title: "overlap content"}, "")
	if category != "First" {
		t.Fatalf("при ничьей должна побеждать раньше объявленная категория, получили %s", category)
	}
	if score != titleWeight {
		t.Fatalf("ожидали балл %d, получили %d", titleWeight, score)
	}
}

func TestClassifyWeights(t *testing.T) {
	c := NewKeywordWithTable([]Category{
		{
			Name:            "Sports",
			Parent:          "",
			TitleKeywords:   []string{"match"},
			HashtagKeywords: []string{"football"},
			ChannelKeywords: []string{"league"},
			SummaryKeywords: []string{"score"},
		},
	})
	item := domain.RawItem{
		Title:       "Big match tonight #football",
		Description: "",
		Channel:     "Thai League Official",
	}
	category, _, score := c.Classify(item, "final score 2-1")
	if category != "Sports" {
		t.Fatalf("ожидали Sports, получили %s", category)
	}
	want := titleWeight + hashtagWeight + channelWeight + summaryWeight
	if score != want {
		t.Fatalf("ожидали сумму %d, получили %d", want, score)
	}
}

func TestClassifySummaryIgnoredWhenEmpty(t *testing.T) {
	c := NewKeywordWithTable([]Category{
		{Name: "Sports", TitleKeywords: []string{"match"}, SummaryKeywords: []string{"score"}},
	})
	item := domain.RawItem{Title: "match highlights"}
	_, _, withSummary := c.Classify(item, "score")
	_, _, withoutSummary := c.Classify(item, "")
	if withSummary-withoutSummary != summaryWeight {
		t.Fatalf("резюме должно добавлять ровно %d, получили %d и %d", summaryWeight, withSummary, withoutSummary)
	}
}

func TestClassifyParentIsMetadata(t *testing.T) {
	c := NewKeyword()
	item := domain.RawItem{Title: "ตำรวจ จับกุม คดี ใหญ่", Channel: "ข่าวอาชญากรรม"}
	category, parent, _ := c.Classify(item, "")
	if category != "Crime" {
		t.Fatalf("ожидали Crime, получили %s", category)
	}
	if parent != "News" {
		t.Fatalf("ожидали родителя News, получили %q", parent)
	}
}

func TestClassifyThaiHashtags(t *testing.T) {
	c := NewKeyword()
	item := domain.RawItem{
		Title:       "คืนนี้ห้ามพลาด #ละคร",
		Description: "ตอนจบ #บันเทิง",
	}
	category, _, _ := c.Classify(item, "")
	if category != "Entertainment" {
		t.Fatalf("ожидали Entertainment по тайским хэштегам, получили %s", category)
	}
}
