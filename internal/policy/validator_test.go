package policy

import (
	"testing"

	"newsbrief/internal/model"
)

func validResponse() model.AnalysisResponse {
	return model.AnalysisResponse{
		Header: "Inflation cools in July",
		TLDR:   "Central bank signals a pause as inflation data comes in below expectations.",
		Insights: []model.Insight{
			{
				Type: model.InsightFact,
				Text: "Core inflation fell to 3.1% year over year.",
				EvidenceRefs: []model.EvidenceRef{
					{ArticleID: "a1", Date: "2026-07-28"},
				},
			},
		},
		Evidence: []model.Evidence{
			{Title: "Inflation report", ArticleID: "a1", Date: "2026-07-28", Snippet: "Inflation cooled..."},
		},
		Meta: model.Meta{Confidence: 0.9, Model: "gpt-4o-mini", CorrelationID: "c1"},
	}
}

func TestValidate_PassesWellFormedResponse(t *testing.T) {
	v := New(nil, nil)
	resp := validResponse()
	if err := v.Validate(&resp, "en"); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate_FailsOnEmptyEvidenceRefs(t *testing.T) {
	v := New(nil, nil)
	resp := validResponse()
	resp.Insights[0].EvidenceRefs = nil
	if err := v.Validate(&resp, "en"); err == nil {
		t.Fatalf("expected validation error for empty evidence_refs")
	}
}

func TestValidate_FailsOnMalformedDate(t *testing.T) {
	v := New(nil, nil)
	resp := validResponse()
	resp.Insights[0].EvidenceRefs[0].Date = "07/28/2026"
	if err := v.Validate(&resp, "en"); err == nil {
		t.Fatalf("expected validation error for malformed date")
	}
}

func TestValidate_FailsOnOutOfRangeConfidence(t *testing.T) {
	v := New(nil, nil)
	resp := validResponse()
	resp.Meta.Confidence = 1.5
	if err := v.Validate(&resp, "en"); err == nil {
		t.Fatalf("expected validation error for out-of-range confidence")
	}
}

func TestValidate_MasksSSNAndWarns(t *testing.T) {
	v := New(nil, nil)
	resp := validResponse()
	resp.TLDR = "Contact the analyst, SSN 123-45-6789, for details."
	if err := v.Validate(&resp, "en"); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if resp.TLDR == "Contact the analyst, SSN 123-45-6789, for details." {
		t.Fatalf("expected SSN to be masked")
	}
	foundWarning := false
	for _, w := range resp.Warnings {
		if w == "pii_masked:SSN" {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatalf("expected pii_masked:SSN warning, got %v", resp.Warnings)
	}
}

func TestValidate_MasksPhoneAndWarns(t *testing.T) {
	v := New(nil, nil)
	resp := validResponse()
	resp.TLDR = "Call me at +1-555-1234 for a follow-up quote."
	if err := v.Validate(&resp, "en"); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if resp.TLDR != "Call me at [REDACTED_PHONE] for a follow-up quote." {
		t.Fatalf("expected phone number masked, got %q", resp.TLDR)
	}
	foundWarning := false
	for _, w := range resp.Warnings {
		if w == "pii_masked:PHONE" {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatalf("expected pii_masked:PHONE warning, got %v", resp.Warnings)
	}
}

func TestValidate_DropsBlacklistedEvidenceAndPenalizesConfidence(t *testing.T) {
	v := New(nil, []string{"fake-news.example"})
	resp := validResponse()
	resp.Insights[0].EvidenceRefs = append(resp.Insights[0].EvidenceRefs, model.EvidenceRef{URL: "https://fake-news.example/story", Date: "2026-07-28"})
	resp.Evidence = append(resp.Evidence, model.Evidence{Title: "Dubious claim", URL: "https://www.fake-news.example/story", Date: "2026-07-28", Snippet: "..."})

	before := resp.Meta.Confidence
	if err := v.Validate(&resp, "en"); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	for _, ref := range resp.Insights[0].EvidenceRefs {
		if ref.URL == "https://fake-news.example/story" {
			t.Fatalf("expected blacklisted evidence ref to be dropped")
		}
	}
	for _, ev := range resp.Evidence {
		if ev.URL != "" && domainOf(ev.URL) == "fake-news.example" {
			t.Fatalf("expected blacklisted evidence to be dropped")
		}
	}
	foundWarning := false
	for _, w := range resp.Warnings {
		if w == "evidence_dropped_blacklisted" {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatalf("expected evidence_dropped_blacklisted warning")
	}
	if resp.Meta.Confidence >= before {
		t.Fatalf("expected confidence penalty from unknown-trust domain, got %v >= %v", resp.Meta.Confidence, before)
	}
}

func TestValidate_FailsWhenBlacklistDropsAllEvidenceForInsight(t *testing.T) {
	v := New(nil, []string{"fake-news.example"})
	resp := validResponse()
	resp.Insights[0].EvidenceRefs = []model.EvidenceRef{{URL: "https://fake-news.example/story", Date: "2026-07-28"}}
	if err := v.Validate(&resp, "en"); err == nil {
		t.Fatalf("expected validation error when an insight loses all evidence to the blacklist")
	}
}

func TestDomainOf_NormalizesSchemeAndWWW(t *testing.T) {
	cases := map[string]string{
		"https://www.Reuters.com/world/story": "reuters.com",
		"http://bbc.com/news":                 "bbc.com",
		"www.Example.COM":                     "example.com",
	}
	for in, want := range cases {
		if got := domainOf(in); got != want {
			t.Fatalf("domainOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckRawShape_RejectsUnknownTopLevelField(t *testing.T) {
	raw := []byte(`{"header":"h","tldr":"t","insights":[],"evidence":[],"result":null,"meta":{"confidence":0.5,"model":"m","version":"1","correlation_id":"c"},"warnings":[],"unexpected_field":true}`)
	if _, err := CheckRawShape(raw); err == nil {
		t.Fatalf("expected error for unknown top-level field")
	}
}

func TestCheckRawShape_AcceptsKnownShape(t *testing.T) {
	raw := []byte(`{"header":"h","tldr":"t","insights":[],"evidence":[],"result":null,"meta":{"confidence":0.5,"model":"m","version":"1","correlation_id":"c"},"warnings":[]}`)
	if _, err := CheckRawShape(raw); err != nil {
		t.Fatalf("unexpected error for well-formed shape: %v", err)
	}
}
