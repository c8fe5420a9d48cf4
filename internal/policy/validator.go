// Package policy implements the Policy Validator (spec.md §4.4): hard
// schema/length/evidence checks that fail a response with
// VALIDATION_FAILED, and soft PII-masking/domain-trust checks that mask
// and warn without failing. Runs on every AnalysisResponse before it
// leaves the Orchestrator.
package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"newsbrief/internal/model"
)

const (
	maxHeaderLen  = 100
	maxTLDRLen    = 220
	maxInsightLen = 180
	maxEvidenceTitleLen   = 200
	maxEvidenceSnippetLen = 240
	maxEvidenceCount      = 5
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidationError wraps a hard-check failure; the Orchestrator maps it to
// an ErrorResponse with code VALIDATION_FAILED.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation_failed: " + e.Reason }

// Validator carries the domain trust lists loaded from config at
// Orchestrator construction time (SPEC_FULL.md's Policy Validator
// expansion).
type Validator struct {
	whitelist map[string]struct{}
	blacklist map[string]struct{}
}

// New constructs a Validator from config-loaded domain lists.
func New(domainWhitelist, domainBlacklist []string) *Validator {
	v := &Validator{
		whitelist: make(map[string]struct{}, len(domainWhitelist)),
		blacklist: make(map[string]struct{}, len(domainBlacklist)),
	}
	for _, d := range domainWhitelist {
		v.whitelist[domainOf(d)] = struct{}{}
	}
	for _, d := range domainBlacklist {
		v.blacklist[domainOf(d)] = struct{}{}
	}
	return v
}

// CheckRawShape decodes raw into an AnalysisResponse with unknown
// top-level fields rejected (spec.md §4.4's "no unknown top-level
// fields" hard check), grounded on the standard library's
// json.Decoder.DisallowUnknownFields.
func CheckRawShape(raw []byte) (model.AnalysisResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var resp model.AnalysisResponse
	if err := dec.Decode(&resp); err != nil {
		return model.AnalysisResponse{}, &ValidationError{Reason: fmt.Sprintf("unknown or malformed field: %v", err)}
	}
	return resp, nil
}

// Validate runs the hard checks (returning a *ValidationError on the
// first failure) then the soft checks (PII masking, domain trust) on
// resp in place, appending warning tags. declaredLanguage is the user's
// requested language ("en"/"ru"); header/tldr must match it.
func (v *Validator) Validate(resp *model.AnalysisResponse, declaredLanguage string) error {
	if err := v.hardChecks(resp, declaredLanguage); err != nil {
		return err
	}
	v.softChecks(resp)
	if err := v.hardChecksPostMask(resp); err != nil {
		return err
	}
	return nil
}

func (v *Validator) hardChecks(resp *model.AnalysisResponse, declaredLanguage string) error {
	if len(resp.Header) > maxHeaderLen {
		return &ValidationError{Reason: "header exceeds length limit"}
	}
	if len(resp.TLDR) > maxTLDRLen {
		return &ValidationError{Reason: "tldr exceeds length limit"}
	}
	if declaredLanguage != "" && declaredLanguage != "auto" {
		if lang := detectLanguage(resp.Header + " " + resp.TLDR); lang != "" && lang != declaredLanguage {
			return &ValidationError{Reason: "header/tldr language does not match declared language"}
		}
	}
	if len(resp.Evidence) > maxEvidenceCount {
		return &ValidationError{Reason: "evidence exceeds 5 entries"}
	}
	if resp.Meta.Confidence < 0 || resp.Meta.Confidence > 1 {
		return &ValidationError{Reason: "confidence out of [0,1]"}
	}
	for i, ins := range resp.Insights {
		if len(ins.Text) > maxInsightLen {
			return &ValidationError{Reason: fmt.Sprintf("insight[%d].text exceeds length limit", i)}
		}
		if len(ins.EvidenceRefs) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("insight[%d] has no evidence_refs", i)}
		}
		for j, ref := range ins.EvidenceRefs {
			if err := validateEvidenceRef(ref); err != nil {
				return &ValidationError{Reason: fmt.Sprintf("insight[%d].evidence_refs[%d]: %v", i, j, err)}
			}
		}
	}
	for i, ev := range resp.Evidence {
		if len(ev.Title) > maxEvidenceTitleLen {
			return &ValidationError{Reason: fmt.Sprintf("evidence[%d].title exceeds length limit", i)}
		}
		if len(ev.Snippet) > maxEvidenceSnippetLen {
			return &ValidationError{Reason: fmt.Sprintf("evidence[%d].snippet exceeds length limit", i)}
		}
		if !dateRe.MatchString(ev.Date) {
			return &ValidationError{Reason: fmt.Sprintf("evidence[%d].date malformed", i)}
		}
		if ev.ArticleID == "" && ev.URL == "" {
			return &ValidationError{Reason: fmt.Sprintf("evidence[%d] missing article_id and url", i)}
		}
	}
	return nil
}

func validateEvidenceRef(ref model.EvidenceRef) error {
	if !dateRe.MatchString(ref.Date) {
		return fmt.Errorf("date malformed")
	}
	if ref.ArticleID == "" && ref.URL == "" {
		return fmt.Errorf("missing article_id and url")
	}
	return nil
}

// hardChecksPostMask re-checks the invariants that domain-trust dropping
// can violate: every Insight must still carry ≥1 EvidenceRef.
func (v *Validator) hardChecksPostMask(resp *model.AnalysisResponse) error {
	for i, ins := range resp.Insights {
		if len(ins.EvidenceRefs) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("insight[%d] lost all evidence_refs to blacklist drop", i)}
		}
	}
	return nil
}

// softChecks masks PII in every text field and applies domain-trust
// filtering/confidence penalty (spec.md §4.4's soft checks), mutating
// resp and appending warning tags.
func (v *Validator) softChecks(resp *model.AnalysisResponse) {
	resp.Header, _ = maskAndWarn(resp, resp.Header)
	resp.TLDR, _ = maskAndWarn(resp, resp.TLDR)
	for i := range resp.Insights {
		resp.Insights[i].Text, _ = maskAndWarn(resp, resp.Insights[i].Text)
	}
	for i := range resp.Evidence {
		resp.Evidence[i].Title, _ = maskAndWarn(resp, resp.Evidence[i].Title)
		resp.Evidence[i].Snippet, _ = maskAndWarn(resp, resp.Evidence[i].Snippet)
	}

	minTrust := trustLevel(1.0)
	anyRef := false
	for i := range resp.Insights {
		kept := resp.Insights[i].EvidenceRefs[:0]
		for _, ref := range resp.Insights[i].EvidenceRefs {
			t := v.trustOf(ref.URL)
			if t == trustBlacklisted {
				resp.Warnings = append(resp.Warnings, "evidence_dropped_blacklisted")
				continue
			}
			if t < minTrust {
				minTrust = t
			}
			anyRef = true
			kept = append(kept, ref)
		}
		resp.Insights[i].EvidenceRefs = kept
	}

	keptEvidence := resp.Evidence[:0]
	for _, ev := range resp.Evidence {
		t := v.trustOf(ev.URL)
		if t == trustBlacklisted {
			resp.Warnings = append(resp.Warnings, "evidence_dropped_blacklisted")
			continue
		}
		if t < minTrust {
			minTrust = t
		}
		anyRef = true
		keptEvidence = append(keptEvidence, ev)
	}
	resp.Evidence = keptEvidence

	if anyRef {
		resp.Meta.Confidence *= float64(minTrust)
	}
}

func maskAndWarn(resp *model.AnalysisResponse, text string) (string, []string) {
	masked, kinds := maskPII(text)
	for _, k := range kinds {
		resp.Warnings = append(resp.Warnings, "pii_masked:"+k)
	}
	return masked, kinds
}

// detectLanguage is a best-effort heuristic: Cyrillic characters imply
// "ru", otherwise "en". The corpus distinguishes only these two languages.
func detectLanguage(s string) string {
	for _, r := range s {
		if r >= 0x0400 && r <= 0x04FF {
			return "ru"
		}
	}
	if s == "" {
		return ""
	}
	return "en"
}
