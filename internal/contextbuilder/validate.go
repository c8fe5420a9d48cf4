package contextbuilder

import (
	"fmt"
	"time"

	"newsbrief/internal/config"
)

// validateContext implements spec.md §4.7 step 7: the assembled context's
// own internal consistency checks, distinct from the Policy Validator
// (internal/policy), which validates the final AnalysisResponse instead.
func validateContext(c Context, budgetCfg config.BudgetConfig) error {
	if c.CorrelationID == "" {
		return fmt.Errorf("missing correlation_id")
	}

	if len(c.Docs) > 0 {
		kFinal, _ := c.Params["k_final"].(int)
		if kFinal != len(c.Docs) {
			return fmt.Errorf("k_final %d does not match %d retrieved documents", kFinal, len(c.Docs))
		}
		if kFinal < 5 || kFinal > 10 {
			return fmt.Errorf("k_final %d out of range [5,10]", kFinal)
		}
		for _, d := range c.Docs {
			if !validDocDate(d.PublishedDate) {
				return fmt.Errorf("document %q has an invalid published_date %q", d.ArticleID, d.PublishedDate)
			}
			if d.Language == "" {
				return fmt.Errorf("document %q has no normalized language", d.ArticleID)
			}
		}
	}

	if budgetCfg.MaxTokensPerCommand < 2048 {
		return fmt.Errorf("max_tokens %d below the 2048 floor", budgetCfg.MaxTokensPerCommand)
	}
	if budgetCfg.MaxCostCentsPerCommand < 25 {
		return fmt.Errorf("budget_cents %.2f below the 25 floor", budgetCfg.MaxCostCentsPerCommand)
	}
	if budgetCfg.MaxDuration() < 8*time.Second {
		return fmt.Errorf("duration %s below the 8s floor", budgetCfg.MaxDuration())
	}

	return nil
}

func validDocDate(s string) bool {
	if len(s) < 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s[:10])
	return err == nil
}
