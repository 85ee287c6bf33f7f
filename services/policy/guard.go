// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy screens incoming questions before they are sent to a
// model provider. Questions carrying credentials or other sensitive
// material are rejected locally; the content never leaves the host.
package policy

import (
	"fmt"

	"github.com/AleutianAI/bookrag/services/policy/rules"
	"gopkg.in/yaml.v3"
)

// Guard scans chat questions against the embedded rule set.
type Guard struct {
	classifications []Classification
}

// NewGuard loads the embedded rules, compiles every regex, and sorts the
// rule sets by priority. Errors only on a malformed rule file, which is a
// build defect rather than a runtime condition.
func NewGuard() (*Guard, error) {
	var ruleFile guardRuleFile
	if err := yaml.Unmarshal(rules.InputGuardPatterns, &ruleFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded guard rules: %w", err)
	}
	if err := ruleFile.compileRegexes(); err != nil {
		return nil, fmt.Errorf("failed to compile a guard regex: %w", err)
	}
	ruleFile.sortByPriority()

	return &Guard{classifications: ruleFile.Classifications}, nil
}

// Scan checks the question against every pattern and returns all matches,
// highest priority rule set first.
func (g *Guard) Scan(question string) []Finding {
	var findings []Finding
	for _, classification := range g.classifications {
		for _, pattern := range classification.Patterns {
			match := pattern.compiled.FindString(question)
			if match != "" {
				findings = append(findings, Finding{
					MatchedContent:     match,
					ClassificationName: classification.Name,
					PatternId:          pattern.Id,
					PatternDescription: pattern.Description,
					Confidence:         pattern.Confidence,
				})
			}
		}
	}
	return findings
}

// Blocks reports whether the findings warrant rejecting the question.
// Low-confidence matches alone do not block; they are noisy by nature.
func Blocks(findings []Finding) bool {
	for _, f := range findings {
		if f.Confidence == High || f.Confidence == Medium {
			return true
		}
	}
	return false
}
