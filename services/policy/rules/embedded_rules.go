// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules embeds the input guard pattern definitions into the
// binary so the rules are immutable at runtime and travel with the
// executable.
package rules

import (
	_ "embed"
)

// InputGuardPatterns holds the raw YAML content of the guard rule file,
// populated at compile time.
//
//go:embed input_guard_patterns.yaml
var InputGuardPatterns []byte
