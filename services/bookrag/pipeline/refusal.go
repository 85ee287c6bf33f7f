// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

// RefusalMessage is the fixed answer returned for questions classified as
// inappropriate. No model call is made on this path.
const RefusalMessage = "I'm sorry, but I cannot assist with that question as it appears to be " +
	"inappropriate or violates content policies. Please ask a different question " +
	"that I can help you with."
