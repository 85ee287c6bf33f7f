// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// ParseGraphQLResponse decodes a Weaviate GraphQL response into a typed
// result struct.
//
// The Weaviate client returns response data as map[string]interface{}.
// Rather than walking that map with type assertions at every call site,
// this round-trips the data through JSON into a struct shaped like the
// query. The target type's json tags must mirror the GraphQL field names.
//
// Example:
//
//	type chunkResult struct {
//	    Get struct {
//	        BookChunk []struct {
//	            Content string `json:"content"`
//	        } `json:"BookChunk"`
//	    } `json:"Get"`
//	}
//	result, err := datatypes.ParseGraphQLResponse[chunkResult](resp)
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil graphql response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode graphql data: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode graphql data: %w", err)
	}
	return &out, nil
}
