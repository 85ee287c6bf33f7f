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

import (
	"regexp"
	"strings"
)

var extensionPattern = regexp.MustCompile(`\.[^.]+$`)
var spacesPattern = regexp.MustCompile(`\s+`)

// rewritePattern alternates every rewrite in titleRewrites order. A single
// pass means a replacement's output is never rescanned, so "LangChain" does
// not get mangled by the later "ai" rule.
var rewritePattern *regexp.Regexp
var rewriteMap map[string]string

func init() {
	rewriteMap = make(map[string]string, len(titleRewrites))
	alternatives := make([]string, 0, len(titleRewrites))
	for _, rw := range titleRewrites {
		rewriteMap[rw.pattern] = rw.replacement
		alternatives = append(alternatives, regexp.QuoteMeta(rw.pattern))
	}
	rewritePattern = regexp.MustCompile(strings.Join(alternatives, "|"))
}

// titleRewrites is applied in order; longer and more specific patterns come
// first so "gpt-4o" wins over "gpt-4". Common words get padded with spaces to
// split concatenated filenames like "generativeaiwithlangchain".
var titleRewrites = []struct {
	pattern     string
	replacement string
}{
	{"chatgpt", "ChatGPT"},
	{"openai", "OpenAI"},
	{"langchain", "LangChain"},

	{"dall-e-3", "DALL-E 3"},
	{"dall-e-2", "DALL-E 2"},
	{"dall-e3", "DALL-E 3"},
	{"dall-e2", "DALL-E 2"},
	{"dalle-3", "DALL-E 3"},
	{"dalle-2", "DALL-E 2"},
	{"dalle3", "DALL-E 3"},
	{"dalle2", "DALL-E 2"},
	{"dall-e", "DALL-E"},
	{"dalle", "DALL-E"},

	{"gpt-4o", "GPT-4o"},
	{"gpt-4", "GPT-4"},
	{"gpt-3.5", "GPT-3.5"},
	{"gpt-3", "GPT-3"},
	{"gpt4o", "GPT-4o"},
	{"gpt4", "GPT-4"},
	{"gpt3", "GPT-3"},

	{"ai", "AI"},
	{"ml", "ML"},
	{"nlp", "NLP"},
	{"llm", "LLM"},
	{"llms", "LLMs"},
	{"api", "API"},
	{"apis", "APIs"},
	{"rag", "RAG"},
	{"sql", "SQL"},
	{"aws", "AWS"},
	{"gcp", "GCP"},

	{"engineering", " Engineering "},
	{"developing", " Developing "},
	{"generating", " Generating "},
	{"unlocking", " Unlocking "},
	{"applications", " Applications "},
	{"solutions", " Solutions "},
	{"creative", " Creative "},
	{"generative", " Generative "},
	{"intelligence", " Intelligence "},
	{"artificial", " Artificial "},
	{"building", " Building "},
	{"designing", " Designing "},
	{"learning", " Learning "},
	{"machine", " Machine "},
	{"secrets", " Secrets "},
	{"images", " Images "},
	{"prompts", " Prompts "},
	{"prompt", " Prompt "},
	{"cloud", " Cloud "},
	{"apps", " Apps "},
	{"with", " with "},
	{"from", " from "},
	{"and", " and "},
	{"the", " the "},
	{"for", " for "},
	{"of", " of "},
}

// specialTerms survive title casing unchanged.
var specialTerms = map[string]bool{
	"ChatGPT": true, "OpenAI": true, "LangChain": true, "DALL-E": true,
	"AI": true, "ML": true, "NLP": true, "LLM": true, "LLMs": true,
	"API": true, "APIs": true, "RAG": true, "SQL": true, "AWS": true,
	"GCP": true,
}

// smallWords stay lowercase in titles unless they open the title.
var smallWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
}

// FormatDocumentTitle converts a stored document filename into a readable
// book title.
//
// Examples:
//
//	"developingappswithgpt-4andchatgpt.pdf" -> "Developing Apps with GPT-4 and ChatGPT"
//	"aiengineering.pdf" -> "AI Engineering"
//	"hands_on_large_language_models.pdf" -> "Hands on Large Language Models"
func FormatDocumentTitle(filename string) string {
	if filename == "" {
		return filename
	}

	name := extensionPattern.ReplaceAllString(filename, "")
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", " ")

	if strings.Contains(name, " ") {
		// Already word-separated: rewrite whole words only, so "hands"
		// is not split on its embedded "and".
		words := strings.Fields(name)
		for i, word := range words {
			if replacement, ok := rewriteMap[word]; ok {
				words[i] = strings.TrimSpace(replacement)
			}
		}
		name = strings.Join(words, " ")
	} else {
		// Concatenated filename: substring rewrites split it into words.
		name = rewritePattern.ReplaceAllStringFunc(name, func(m string) string {
			return rewriteMap[m]
		})
	}

	name = strings.TrimSpace(spacesPattern.ReplaceAllString(name, " "))

	words := strings.Fields(name)
	result := make([]string, 0, len(words))
	for i, word := range words {
		switch {
		case specialTerms[word] || strings.HasPrefix(word, "GPT-") || strings.HasPrefix(word, "DALL-E"):
			result = append(result, word)
		case smallWords[strings.ToLower(word)]:
			if i == 0 {
				result = append(result, capitalize(word))
			} else {
				result = append(result, strings.ToLower(word))
			}
		default:
			result = append(result, capitalize(word))
		}
	}
	return strings.Join(result, " ")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
