// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package planner

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/hybridrag/core"
)

// ParseOutcome describes how much of a model reply could be used.
type ParseOutcome int

const (
	// OutcomeParsed means every entry in the block was valid.
	OutcomeParsed ParseOutcome = iota
	// OutcomePartial means some entries were skipped.
	OutcomePartial
	// OutcomeEmpty means the block was present but nothing in it was valid.
	OutcomeEmpty
	// OutcomeMissingBlock means the reply had no delimited block at all.
	OutcomeMissingBlock
)

func (o ParseOutcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomePartial:
		return "partial"
	case OutcomeEmpty:
		return "empty"
	case OutcomeMissingBlock:
		return "missing-block"
	}
	return fmt.Sprintf("ParseOutcome(%d)", int(o))
}

// Usable reports whether at least one entry was parsed.
func (o ParseOutcome) Usable() bool {
	return o == OutcomeParsed || o == OutcomePartial
}

// Decomposition is the parsed result of a decomposition reply.
type Decomposition struct {
	// SubQueries are sorted by importance, highest first. Equal importance keeps reply order.
	SubQueries []core.SubQuery
	Skipped    int
	Outcome    ParseOutcome
}

// Queries returns the sub-query texts in importance order, or just fallback
// when nothing was parsed.
func (d Decomposition) Queries(fallback string) []string {
	if len(d.SubQueries) == 0 {
		return []string{fallback}
	}
	out := make([]string, len(d.SubQueries))
	for i, q := range d.SubQueries {
		out[i] = q.Text
	}
	return out
}

var blockPatterns = map[string]*regexp.Regexp{
	rewriteTag:  blockPattern(rewriteTag),
	subQueryTag: blockPattern(subQueryTag),
	phrasesTag:  blockPattern(phrasesTag),
}

func blockPattern(tag string) *regexp.Regexp {
	tag = regexp.QuoteMeta(tag)
	return regexp.MustCompile(`(?is)<` + tag + `>(.*?)(?:</` + tag + `>|$)`)
}

// extractBlock returns the text between <tag> and </tag>. Tags are matched
// case-insensitively and the closing tag may be missing at the end of a reply.
func extractBlock(reply, tag string) (string, bool) {
	re, ok := blockPatterns[tag]
	if !ok {
		re = blockPattern(tag)
	}
	m := re.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

var (
	blankLine  = regexp.MustCompile(`\n[ \t]*\n`)
	listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
)

// ParseDecomposition parses a <subqueries> block. Entries are separated by
// blank lines and need type, importance, and query fields. Invalid entries
// are skipped.
func ParseDecomposition(reply string) Decomposition {
	d, _ := parseDecomposition(reply)
	return d
}

// parseDecomposition also returns why each skipped entry was rejected.
func parseDecomposition(reply string) (Decomposition, []error) {
	body, ok := extractBlock(reply, subQueryTag)
	if !ok {
		return Decomposition{Outcome: OutcomeMissingBlock}, nil
	}

	var (
		queries  []core.SubQuery
		problems []error
	)
	for _, entry := range blankLine.Split(strings.ReplaceAll(body, "\r\n", "\n"), -1) {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		q, err := parseSubQuery(entry)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		queries = append(queries, q)
	}

	slices.SortStableFunc(queries, func(a, b core.SubQuery) int {
		return cmp.Compare(b.Importance, a.Importance)
	})

	d := Decomposition{SubQueries: queries, Skipped: len(problems)}
	switch {
	case len(queries) == 0:
		d.Outcome = OutcomeEmpty
	case len(problems) > 0:
		d.Outcome = OutcomePartial
	default:
		d.Outcome = OutcomeParsed
	}
	return d, problems
}

func parseSubQuery(entry string) (core.SubQuery, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(entry, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(listMarker.ReplaceAllString(key, "")))
		fields[key] = strings.TrimSpace(value)
	}

	for _, required := range []string{"type", "importance", "query"} {
		if fields[required] == "" {
			return core.SubQuery{}, fmt.Errorf("missing %s field in %q", required, entry)
		}
	}

	kind, ok := core.ParseSubQueryKind(fields["type"])
	if !ok {
		return core.SubQuery{}, fmt.Errorf("unknown type %q", fields["type"])
	}
	importance, err := strconv.Atoi(strings.TrimSpace(strings.Split(fields["importance"], "/")[0]))
	if err != nil {
		return core.SubQuery{}, fmt.Errorf("importance %q is not a number", fields["importance"])
	}

	q := core.SubQuery{
		Text:       strings.Trim(fields["query"], "\"'"),
		Kind:       kind,
		Importance: importance,
	}
	if err := core.ValidateSubQuery(q); err != nil {
		return core.SubQuery{}, err
	}
	return q, nil
}

// ParsePhrases parses a <phrases> block into at most five distinct phrases.
func ParsePhrases(reply string) ([]string, ParseOutcome) {
	body, ok := extractBlock(reply, phrasesTag)
	if !ok {
		return nil, OutcomeMissingBlock
	}

	var phrases []string
	skipped := 0
	for _, line := range strings.Split(body, "\n") {
		phrase := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		phrase = strings.Trim(phrase, "\"'")
		if phrase == "" {
			continue
		}
		if slices.Contains(phrases, phrase) || len(phrases) == maxPhrases {
			skipped++
			continue
		}
		phrases = append(phrases, phrase)
	}

	switch {
	case len(phrases) == 0:
		return nil, OutcomeEmpty
	case skipped > 0:
		return phrases, OutcomePartial
	}
	return phrases, OutcomeParsed
}

// parseRewrite returns the delimited rewrite, or false when it is missing or empty.
func parseRewrite(reply string) (string, bool) {
	body, ok := extractBlock(reply, rewriteTag)
	if !ok {
		return "", false
	}
	body = strings.Join(strings.Fields(body), " ")
	return body, body != ""
}
