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

package search

import (
	"maps"
	"math"
	"slices"
)

// BM25 Okapi parameters.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// keywordIndex is a BM25 Okapi index over tokenized chunks. Terms whose IDF
// would be negative (present in more than half the corpus) are floored at
// epsilon times the average IDF.
type keywordIndex struct {
	docLens  []int
	avgDL    float64
	termFreq []map[string]int
	idf      map[string]float64
}

func newKeywordIndex(docs [][]string) *keywordIndex {
	ki := &keywordIndex{
		docLens:  make([]int, len(docs)),
		termFreq: make([]map[string]int, len(docs)),
		idf:      make(map[string]float64),
	}

	docFreq := make(map[string]int)
	var total int
	for i, doc := range docs {
		ki.docLens[i] = len(doc)
		total += len(doc)
		freqs := make(map[string]int, len(doc))
		for _, tok := range doc {
			freqs[tok]++
		}
		ki.termFreq[i] = freqs
		for tok := range freqs {
			docFreq[tok]++
		}
	}
	if len(docs) > 0 {
		ki.avgDL = float64(total) / float64(len(docs))
	}

	n := float64(len(docs))
	var idfSum float64
	var negative []string
	// Sorted so the IDF sum is reproducible across rebuilds.
	for _, tok := range slices.Sorted(maps.Keys(docFreq)) {
		df := docFreq[tok]
		idf := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		ki.idf[tok] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, tok)
		}
	}
	if len(docFreq) > 0 {
		eps := bm25Epsilon * idfSum / float64(len(docFreq))
		for _, tok := range negative {
			ki.idf[tok] = eps
		}
	}
	return ki
}

// scores returns the BM25 score of query against every document.
// Repeated query terms count once per occurrence.
func (ki *keywordIndex) scores(query []string) []float64 {
	out := make([]float64, len(ki.docLens))
	if ki.avgDL == 0 {
		return out
	}
	for _, q := range query {
		idf, ok := ki.idf[q]
		if !ok {
			continue
		}
		for i, freqs := range ki.termFreq {
			tf := float64(freqs[q])
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(ki.docLens[i])/ki.avgDL
			out[i] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}
	return out
}
