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

package storage

import (
	"fmt"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/hybridrag/core"
)

// SnapshotVersion is written at the head of every serialized snapshot.
const SnapshotVersion = 1

// MarshalSnapshot serializes an index snapshot to bytes.
func MarshalSnapshot(snap *core.IndexSnapshot) []byte {
	w := &writer{}
	w.int(SnapshotVersion)

	w.int(len(snap.Chunks))
	for _, c := range snap.Chunks {
		w.string(c.Title)
		w.string(c.Content)
		w.string(c.Summary)
	}

	w.int(len(snap.Vectors))
	for _, v := range snap.Vectors {
		w.vector(v)
	}

	w.int(len(snap.Tokens))
	for _, doc := range snap.Tokens {
		w.int(len(doc))
		for _, tok := range doc {
			w.string(tok)
		}
	}

	w.int(len(snap.Nodes))
	for _, n := range snap.Nodes {
		w.string(n.Name)
		w.string(n.Label)
	}

	w.int(len(snap.Edges))
	for _, e := range snap.Edges {
		w.string(e.From)
		w.string(e.To)
		w.float64(e.Weight)
	}

	w.int(len(snap.Postings))
	for _, p := range snap.Postings {
		w.string(p.Entity)
		w.int(len(p.Positions))
		for _, pos := range p.Positions {
			w.int(pos)
		}
	}

	w.int(len(snap.Cache))
	for _, c := range snap.Cache {
		w.string(c.Query)
		w.vector(c.Vector)
	}

	return w.buf
}

// UnmarshalSnapshot deserializes an index snapshot from bytes.
func UnmarshalSnapshot(data []byte) (*core.IndexSnapshot, error) {
	r := &reader{bs: data}
	if version := r.int(); r.err == nil && version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	snap := &core.IndexSnapshot{}

	snap.Chunks = make([]core.Chunk, r.length())
	for i := range snap.Chunks {
		snap.Chunks[i] = core.Chunk{Title: r.string(), Content: r.string(), Summary: r.string()}
	}

	snap.Vectors = make([][]float32, r.length())
	for i := range snap.Vectors {
		snap.Vectors[i] = r.vector()
	}

	snap.Tokens = make([][]string, r.length())
	for i := range snap.Tokens {
		doc := make([]string, r.length())
		for j := range doc {
			doc[j] = r.string()
		}
		snap.Tokens[i] = doc
	}

	snap.Nodes = make([]core.GraphNode, r.length())
	for i := range snap.Nodes {
		snap.Nodes[i] = core.GraphNode{Name: r.string(), Label: r.string()}
	}

	snap.Edges = make([]core.GraphEdge, r.length())
	for i := range snap.Edges {
		snap.Edges[i] = core.GraphEdge{From: r.string(), To: r.string(), Weight: r.float64()}
	}

	snap.Postings = make([]core.EntityPosting, r.length())
	for i := range snap.Postings {
		p := core.EntityPosting{Entity: r.string()}
		p.Positions = make([]int, r.length())
		for j := range p.Positions {
			p.Positions[j] = r.int()
		}
		snap.Postings[i] = p
	}

	snap.Cache = make([]core.CacheEntry, r.length())
	for i := range snap.Cache {
		snap.Cache[i] = core.CacheEntry{Query: r.string(), Vector: r.vector()}
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	if len(r.bs) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(r.bs))
	}
	return snap, nil
}

// writer appends mus-encoded values to a growing buffer.
type writer struct {
	buf []byte
}

func (w *writer) reserve(n int) []byte {
	w.buf = slices.Grow(w.buf, n)
	return w.buf[len(w.buf) : len(w.buf)+n]
}

func (w *writer) int(v int) {
	n := varint.Int.Marshal(v, w.reserve(varint.Int.Size(v)))
	w.buf = w.buf[:len(w.buf)+n]
}

func (w *writer) string(v string) {
	n := ord.String.Marshal(v, w.reserve(ord.String.Size(v)))
	w.buf = w.buf[:len(w.buf)+n]
}

func (w *writer) float32(v float32) {
	n := raw.Float32.Marshal(v, w.reserve(raw.Float32.Size(v)))
	w.buf = w.buf[:len(w.buf)+n]
}

func (w *writer) float64(v float64) {
	n := raw.Float64.Marshal(v, w.reserve(raw.Float64.Size(v)))
	w.buf = w.buf[:len(w.buf)+n]
}

func (w *writer) vector(v []float32) {
	w.int(len(v))
	for _, f := range v {
		w.float32(f)
	}
}

// reader consumes mus-encoded values. The first error sticks and every later
// read returns a zero value.
type reader struct {
	bs  []byte
	err error
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.bs)
	if err != nil {
		r.err = err
		return 0
	}
	r.bs = r.bs[n:]
	return v
}

// length reads a collection length. Every element takes at least one byte,
// so a length beyond the remaining input is corrupt.
func (r *reader) length() int {
	l := r.int()
	if r.err != nil {
		return 0
	}
	if l < 0 || l > len(r.bs) {
		r.err = fmt.Errorf("%w: length %d with %d bytes left", ErrTruncatedData, l, len(r.bs))
		return 0
	}
	return l
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs)
	if err != nil {
		r.err = err
		return ""
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) float32() float32 {
	if r.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(r.bs)
	if err != nil {
		r.err = err
		return 0
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) float64() float64 {
	if r.err != nil {
		return 0
	}
	v, n, err := raw.Float64.Unmarshal(r.bs)
	if err != nil {
		r.err = err
		return 0
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) vector() []float32 {
	l := r.length()
	if l == 0 {
		return nil
	}
	v := make([]float32, l)
	for i := range v {
		v[i] = r.float32()
	}
	return v
}
