// Copyright © 2024-2026 nichyow
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package mutation derives nucleotide-level mutation events from a
// gapped alignment, expressed in the coordinates of the original,
// ungapped reference sequence.
package mutation

import (
	"fmt"

	"github.com/nichyow/covid-classifier/covclass/cmd/align"
)

// Type is the kind of a mutation event.
type Type uint8

const (
	Substitution Type = iota + 1
	Insertion
	Deletion
)

func (t Type) String() string {
	switch t {
	case Substitution:
		return "substitution"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	}
	return "unknown"
}

// Mutation is one mutation event relative to a reference sequence.
// Positions are 1-based coordinates of the original ungapped reference.
//
// Field use per type:
//
//	Substitution: Pos, Ref (reference base), Alt (variant base)
//	Insertion:    Pos (reference base the insertion follows, 0 = before
//	              the first base), Alt (inserted base), Ref is 0
//	Deletion:     Pos, Ref (deleted reference base), Alt is 0
//
// The struct is comparable, two events are the same signature if and
// only if all fields are equal.
type Mutation struct {
	Type Type
	Pos  int
	Ref  byte
	Alt  byte
}

// IsSubstitution returns true for a substitution event.
func (m Mutation) IsSubstitution() bool { return m.Type == Substitution }

// IsInsertion returns true for an insertion event.
func (m Mutation) IsInsertion() bool { return m.Type == Insertion }

// IsDeletion returns true for a deletion event.
func (m Mutation) IsDeletion() bool { return m.Type == Deletion }

// String gives a compact notation: G3T, 3_insA, 4_delT.
func (m Mutation) String() string {
	switch m.Type {
	case Substitution:
		return fmt.Sprintf("%c%d%c", m.Ref, m.Pos, m.Alt)
	case Insertion:
		return fmt.Sprintf("%d_ins%c", m.Pos, m.Alt)
	case Deletion:
		return fmt.Sprintf("%d_del%c", m.Pos, m.Ref)
	}
	return "?"
}

// Find walks an aligned sequence pair column by column and returns the
// mutation events of the variant relative to the reference, ordered by
// genome position. origRef is the original ungapped reference the
// aligned pair was computed from; substitution and deletion reference
// bases are read from it, not from the gapped copy. A run of inserted
// bases yields one event per base, all anchored at the same position.
func Find(alignedRef, alignedVar, origRef []byte) []Mutation {
	muts := make([]Mutation, 0, 8)

	var refBase, varBase byte
	refPos := 0 // number of reference bases consumed so far
	for i := 0; i < len(alignedRef); i++ {
		refBase = alignedRef[i]
		varBase = alignedVar[i]

		if refBase != varBase {
			switch {
			case refBase != align.GapByte && varBase != align.GapByte:
				muts = append(muts, Mutation{
					Type: Substitution,
					Pos:  refPos + 1,
					Ref:  origRef[refPos],
					Alt:  varBase,
				})
			case refBase == align.GapByte:
				muts = append(muts, Mutation{
					Type: Insertion,
					Pos:  refPos,
					Alt:  varBase,
				})
			default:
				muts = append(muts, Mutation{
					Type: Deletion,
					Pos:  refPos + 1,
					Ref:  origRef[refPos],
				})
			}
		}

		if refBase != align.GapByte {
			refPos++
		}
	}

	return muts
}

// SubSeq returns a copy of the subsequence covering the 1-based
// inclusive range [start, end]. The input is never truncated silently:
// a range outside the sequence is an error.
func SubSeq(seq []byte, start, end int) ([]byte, error) {
	if start < 1 {
		return nil, fmt.Errorf("subseq: start position should be >= 1: %d", start)
	}
	if start > end {
		return nil, fmt.Errorf("subseq: invalid range: %d-%d", start, end)
	}
	if len(seq) < end {
		return nil, fmt.Errorf("subseq: sequence too short (%d bp) for range %d-%d",
			len(seq), start, end)
	}

	sub := make([]byte, end-start+1)
	copy(sub, seq[start-1:end])
	return sub, nil
}
