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

// Package align implements global pairwise alignment of nucleotide
// sequences with the Needleman-Wunsch algorithm extended with affine
// (Gotoh) gap costs.
package align

import (
	"errors"
	"math"
	"sync"
)

// GapByte is the gap symbol used in alignment strings.
const GapByte = '-'

// ErrEmptySeq is returned when any of the input sequences is empty.
// No degenerate all-gap alignment is produced.
var ErrEmptySeq = errors.New("align: empty sequence")

// ErrTooLong is returned when the DP matrix would exceed
// AlignOptions.MaxMatrixCells.
var ErrTooLong = errors.New("align: matrix size limit exceeded")

// AlignOptions contains all alignment options.
// A gap run of length L costs GapOpen + (L-1)*GapExtend.
type AlignOptions struct {
	Match     float64 // score for a match
	Mismatch  float64 // score for a mismatch, negative
	GapOpen   float64 // score for the first position of a gap run, negative
	GapExtend float64 // score for each following gap position, negative

	// MaxMatrixCells limits (len(a)+1)*(len(b)+1).
	// 0 means no limit.
	MaxMatrixCells int
}

// DefaultAlignOptions is the default AlignOptions.
// The scoring constants reproduce historical classification outputs,
// do not change them lightly.
var DefaultAlignOptions = AlignOptions{
	Match:     2,
	Mismatch:  -1,
	GapOpen:   -0.5,
	GapExtend: -0.1,

	MaxMatrixCells: 0,
}

// traceback sources, i.e., the DP state a cell score came from.
const (
	fromNone uint8 = iota
	fromM          // diagonal, match or mismatch
	fromX          // vertical, gap in sequence b
	fromY          // horizontal, gap in sequence a
)

// Aligner computes global alignments. It holds reusable matrices,
// therefore one Aligner must not be used by multiple goroutines at
// the same time. Create one per worker instead.
type Aligner struct {
	Options *AlignOptions

	// reusable full pointer matrices, one per DP state
	ptrM, ptrX, ptrY []uint8

	// reusable score rows (rolling, two per state)
	mPrev, mCur []float64
	xPrev, xCur []float64
	yPrev, yCur []float64
}

// AlignResult holds the details of one alignment.
type AlignResult struct {
	Score   float64 // alignment score under the configured options
	Len     int     // number of alignment columns
	Matches int     // number of matched columns
	Gaps    int     // number of gap columns

	AlignA []byte // aligned copy of sequence a
	AlignB []byte // aligned copy of sequence b
}

// Reset resets all the values.
func (r *AlignResult) Reset() {
	r.Score = 0
	r.Len = 0
	r.Matches = 0
	r.Gaps = 0

	if r.AlignA != nil {
		r.AlignA = r.AlignA[:0]
	}
	if r.AlignB != nil {
		r.AlignB = r.AlignB[:0]
	}
}

var poolAlignResult = &sync.Pool{New: func() interface{} {
	r := &AlignResult{}
	r.AlignA = make([]byte, 0, 4096)
	r.AlignB = make([]byte, 0, 4096)
	return r
}}

// RecycleAlignResult recycles an alignment result.
func RecycleAlignResult(r *AlignResult) {
	if r != nil {
		poolAlignResult.Put(r)
	}
}

// NewAligner returns an aligner with the given options,
// or with DefaultAlignOptions for a nil argument.
func NewAligner(options *AlignOptions) *Aligner {
	if options == nil {
		tmp := DefaultAlignOptions
		options = &tmp
	}
	return &Aligner{Options: options}
}

// Global aligns the entirety of both sequences, with no free leading or
// trailing gaps. Please remember to recycle the result after use by
// calling RecycleAlignResult.
//
// When multiple alignments share the optimal score, a fixed total order
// over traceback choices keeps the output stable across runs:
// diagonal (match/mismatch) beats a gap in b, which beats a gap in a.
// The same order decides the final DP state.
func (alg *Aligner) Global(a, b []byte) (*AlignResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptySeq
	}

	h := len(a) + 1 // height of the matrix
	w := len(b) + 1 // width of the matrix
	n := h * w

	if alg.Options.MaxMatrixCells > 0 && n > alg.Options.MaxMatrixCells {
		return nil, ErrTooLong
	}

	// ---------------------------------------------------
	// initialize

	alg.grow(n, w)
	ptrM, ptrX, ptrY := alg.ptrM[:n], alg.ptrX[:n], alg.ptrY[:n]
	mPrev, mCur := alg.mPrev, alg.mCur
	xPrev, xCur := alg.xPrev, alg.xCur
	yPrev, yCur := alg.yPrev, alg.yCur

	match := alg.Options.Match
	mismatch := alg.Options.Mismatch
	open := alg.Options.GapOpen
	extend := alg.Options.GapExtend

	negInf := math.Inf(-1)

	var i, j, k int

	// the first row: only horizontal gaps can reach it
	mPrev[0] = 0
	xPrev[0] = negInf
	yPrev[0] = negInf
	ptrM[0] = fromNone
	for j = 1; j < w; j++ {
		mPrev[j] = negInf
		xPrev[j] = negInf
		yPrev[j] = open + float64(j-1)*extend
		if j == 1 {
			ptrY[j] = fromM
		} else {
			ptrY[j] = fromY
		}
	}

	// ---------------------------------------------------
	// compute

	var s float64
	var best, v float64
	var src uint8
	for i = 1; i < h; i++ {
		k = i * w

		// the first column: only vertical gaps can reach it
		mCur[0] = negInf
		yCur[0] = negInf
		xCur[0] = open + float64(i-1)*extend
		if i == 1 {
			ptrX[k] = fromM
		} else {
			ptrX[k] = fromX
		}

		for j = 1; j < w; j++ {
			k++

			s = mismatch
			if a[i-1] == b[j-1] {
				s = match
			}

			// M: consume one base of both sequences
			best, src = mPrev[j-1], fromM
			if xPrev[j-1] > best {
				best, src = xPrev[j-1], fromX
			}
			if yPrev[j-1] > best {
				best, src = yPrev[j-1], fromY
			}
			mCur[j] = best + s
			ptrM[k] = src

			// X: gap in b, consume one base of a
			best, src = mPrev[j]+open, fromM
			if v = xPrev[j] + extend; v > best {
				best, src = v, fromX
			}
			if v = yPrev[j] + open; v > best {
				best, src = v, fromY
			}
			xCur[j] = best
			ptrX[k] = src

			// Y: gap in a, consume one base of b
			best, src = mCur[j-1]+open, fromM
			if v = xCur[j-1] + open; v > best {
				best, src = v, fromX
			}
			if v = yCur[j-1] + extend; v > best {
				best, src = v, fromY
			}
			yCur[j] = best
			ptrY[k] = src
		}

		mPrev, mCur = mCur, mPrev
		xPrev, xCur = xCur, xPrev
		yPrev, yCur = yCur, yPrev
	}

	// ---------------------------------------------------
	// traceback

	r := poolAlignResult.Get().(*AlignResult)
	r.Reset()

	// the last computed row sits in the *Prev slices after the swap
	st := fromM
	r.Score = mPrev[w-1]
	if xPrev[w-1] > r.Score {
		r.Score = xPrev[w-1]
		st = fromX
	}
	if yPrev[w-1] > r.Score {
		r.Score = yPrev[w-1]
		st = fromY
	}

	i = h - 1
	j = w - 1
	for i > 0 || j > 0 {
		k = i*w + j
		r.Len++

		switch st {
		case fromM:
			r.AlignA = append(r.AlignA, a[i-1])
			r.AlignB = append(r.AlignB, b[j-1])
			if a[i-1] == b[j-1] {
				r.Matches++
			}
			st = ptrM[k]
			i--
			j--
		case fromX:
			r.AlignA = append(r.AlignA, a[i-1])
			r.AlignB = append(r.AlignB, GapByte)
			r.Gaps++
			st = ptrX[k]
			i--
		case fromY:
			r.AlignA = append(r.AlignA, GapByte)
			r.AlignB = append(r.AlignB, b[j-1])
			r.Gaps++
			st = ptrY[k]
			j--
		}
	}

	reverse(r.AlignA)
	reverse(r.AlignB)

	return r, nil
}

// grow makes sure the reusable matrices hold n cells and rows hold w cells.
func (alg *Aligner) grow(n, w int) {
	if cap(alg.ptrM) < n {
		alg.ptrM = make([]uint8, n)
		alg.ptrX = make([]uint8, n)
		alg.ptrY = make([]uint8, n)
	}
	if cap(alg.mPrev) < w {
		alg.mPrev = make([]float64, w)
		alg.mCur = make([]float64, w)
		alg.xPrev = make([]float64, w)
		alg.xCur = make([]float64, w)
		alg.yPrev = make([]float64, w)
		alg.yCur = make([]float64, w)
	}
	alg.mPrev, alg.mCur = alg.mPrev[:w], alg.mCur[:w]
	alg.xPrev, alg.xCur = alg.xPrev[:w], alg.xCur[:w]
	alg.yPrev, alg.yCur = alg.yPrev[:w], alg.yCur[:w]
}

func reverse(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
