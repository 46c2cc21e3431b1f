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

// Package lineage matches candidate mutation lists against catalogued
// lineage mutation signatures and classifies the candidate.
package lineage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/nichyow/covid-classifier/covclass/cmd/align"
	"github.com/nichyow/covid-classifier/covclass/cmd/mutation"
)

// DefaultMinMatches is the default minimum number of matched mutation
// events for naming a lineage. Kept at 3 for compatibility with
// historical outputs.
const DefaultMinMatches = 3

// Reference is a named reference sequence, typically one gene region.
type Reference struct {
	Name string
	Seq  []byte
}

// Score is the signature match count of one lineage.
type Score struct {
	Lineage string
	Matches int
}

// Result is the outcome of classifying one candidate.
// Scores preserves catalogue order; it is nil for a candidate without
// any mutations.
type Result struct {
	Label   string
	Matches int
	Scores  []Score
}

// Catalogue maps lineage names to their mutation profiles relative to
// one baseline reference. Iteration order is insertion order, so tie
// labels are reproducible. Build it once and share it read-only across
// classifications.
type Catalogue struct {
	baseline string
	names    []string
	profiles map[string][]mutation.Mutation
}

// NewCatalogue returns an empty catalogue for the given baseline name.
func NewCatalogue(baseline string) *Catalogue {
	return &Catalogue{
		baseline: baseline,
		names:    make([]string, 0, 8),
		profiles: make(map[string][]mutation.Mutation, 8),
	}
}

// Baseline returns the baseline reference name.
func (c *Catalogue) Baseline() string { return c.baseline }

// Len returns the number of lineages.
func (c *Catalogue) Len() int { return len(c.names) }

// Names returns the lineage names in insertion order.
func (c *Catalogue) Names() []string { return c.names }

// Profile returns the mutation profile of a lineage.
func (c *Catalogue) Profile(name string) ([]mutation.Mutation, bool) {
	p, ok := c.profiles[name]
	return p, ok
}

// Add stores a lineage profile. Adding an existing name replaces the
// profile and keeps the original position.
func (c *Catalogue) Add(name string, profile []mutation.Mutation) {
	if _, ok := c.profiles[name]; !ok {
		c.names = append(c.names, name)
	}
	c.profiles[name] = profile
}

// Matches counts the mutation events present in both lists.
// Each list is treated as a set, duplicated events count once.
// Events only match on exact equality of all fields including the
// type, there is no partial credit.
func Matches(a, b []mutation.Mutation) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[mutation.Mutation]struct{}, len(a))
	for _, m := range a {
		set[m] = struct{}{}
	}

	n := 0
	for _, m := range b {
		if _, ok := set[m]; ok {
			n++
			delete(set, m)
		}
	}
	return n
}

// Classify scores the candidate mutation list against every lineage and
// applies the threshold and tie policy. minMatches <= 0 falls back to
// DefaultMinMatches.
//
// A candidate without mutations is baseline-like by definition. A best
// score below the threshold gives the low-confidence baseline-like
// label, never a lineage name. Several lineages sharing the best score
// are joined in catalogue order into a tie label.
func (c *Catalogue) Classify(cand []mutation.Mutation, minMatches int) Result {
	if minMatches <= 0 {
		minMatches = DefaultMinMatches
	}

	if len(cand) == 0 {
		return Result{
			Label:   fmt.Sprintf("%s-like (no mutations)", c.baseline),
			Matches: 0,
		}
	}

	scores := make([]Score, len(c.names))
	best := 0
	for i, name := range c.names {
		n := Matches(cand, c.profiles[name])
		scores[i] = Score{Lineage: name, Matches: n}
		if n > best {
			best = n
		}
	}

	if best < minMatches {
		return Result{
			Label:   fmt.Sprintf("%s-like or other (low match)", c.baseline),
			Matches: best,
			Scores:  scores,
		}
	}

	ties := make([]string, 0, 2)
	for _, s := range scores {
		if s.Matches == best {
			ties = append(ties, s.Lineage)
		}
	}

	label := ties[0]
	if len(ties) > 1 {
		label = strings.Join(ties, " or ") + " (tie)"
	}
	return Result{Label: label, Matches: best, Scores: scores}
}

// Build computes the mutation profile of every non-baseline reference
// against the baseline and returns the resulting catalogue.
//
// A missing baseline reference is a blocking error. Failures of single
// lineages (e.g. an empty sequence) do not abort the others; they are
// collected in the returned map and those lineages are left out of the
// catalogue. Lineage alignments are independent and run concurrently.
func Build(refs []Reference, baseline string, opt *align.AlignOptions) (*Catalogue, map[string]error, error) {
	var baseSeq []byte
	for _, ref := range refs {
		if ref.Name == baseline {
			baseSeq = ref.Seq
			break
		}
	}
	if baseSeq == nil {
		return nil, nil, fmt.Errorf("baseline reference not found: %s", baseline)
	}
	if len(baseSeq) == 0 {
		return nil, nil, fmt.Errorf("baseline reference is empty: %s", baseline)
	}

	profiles := make([][]mutation.Mutation, len(refs))
	buildErrs := make([]error, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		if ref.Name == baseline {
			continue
		}

		wg.Add(1)
		go func(i int, ref Reference) {
			defer wg.Done()

			alg := align.NewAligner(opt)
			r, err := alg.Global(baseSeq, ref.Seq)
			if err != nil {
				buildErrs[i] = errors.Wrapf(err, "aligning %s against %s", ref.Name, baseline)
				return
			}
			profiles[i] = mutation.Find(r.AlignA, r.AlignB, baseSeq)
			align.RecycleAlignResult(r)
		}(i, ref)
	}
	wg.Wait()

	cat := NewCatalogue(baseline)
	failed := make(map[string]error)
	for i, ref := range refs {
		if ref.Name == baseline {
			continue
		}
		if buildErrs[i] != nil {
			failed[ref.Name] = buildErrs[i]
			continue
		}
		cat.Add(ref.Name, profiles[i])
	}

	return cat, failed, nil
}
