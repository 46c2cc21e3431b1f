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

package lineage

import (
	"reflect"
	"strings"
	"testing"

	"github.com/nichyow/covid-classifier/covclass/cmd/mutation"
)

func sub(pos int, ref, alt byte) mutation.Mutation {
	return mutation.Mutation{Type: mutation.Substitution, Pos: pos, Ref: ref, Alt: alt}
}

func del(pos int, ref byte) mutation.Mutation {
	return mutation.Mutation{Type: mutation.Deletion, Pos: pos, Ref: ref}
}

func TestMatchesSymmetric(t *testing.T) {
	a := []mutation.Mutation{sub(3, 'G', 'T'), sub(7, 'A', 'C'), del(9, 'T')}
	b := []mutation.Mutation{sub(3, 'G', 'T'), del(9, 'T'), sub(12, 'C', 'A')}

	if m, n := Matches(a, b), Matches(b, a); m != n || m != 2 {
		t.Errorf("matches: %d / %d, expected 2 / 2", m, n)
	}
}

func TestMatchesDeduplicates(t *testing.T) {
	a := []mutation.Mutation{sub(3, 'G', 'T'), sub(3, 'G', 'T')}
	b := []mutation.Mutation{sub(3, 'G', 'T')}

	if m := Matches(a, b); m != 1 {
		t.Errorf("matches: %d, expected 1 (duplicates count once)", m)
	}
	if m := Matches(b, a); m != 1 {
		t.Errorf("matches: %d, expected 1 (duplicates count once)", m)
	}
}

func TestMatchesNoPartialCredit(t *testing.T) {
	// different variant base
	if m := Matches([]mutation.Mutation{sub(3, 'G', 'T')},
		[]mutation.Mutation{sub(3, 'G', 'A')}); m != 0 {
		t.Errorf("matches: %d, expected 0", m)
	}
	// same position, different event type
	if m := Matches([]mutation.Mutation{sub(3, 'G', 'T')},
		[]mutation.Mutation{del(3, 'G')}); m != 0 {
		t.Errorf("matches: %d, expected 0", m)
	}
	// empty lists
	if m := Matches(nil, []mutation.Mutation{sub(3, 'G', 'T')}); m != 0 {
		t.Errorf("matches: %d, expected 0", m)
	}
}

func TestClassifyNoMutations(t *testing.T) {
	cat := NewCatalogue("Wuhan")
	cat.Add("Delta", []mutation.Mutation{sub(3, 'G', 'T')})

	r := cat.Classify(nil, 3)
	if r.Matches != 0 {
		t.Errorf("matches: %d, expected 0", r.Matches)
	}
	if r.Label != "Wuhan-like (no mutations)" {
		t.Errorf("label: %s", r.Label)
	}
}

func TestClassifyTie(t *testing.T) {
	m := sub(3, 'G', 'T')

	cat := NewCatalogue("Wuhan")
	cat.Add("Alpha", []mutation.Mutation{m})
	cat.Add("Beta", []mutation.Mutation{m})

	r := cat.Classify([]mutation.Mutation{m}, 1)
	if r.Matches != 1 {
		t.Errorf("matches: %d, expected 1", r.Matches)
	}
	if r.Label != "Alpha or Beta (tie)" {
		t.Errorf("label: %s, expected catalogue-ordered tie", r.Label)
	}
}

func TestClassifyClearWinner(t *testing.T) {
	profile := []mutation.Mutation{
		sub(3, 'G', 'T'), sub(10, 'A', 'C'), del(15, 'T'),
		sub(20, 'C', 'G'), sub(25, 'T', 'A'),
	}

	cat := NewCatalogue("Wuhan")
	cat.Add("Delta", profile)
	cat.Add("Gamma", []mutation.Mutation{sub(99, 'A', 'G')})

	r := cat.Classify(profile, 3)
	if r.Label != "Delta" || r.Matches != 5 {
		t.Errorf("result: %s / %d, expected Delta / 5", r.Label, r.Matches)
	}

	expected := []Score{{"Delta", 5}, {"Gamma", 0}}
	if !reflect.DeepEqual(r.Scores, expected) {
		t.Errorf("scores: %v, expected %v", r.Scores, expected)
	}
}

func TestClassifyBelowThreshold(t *testing.T) {
	cat := NewCatalogue("Wuhan")
	cat.Add("Delta", []mutation.Mutation{
		sub(3, 'G', 'T'), sub(10, 'A', 'C'), del(15, 'T'),
	})

	cand := []mutation.Mutation{sub(3, 'G', 'T'), sub(10, 'A', 'C')}
	r := cat.Classify(cand, 3)

	if r.Matches != 2 {
		t.Errorf("matches: %d, expected 2", r.Matches)
	}
	if r.Label != "Wuhan-like or other (low match)" {
		t.Errorf("label: %s", r.Label)
	}
	if strings.Contains(r.Label, "Delta") {
		t.Errorf("low-confidence label must not name a lineage: %s", r.Label)
	}
}

func TestClassifyDefaultThreshold(t *testing.T) {
	cat := NewCatalogue("Wuhan")
	cat.Add("Delta", []mutation.Mutation{sub(3, 'G', 'T'), sub(10, 'A', 'C')})

	// minMatches <= 0 falls back to DefaultMinMatches (3)
	r := cat.Classify([]mutation.Mutation{sub(3, 'G', 'T'), sub(10, 'A', 'C')}, 0)
	if r.Matches != 2 || !strings.Contains(r.Label, "low match") {
		t.Errorf("result: %s / %d", r.Label, r.Matches)
	}
}

func TestBuild(t *testing.T) {
	refs := []Reference{
		{Name: "Wuhan", Seq: []byte("ACGTACGT")},
		{Name: "L1", Seq: []byte("ACTTACGT")},
		{Name: "L2", Seq: nil}, // must fail without hurting L1
	}

	cat, failed, err := Build(refs, "Wuhan", nil)
	if err != nil {
		t.Fatal(err)
	}

	if cat.Len() != 1 {
		t.Fatalf("catalogue size: %d, expected 1", cat.Len())
	}
	profile, ok := cat.Profile("L1")
	if !ok {
		t.Fatal("L1 profile missing")
	}
	expected := []mutation.Mutation{sub(3, 'G', 'T')}
	if !reflect.DeepEqual(profile, expected) {
		t.Errorf("L1 profile: %v, expected %v", profile, expected)
	}

	if len(failed) != 1 || failed["L2"] == nil {
		t.Errorf("failed lineages: %v, expected only L2", failed)
	}
}

func TestBuildMissingBaseline(t *testing.T) {
	refs := []Reference{{Name: "L1", Seq: []byte("ACGT")}}
	if _, _, err := Build(refs, "Wuhan", nil); err == nil {
		t.Error("expected error for missing baseline")
	}
}
