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

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nichyow/covid-classifier/covclass/cmd/align"
	"github.com/nichyow/covid-classifier/covclass/cmd/lineage"
)

func writeTestFasta(t *testing.T, dir, name, content string) string {
	t.Helper()
	file := filepath.Join(dir, name)
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestReadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	wuhan := writeTestFasta(t, dir, "wuhan.fasta", ">Wuhan\nACGT\n")
	delta := writeTestFasta(t, dir, "delta.fasta", ">Delta\nACGT\n")

	configFile := filepath.Join(dir, "refs.toml")
	data := fmt.Sprintf(`
[[references]]
name = "Wuhan"
path = %q

[[references]]
name = "Delta"
path = %q
`, wuhan, delta)
	if err := os.WriteFile(configFile, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := readConfig(configFile)
	if err != nil {
		t.Fatal(err)
	}

	// baseline defaults to the first reference
	if cfg.Baseline != "Wuhan" {
		t.Errorf("baseline: %s, expected Wuhan", cfg.Baseline)
	}
	// gene region defaults to the Spike gene
	if cfg.Gene.Start != DefaultGeneStart || cfg.Gene.End != DefaultGeneEnd {
		t.Errorf("gene region: %d-%d", cfg.Gene.Start, cfg.Gene.End)
	}
	// scoring defaults to the historical constants
	if *cfg.AlignOptions() != align.DefaultAlignOptions {
		t.Errorf("align options: %+v", cfg.AlignOptions())
	}
	if cfg.MinMatches() != lineage.DefaultMinMatches {
		t.Errorf("min matches: %d", cfg.MinMatches())
	}
	// reference order preserved
	if cfg.References[0].Name != "Wuhan" || cfg.References[1].Name != "Delta" {
		t.Errorf("reference order: %+v", cfg.References)
	}
}

func TestReadConfigExplicit(t *testing.T) {
	dir := t.TempDir()
	wuhan := writeTestFasta(t, dir, "wuhan.fasta", ">Wuhan\nACGT\n")
	delta := writeTestFasta(t, dir, "delta.fasta", ">Delta\nACGT\n")

	configFile := filepath.Join(dir, "refs.toml")
	data := fmt.Sprintf(`
baseline = "Wuhan"

[gene]
start = 1
end = 8

[scoring]
match = 3.0
mismatch = -2.0
gap-open = -1.0
gap-extend = -0.2
min-matches = 5

[[references]]
name = "Delta"
path = %q

[[references]]
name = "Wuhan"
path = %q
`, delta, wuhan)
	if err := os.WriteFile(configFile, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := readConfig(configFile)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Gene.Start != 1 || cfg.Gene.End != 8 {
		t.Errorf("gene region: %d-%d", cfg.Gene.Start, cfg.Gene.End)
	}
	opt := cfg.AlignOptions()
	if opt.Match != 3 || opt.Mismatch != -2 || opt.GapOpen != -1 || opt.GapExtend != -0.2 {
		t.Errorf("align options: %+v", opt)
	}
	if cfg.MinMatches() != 5 {
		t.Errorf("min matches: %d", cfg.MinMatches())
	}
}

func TestReadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	wuhan := writeTestFasta(t, dir, "wuhan.fasta", ">Wuhan\nACGT\n")

	tests := []struct {
		name string
		data string
	}{
		{"no references", ``},
		{"missing file", `
[[references]]
name = "Wuhan"
path = "/no/such/file.fasta"
`},
		{"duplicated name", fmt.Sprintf(`
[[references]]
name = "Wuhan"
path = %q

[[references]]
name = "Wuhan"
path = %q
`, wuhan, wuhan)},
		{"unknown baseline", fmt.Sprintf(`
baseline = "Delta"

[[references]]
name = "Wuhan"
path = %q
`, wuhan)},
		{"invalid region", fmt.Sprintf(`
[gene]
start = 10
end = 2

[[references]]
name = "Wuhan"
path = %q
`, wuhan)},
	}

	for _, test := range tests {
		file := filepath.Join(dir, "bad.toml")
		if err := os.WriteFile(file, []byte(test.data), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := readConfig(file); err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
	}
}

func TestLoadFirstSeq(t *testing.T) {
	dir := t.TempDir()
	file := writeTestFasta(t, dir, "sample.fasta",
		">first record\nacgt\nACGT\n>second record\nTTTT\n")

	seq, err := loadFirstSeq(file)
	if err != nil {
		t.Fatal(err)
	}
	// first record only, upper-cased
	if !bytes.Equal(seq, []byte("ACGTACGT")) {
		t.Errorf("sequence: %s, expected ACGTACGT", seq)
	}
}

func TestBuildCatalogueEndToEnd(t *testing.T) {
	dir := t.TempDir()
	wuhan := writeTestFasta(t, dir, "wuhan.fasta", ">Wuhan\nACGTACGT\n")
	l1 := writeTestFasta(t, dir, "l1.fasta", ">L1\nACTTACGT\n")

	configFile := filepath.Join(dir, "refs.toml")
	data := fmt.Sprintf(`
baseline = "Wuhan"

[gene]
start = 1
end = 8

[[references]]
name = "Wuhan"
path = %q

[[references]]
name = "L1"
path = %q
`, wuhan, l1)
	if err := os.WriteFile(configFile, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := readConfig(configFile)
	if err != nil {
		t.Fatal(err)
	}

	cat, baseRegion, err := buildCatalogue(cfg, &Options{NumCPUs: 2})
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(baseRegion, []byte("ACGTACGT")) {
		t.Errorf("baseline region: %s", baseRegion)
	}
	if cat.Len() != 1 {
		t.Fatalf("catalogue size: %d, expected 1", cat.Len())
	}
	profile, _ := cat.Profile("L1")
	if len(profile) != 1 || profile[0].String() != "G3T" {
		t.Errorf("L1 profile: %v", profile)
	}
}
