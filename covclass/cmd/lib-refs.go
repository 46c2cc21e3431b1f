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
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"

	"github.com/nichyow/covid-classifier/covclass/cmd/align"
	"github.com/nichyow/covid-classifier/covclass/cmd/lineage"
	"github.com/nichyow/covid-classifier/covclass/cmd/mutation"
)

// Spike (S) gene coordinates on the Wuhan-Hu-1 reference genome
// numbering, 1-based inclusive.
const (
	DefaultGeneStart = 21563
	DefaultGeneEnd   = 25384
)

// Config is the reference-set configuration (TOML).
// The order of [[references]] defines the catalogue order and therefore
// the order of lineage names in tie labels.
type Config struct {
	Baseline   string        `toml:"baseline"`
	Gene       GeneRegion    `toml:"gene"`
	Scoring    ScoringConfig `toml:"scoring"`
	References []RefConfig   `toml:"references"`
}

// GeneRegion is the 1-based inclusive gene region to classify on.
type GeneRegion struct {
	Start int `toml:"start"`
	End   int `toml:"end"`
}

// ScoringConfig holds the alignment scoring parameters and the
// classification threshold. Zero values mean "use the default";
// the defaults are load-bearing for reproducing historical outputs.
type ScoringConfig struct {
	Match      float64 `toml:"match"`
	Mismatch   float64 `toml:"mismatch"`
	GapOpen    float64 `toml:"gap-open"`
	GapExtend  float64 `toml:"gap-extend"`
	MinMatches int     `toml:"min-matches"`
}

// RefConfig is one named reference genome FASTA file.
type RefConfig struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// AlignOptions converts the scoring section into alignment options.
func (c *Config) AlignOptions() *align.AlignOptions {
	opt := align.DefaultAlignOptions
	if c.Scoring.Match != 0 {
		opt.Match = c.Scoring.Match
	}
	if c.Scoring.Mismatch != 0 {
		opt.Mismatch = c.Scoring.Mismatch
	}
	if c.Scoring.GapOpen != 0 {
		opt.GapOpen = c.Scoring.GapOpen
	}
	if c.Scoring.GapExtend != 0 {
		opt.GapExtend = c.Scoring.GapExtend
	}
	return &opt
}

// MinMatches returns the configured classification threshold.
func (c *Config) MinMatches() int {
	if c.Scoring.MinMatches > 0 {
		return c.Scoring.MinMatches
	}
	return lineage.DefaultMinMatches
}

// readConfig parses and validates a reference-set configuration file.
// Reference paths are checked for existence, with ~ expanded.
func readConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file: %s", file)
	}

	cfg := &Config{}
	if err = toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file: %s", file)
	}

	if len(cfg.References) == 0 {
		return nil, fmt.Errorf("config %s: no [[references]] given", file)
	}

	if cfg.Gene.Start == 0 && cfg.Gene.End == 0 {
		cfg.Gene.Start = DefaultGeneStart
		cfg.Gene.End = DefaultGeneEnd
	}
	if cfg.Gene.Start < 1 || cfg.Gene.Start > cfg.Gene.End {
		return nil, fmt.Errorf("config %s: invalid gene region: %d-%d",
			file, cfg.Gene.Start, cfg.Gene.End)
	}

	seen := make(map[string]interface{}, len(cfg.References))
	for i := range cfg.References {
		ref := &cfg.References[i]
		if ref.Name == "" {
			return nil, fmt.Errorf("config %s: reference %d has no name", file, i+1)
		}
		if _, ok := seen[ref.Name]; ok {
			return nil, fmt.Errorf("config %s: duplicated reference name: %s", file, ref.Name)
		}
		seen[ref.Name] = struct{}{}

		if ref.Path == "" {
			return nil, fmt.Errorf("config %s: reference %s has no path", file, ref.Name)
		}
		if ref.Path, err = homedir.Expand(ref.Path); err != nil {
			return nil, errors.Wrapf(err, "expanding path of reference %s", ref.Name)
		}
		ok, err := pathutil.Exists(ref.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "checking path of reference %s", ref.Name)
		}
		if !ok {
			return nil, fmt.Errorf("config %s: reference file not found: %s", file, ref.Path)
		}
	}

	if cfg.Baseline == "" {
		cfg.Baseline = cfg.References[0].Name
	}
	if _, ok := seen[cfg.Baseline]; !ok {
		return nil, fmt.Errorf("config %s: baseline %s not in [[references]]", file, cfg.Baseline)
	}

	return cfg, nil
}

// loadFirstSeq reads the first sequence record of a FASTA/Q file
// (plain or gzipped) and returns an upper-cased copy of it.
func loadFirstSeq(file string) ([]byte, error) {
	fastxReader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return nil, errors.Wrapf(err, "reading seq file: %s", file)
	}
	defer fastxReader.Close()

	record, err := fastxReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no sequence in file: %s", file)
		}
		return nil, errors.Wrapf(err, "reading seq file: %s", file)
	}
	if len(record.Seq.Seq) == 0 {
		return nil, fmt.Errorf("empty sequence in file: %s", file)
	}

	// the reader reuses the record, and comparisons downstream are
	// case-sensitive
	return bytes.ToUpper(record.Seq.Seq), nil
}

// loadBaselineRegion loads only the baseline reference and extracts its
// gene region.
func loadBaselineRegion(cfg *Config) ([]byte, error) {
	for _, rc := range cfg.References {
		if rc.Name != cfg.Baseline {
			continue
		}
		seq, err := loadFirstSeq(rc.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "loading baseline reference %s", rc.Name)
		}
		region, err := mutation.SubSeq(seq, cfg.Gene.Start, cfg.Gene.End)
		if err != nil {
			return nil, errors.Wrapf(err, "extracting gene region of baseline %s", rc.Name)
		}
		return region, nil
	}
	return nil, fmt.Errorf("baseline reference not found: %s", cfg.Baseline)
}

// buildCatalogue loads the configured references, extracts the gene
// region of each, and builds the lineage catalogue against the
// baseline. A failing non-baseline reference is logged and skipped; a
// failing baseline aborts. It returns the catalogue and the baseline
// gene region candidates are aligned against.
func buildCatalogue(cfg *Config, opt *Options) (*lineage.Catalogue, []byte, error) {
	refs := make([]lineage.Reference, 0, len(cfg.References))
	for _, rc := range cfg.References {
		seq, err := loadFirstSeq(rc.Path)
		if err == nil {
			var region []byte
			region, err = mutation.SubSeq(seq, cfg.Gene.Start, cfg.Gene.End)
			if err == nil {
				refs = append(refs, lineage.Reference{Name: rc.Name, Seq: region})
				continue
			}
		}

		if rc.Name == cfg.Baseline {
			return nil, nil, errors.Wrapf(err, "loading baseline reference %s", rc.Name)
		}
		log.Warningf("skipping reference %s: %s", rc.Name, err)
	}

	var baseRegion []byte
	for _, ref := range refs {
		if ref.Name == cfg.Baseline {
			baseRegion = ref.Seq
			break
		}
	}

	aopt := cfg.AlignOptions()
	cat, failed, err := lineage.Build(refs, cfg.Baseline, aopt)
	if err != nil {
		return nil, nil, err
	}
	for name, err := range failed {
		log.Warningf("failed to build profile of lineage %s: %s", name, err)
	}

	if opt.Verbose {
		log.Infof("lineage catalogue built: %d lineage(s) against baseline %s",
			cat.Len(), cfg.Baseline)
		for _, name := range cat.Names() {
			profile, _ := cat.Profile(name)
			log.Infof("  %s: %d signature mutation(s)", name, len(profile))
		}
	}

	return cat, baseRegion, nil
}
