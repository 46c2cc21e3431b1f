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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/util/pathutil"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/nichyow/covid-classifier/covclass/cmd/align"
	"github.com/nichyow/covid-classifier/covclass/cmd/lineage"
	"github.com/nichyow/covid-classifier/covclass/cmd/mutation"
)

// classifyHeader is the canonical header row of the classification TSV.
// Keep this as the single source of truth.
const classifyHeader = "query\tlength\talignment_score\tmutations\tmatches\tlabel\tper_lineage"

type classifyResult struct {
	file string

	length int
	score  float64
	nMuts  int
	res    lineage.Result

	err error
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify candidate samples against the lineage catalogue",
	Long: `Classify candidate samples against the lineage catalogue

The lineage catalogue is built once from the configured reference
genomes, then every candidate FASTA file (first record per file) is
aligned against the baseline gene region, its mutations are derived,
and the mutation signature matches decide the lineage label.

A candidate shorter than the configured gene region end is assumed to
be a gene-only sequence and is used unmodified.

Candidates are independent and processed in parallel (-j/--threads);
the output keeps the input order.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		timeStart := time.Now()
		defer func() {
			if opt.Verbose {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
		}()

		// ------------------------------

		configFile := getFlagString(cmd, "config")
		if configFile == "" {
			checkError(fmt.Errorf("flag -c/--config needed"))
		}
		outFile := getFlagString(cmd, "out-file")
		plotDir := getFlagString(cmd, "plot-dir")
		minMatches := getFlagNonNegativeInt(cmd, "min-matches")

		cfg, err := readConfig(configFile)
		checkError(err)
		if minMatches == 0 {
			minMatches = cfg.MinMatches()
		}

		// ------------------------------
		// input files

		inDir := getFlagString(cmd, "in-dir")
		reFileStr := getFlagString(cmd, "file-regexp")
		reFile, err := regexp.Compile(reFileStr)
		if err != nil {
			checkError(errors.Wrapf(err, "parsing regular expression for matching files: %s", reFileStr))
		}

		files := make([]string, 0, 64)
		files = append(files, args...)
		if inDir != "" {
			existed, err := pathutil.DirExists(inDir)
			checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			if !existed {
				checkError(fmt.Errorf("value of -I/--in-dir should be an existing directory: %s", inDir))
			}

			more, err := getFileListFromDir(inDir, reFile, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			if len(more) == 0 {
				log.Warningf("no files matching regular expression: %s", reFileStr)
			}
			files = append(files, more...)
		}
		if len(files) == 0 {
			checkError(fmt.Errorf("candidate FASTA file(s) needed"))
		}
		if opt.Verbose {
			log.Infof("%d candidate file(s) given", len(files))
		}

		if plotDir != "" {
			checkError(os.MkdirAll(plotDir, 0755))
		}

		// ------------------------------
		// catalogue

		cat, baseRegion, err := buildCatalogue(cfg, opt)
		checkError(err)
		if cat.Len() == 0 {
			checkError(fmt.Errorf("no lineage profile could be built, check the references"))
		}

		// ------------------------------
		// classify candidates

		outfh, err := xopen.Wopen(outFile)
		checkError(errors.Wrapf(err, "writing %s", outFile))
		defer outfh.Close()

		fmt.Fprintln(outfh, classifyHeader)

		// process bar
		var pbs *mpb.Progress
		var bar *mpb.Bar
		var chDuration chan time.Duration
		var doneDuration chan int
		showBar := opt.Verbose && len(files) > 1
		if showBar {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(files)),
				mpb.PrependDecorators(
					decor.Name("classified samples: ", decor.WC{W: len("classified samples: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 10),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)

			chDuration = make(chan time.Duration, opt.NumCPUs)
			doneDuration = make(chan int)
			go func() {
				for t := range chDuration {
					bar.EwmaIncrBy(1, t)
				}
				doneDuration <- 1
			}()
		}

		aopt := cfg.AlignOptions()
		results := make([]*classifyResult, len(files))

		var wg sync.WaitGroup
		tokens := make(chan int, opt.NumCPUs)
		for i, file := range files {
			tokens <- 1
			wg.Add(1)

			go func(i int, file string) {
				defer func() {
					wg.Done()
					<-tokens
				}()
				startTime := time.Now()

				results[i] = classifyOne(file, cfg, cat, baseRegion, aopt, minMatches)

				if showBar {
					chDuration <- time.Since(startTime)
				}
			}(i, file)
		}
		wg.Wait()

		if showBar {
			close(chDuration)
			<-doneDuration
			pbs.Wait()
		}

		// ------------------------------
		// report, in input order

		var nFailed int
		perLineage := make([]string, 0, cat.Len())
		for _, r := range results {
			if r.err != nil {
				nFailed++
				log.Warningf("failed to classify %s: %s", r.file, r.err)
				continue
			}

			perLineage = perLineage[:0]
			for _, s := range r.res.Scores {
				perLineage = append(perLineage, fmt.Sprintf("%s:%d", s.Lineage, s.Matches))
			}
			fmt.Fprintf(outfh, "%s\t%d\t%.1f\t%d\t%d\t%s\t%s\n",
				r.file, r.length, r.score, r.nMuts, r.res.Matches, r.res.Label,
				strings.Join(perLineage, ";"))

			if plotDir != "" && len(r.res.Scores) > 0 {
				base := filepath.Base(r.file)
				pngFile := filepath.Join(plotDir, base+".matches.png")
				if err = plotMatchCounts(r.res.Scores, base, pngFile); err != nil {
					log.Warningf("failed to plot %s: %s", pngFile, err)
				}
			}
		}

		if opt.Verbose {
			log.Infof("%d sample(s) classified, %d failed", len(files)-nFailed, nFailed)
			if outFile != "-" {
				log.Infof("classification results saved to: %s", outFile)
			}
		}
	},
}

// classifyOne runs the whole per-candidate pipeline: load, extract the
// gene region, align against the baseline, derive mutations, classify.
func classifyOne(file string, cfg *Config, cat *lineage.Catalogue,
	baseRegion []byte, aopt *align.AlignOptions, minMatches int) *classifyResult {
	r := &classifyResult{file: file}

	s, err := loadFirstSeq(file)
	if err != nil {
		r.err = err
		return r
	}

	// a sequence shorter than the gene region end is taken as a
	// gene-only sequence
	region := s
	if len(s) >= cfg.Gene.End {
		if region, err = mutation.SubSeq(s, cfg.Gene.Start, cfg.Gene.End); err != nil {
			r.err = err
			return r
		}
	}
	r.length = len(region)

	alg := align.NewAligner(aopt)
	ar, err := alg.Global(baseRegion, region)
	if err != nil {
		r.err = errors.Wrapf(err, "aligning against baseline %s", cat.Baseline())
		return r
	}
	r.score = ar.Score

	muts := mutation.Find(ar.AlignA, ar.AlignB, baseRegion)
	align.RecycleAlignResult(ar)
	r.nMuts = len(muts)

	r.res = cat.Classify(muts, minMatches)
	return r
}

func init() {
	RootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringP("config", "c", "",
		`Reference-set configuration file (TOML).`)
	classifyCmd.Flags().StringP("out-file", "o", "-",
		`Output TSV file, supports the ".gz" suffix ("-" for stdout).`)
	classifyCmd.Flags().StringP("in-dir", "I", "",
		`Directory containing candidate FASTA files. Directory symlinks are followed.`)
	classifyCmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna)(.gz)?$`,
		`Regular expression for matching candidate files in -I/--in-dir.`)
	classifyCmd.Flags().IntP("min-matches", "m", 0,
		`Minimum number of matched signature mutations for naming a lineage (0 for the configured/default value).`)
	classifyCmd.Flags().StringP("plot-dir", "", "",
		`Directory for saving per-sample bar charts of lineage matches (PNG).`)
}
