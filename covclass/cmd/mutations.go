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

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"

	"github.com/nichyow/covid-classifier/covclass/cmd/align"
	"github.com/nichyow/covid-classifier/covclass/cmd/mutation"
)

var mutationsCmd = &cobra.Command{
	Use:   "mutations",
	Short: "List the mutations of candidate samples relative to the baseline",
	Long: `List the mutations of candidate samples relative to the baseline

Every candidate FASTA file (first record per file) is aligned against
the baseline gene region and the nucleotide mutation events are
reported, ordered by reference position. For insertions, the position
is the reference base the insertion follows (0 = before the first
base).

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		// ------------------------------

		configFile := getFlagString(cmd, "config")
		if configFile == "" {
			checkError(fmt.Errorf("flag -c/--config needed"))
		}
		outFile := getFlagString(cmd, "out-file")

		if len(args) == 0 {
			checkError(fmt.Errorf("candidate FASTA file(s) needed"))
		}

		cfg, err := readConfig(configFile)
		checkError(err)

		baseRegion, err := loadBaselineRegion(cfg)
		checkError(err)

		// ------------------------------

		outfh, err := xopen.Wopen(outFile)
		checkError(errors.Wrapf(err, "writing %s", outFile))
		defer outfh.Close()

		fmt.Fprintln(outfh, "query\ttype\tposition\tref\talt\tnotation")

		aopt := cfg.AlignOptions()
		alg := align.NewAligner(aopt)
		for _, file := range args {
			s, err := loadFirstSeq(file)
			if err != nil {
				log.Warningf("skipping %s: %s", file, err)
				continue
			}

			region := s
			if len(s) >= cfg.Gene.End {
				if region, err = mutation.SubSeq(s, cfg.Gene.Start, cfg.Gene.End); err != nil {
					log.Warningf("skipping %s: %s", file, err)
					continue
				}
			}

			ar, err := alg.Global(baseRegion, region)
			if err != nil {
				log.Warningf("skipping %s: %s", file, err)
				continue
			}

			muts := mutation.Find(ar.AlignA, ar.AlignB, baseRegion)
			align.RecycleAlignResult(ar)

			for _, m := range muts {
				ref, alt := "-", "-"
				if m.Ref != 0 {
					ref = string(m.Ref)
				}
				if m.Alt != 0 {
					alt = string(m.Alt)
				}
				fmt.Fprintf(outfh, "%s\t%s\t%d\t%s\t%s\t%s\n",
					file, m.Type, m.Pos, ref, alt, m)
			}

			if opt.Verbose {
				log.Infof("%s: %d mutation(s)", file, len(muts))
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(mutationsCmd)

	mutationsCmd.Flags().StringP("config", "c", "",
		`Reference-set configuration file (TOML).`)
	mutationsCmd.Flags().StringP("out-file", "o", "-",
		`Output TSV file, supports the ".gz" suffix ("-" for stdout).`)
}
