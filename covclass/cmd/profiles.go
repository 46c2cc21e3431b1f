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
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show the precomputed mutation profiles of all lineages",
	Long: `Show the precomputed mutation profiles of all lineages

Every configured lineage reference is aligned against the baseline gene
region once and its signature mutations are reported. These are the
profiles the classify command matches candidates against.

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

		cfg, err := readConfig(configFile)
		checkError(err)

		cat, _, err := buildCatalogue(cfg, opt)
		checkError(err)

		// ------------------------------

		outfh, err := xopen.Wopen(outFile)
		checkError(errors.Wrapf(err, "writing %s", outFile))
		defer outfh.Close()

		fmt.Fprintln(outfh, "lineage\ttype\tposition\tref\talt\tnotation")

		for _, name := range cat.Names() {
			profile, _ := cat.Profile(name)
			for _, m := range profile {
				ref, alt := "-", "-"
				if m.Ref != 0 {
					ref = string(m.Ref)
				}
				if m.Alt != 0 {
					alt = string(m.Alt)
				}
				fmt.Fprintf(outfh, "%s\t%s\t%d\t%s\t%s\t%s\n",
					name, m.Type, m.Pos, ref, alt, m)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(profilesCmd)

	profilesCmd.Flags().StringP("config", "c", "",
		`Reference-set configuration file (TOML).`)
	profilesCmd.Flags().StringP("out-file", "o", "-",
		`Output TSV file, supports the ".gz" suffix ("-" for stdout).`)
}
