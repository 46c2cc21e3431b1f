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

	"github.com/spf13/cobra"
)

// VERSION of covclass
const VERSION = "0.2.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "covclass",
	Short: "classify SARS-CoV-2 samples into lineages by mutation signatures",
	Long: fmt.Sprintf(`
covclass v%s: classify SARS-CoV-2 samples into lineages by mutation signatures

covclass aligns the Spike gene of a sample against a baseline reference
genome (global alignment with affine gap costs), derives the sample's
nucleotide mutations, and matches them against precomputed mutation
profiles of known lineages.

Documents: https://github.com/nichyow/covid-classifier

Commands:
  1. covclass classify  -c refs.toml sample.fasta
  2. covclass mutations -c refs.toml sample.fasta
  3. covclass profiles  -c refs.toml

`, VERSION),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	checkError(RootCmd.Execute())
}

func init() {
	RootCmd.PersistentFlags().IntP("threads", "j", 4,
		"number of CPU cores to use")
	RootCmd.PersistentFlags().BoolP("quiet", "", false,
		"do not print any verbose information")
	RootCmd.PersistentFlags().StringP("log", "", "",
		"log file (also prints the log on the console)")

	RootCmd.CompletionOptions.DisableDefaultCmd = true
}
