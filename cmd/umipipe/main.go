// Command umipipe is the CLI entrypoint for the UMI sequencing pipeline.
//
// It discovers FASTQ samples, filters them with fastp, runs UMI error
// correction per sample in parallel, and finishes with FastQC/MultiQC
// reports. See the commands package for the subcommands.
package main

import (
	"os"

	"github.com/sfilges/umiPipeline/cmd/umipipe/commands"
)

func main() {
	os.Exit(commands.Execute())
}
