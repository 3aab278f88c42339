// Package naming maps raw sequencing-read file names to a sample name and a
// read role.
//
// [ParseReadName] is the single entry point. It strips the FASTQ extension
// and evaluates an ordered rule table ([Rules]); the first matching rule
// wins. Names that match no rule are reported with [ErrNoReadDesignator] so
// discovery can log and exclude them.
package naming
