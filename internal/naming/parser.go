package naming

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotReadFile is returned for names without a FASTQ extension.
	ErrNotReadFile = errors.New("not a FASTQ file")
	// ErrNoReadDesignator is returned for FASTQ names that carry no read-1/read-2 marker.
	ErrNoReadDesignator = errors.New("no read designator in file name")
)

// Role identifies which mate of a read pair a file holds.
type Role int

const (
	RoleUnknown Role = iota
	RoleR1           // Primary (read 1).
	RoleR2           // Secondary (read 2).
)

func (r Role) String() string {
	switch r {
	case RoleR1:
		return "R1"
	case RoleR2:
		return "R2"
	}
	return "unknown"
}

// ReadName is the structured result of parsing a read file name.
type ReadName struct {
	Sample string
	Role   Role
	Run    int    // Run/chunk number when the name carries one, else 0.
	Rule   string // Name of the matching rule.
}

// readExtensions lists accepted extensions, longest first.
var readExtensions = []string{".fastq.gz", ".fq.gz", ".fastq", ".fq"}

// TrimReadExt removes a FASTQ extension (case-insensitive). ok is false
// when basename carries none.
func TrimReadExt(basename string) (base string, ok bool) {
	lower := strings.ToLower(basename)
	for _, ext := range readExtensions {
		if strings.HasSuffix(lower, ext) && len(basename) > len(ext) {
			return basename[:len(basename)-len(ext)], true
		}
	}
	return basename, false
}

// IsReadFile reports whether basename has a FASTQ extension.
func IsReadFile(basename string) bool {
	_, ok := TrimReadExt(basename)
	return ok
}

// ParseReadName maps a raw file name to its sample name and read role.
// The sample name is the basename with the read designator, any run-number
// suffix and the extension removed.
//
// The "numbered" rule reads a bare _1/_2 suffix as the read role, so a
// single-end file such as patient_2.fastq.gz parses as R2 of sample
// "patient" and is later skipped for lacking an R1 mate. Rename such files
// with an explicit _R1 designator.
func ParseReadName(basename string) (ReadName, error) {
	base, ok := TrimReadExt(basename)
	if !ok {
		return ReadName{}, errors.Wrapf(ErrNotReadFile, "%s", basename)
	}
	for _, rule := range Rules {
		m := rule.Pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		rn := rule.Extract(m)
		rn.Rule = rule.Name
		return rn, nil
	}
	return ReadName{}, errors.Wrapf(ErrNoReadDesignator, "%s", basename)
}
