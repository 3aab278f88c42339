package display

import (
	"fmt"
	"io"

	"github.com/sfilges/umiPipeline/internal/term"
)

// PrintBanner prints the ASCII art banner and version; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, ` _   _ __  __ ___        _
| | | |  \/  |_ _|_ __ (_)_ __   ___
| | | | |\/| || || '_ \| | '_ \ / _ \
| |_| | |  | || || |_) | | |_) |  __/
 \___/|_|  |_|___| .__/|_| .__/ \___|
                 |_|     |_|`)
	fmt.Fprintln(w, term.NC+"  v"+version)
}
