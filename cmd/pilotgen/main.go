/* Q10 pilot burst designer */
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	chanest "github.com/softmodem/chanest/src"
)

func main() {
	var length = pflag.IntP("length", "n", chanest.DEFAULT_NUM_PILOTS, "Burst length (power of two).")
	var seed = pflag.Int64P("seed", "s", 1, "Spectrum sign-pattern seed.")
	var format = pflag.StringP("format", "f", "yaml", "Output format: yaml or csv.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pilotgen - synthesize a Q10 pilot burst from a flat BPSK spectrum\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	var pilots, err = chanest.SynthesizePilots(*length, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	var fields = make([]string, len(pilots))
	for i, p := range pilots {
		fields[i] = fmt.Sprintf("%d", p)
	}

	switch *format {
	case "yaml":
		// Ready to paste into a scenario file.
		fmt.Printf("pilots: [%s]\n", strings.Join(fields, ", "))
	case "csv":
		fmt.Printf("%s\n", strings.Join(fields, ","))
	default:
		fmt.Fprintf(os.Stderr, "Unknown format %q - use yaml or csv.\n", *format)
		os.Exit(1)
	}
}
