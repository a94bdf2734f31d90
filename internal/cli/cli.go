package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Output formats accepted by -format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Args are the command-line arguments of a single audit run or of the API server.
type Args struct {
	// Target is the site URL or bare host to audit.
	Target string

	// Depth caps the audited pages; 0 uses the configured default.
	Depth int

	// ConfigPath is an optional YAML file layered over the defaults.
	ConfigPath string

	// Serve starts the HTTP API instead of running one audit.
	Serve bool
	Addr  string

	SkipPageSpeed bool
	Strategy      string

	// Format selects the report written to Output (stdout when empty).
	Format string
	Output string

	// MinScore makes the run fail when the health score ends up below it.
	MinScore int

	LogLevel string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

func newFlagSet(a *Args) *flag.FlagSet {
	fs := flag.NewFlagSet("sitepulse", flag.ContinueOnError)
	fs.StringVar(&a.Target, "target", "", "Site URL or host to audit (or pass it as the first argument)")
	fs.IntVar(&a.Depth, "depth", 0, "Maximum pages to audit (0=use config default)")
	fs.StringVar(&a.ConfigPath, "config", "", "Path to a YAML config file")
	fs.BoolVar(&a.Serve, "serve", false, "Run the HTTP API instead of a single audit")
	fs.StringVar(&a.Addr, "addr", "", "Listen address for -serve (default from config)")
	fs.BoolVar(&a.SkipPageSpeed, "skip-pagespeed", false, "Do not query PageSpeed Insights")
	fs.StringVar(&a.Strategy, "strategy", "", "PageSpeed strategy: mobile|desktop")
	fs.StringVar(&a.Format, "format", FormatText, "Report format: text|json|csv|xlsx")
	fs.StringVar(&a.Output, "out", "", "Write the report to this file instead of stdout")
	fs.IntVar(&a.MinScore, "min-score", 0, "Exit non-zero when the health score is below this value")
	fs.StringVar(&a.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	return fs
}

// ParseArgs parses a slice of args and returns Args. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*Args, error) {
	a := &Args{RawArgs: args}
	fs := newFlagSet(a)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.Target == "" && fs.NArg() > 0 {
		a.Target = fs.Arg(0)
	}
	a.Target = strings.TrimSpace(a.Target)

	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Args) validate() error {
	if !a.Serve && a.Target == "" {
		return errors.New("missing target: pass -target or a URL argument")
	}
	if a.Depth < 0 {
		return fmt.Errorf("-depth must not be negative, got %d", a.Depth)
	}
	if a.MinScore < 0 || a.MinScore > 100 {
		return fmt.Errorf("-min-score must be in [0, 100], got %d", a.MinScore)
	}
	switch a.Strategy {
	case "", "mobile", "desktop":
	default:
		return fmt.Errorf("unknown -strategy %q", a.Strategy)
	}
	switch a.Format {
	case FormatText, FormatJSON, FormatCSV:
	case FormatXLSX:
		if a.Output == "" {
			return errors.New("-format xlsx requires -out")
		}
	default:
		return fmt.Errorf("unknown -format %q", a.Format)
	}
	return nil
}

// Usage writes the flag help to w.
func Usage(w io.Writer) {
	fs := newFlagSet(&Args{})
	fs.SetOutput(w)
	fmt.Fprintln(w, "Usage: sitepulse [flags] <url>")
	fmt.Fprintln(w, "       sitepulse -serve [-addr :8080]")
	fmt.Fprintln(w)
	fs.PrintDefaults()
}
