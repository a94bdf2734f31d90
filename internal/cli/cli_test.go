package cli_test

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/raysh454/sitepulse/internal/cli"
)

func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()
	a, err := cli.ParseArgs([]string{"example.com"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if a.Target != "example.com" || a.Format != cli.FormatText || a.Depth != 0 || a.Serve {
		t.Errorf("args = %+v", a)
	}
	if len(a.RawArgs) != 1 {
		t.Errorf("RawArgs = %v", a.RawArgs)
	}
}

func TestParseArgs_Flags(t *testing.T) {
	t.Parallel()
	a, err := cli.ParseArgs([]string{
		"-target", " https://shop.test ", "-depth", "25", "-format", "xlsx", "-out", "r.xlsx",
		"-skip-pagespeed", "-strategy", "desktop", "-min-score", "70", "-config", "c.yaml",
	})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if a.Target != "https://shop.test" || a.Depth != 25 || a.Format != cli.FormatXLSX || a.Output != "r.xlsx" {
		t.Errorf("args = %+v", a)
	}
	if !a.SkipPageSpeed || a.Strategy != "desktop" || a.MinScore != 70 || a.ConfigPath != "c.yaml" {
		t.Errorf("args = %+v", a)
	}
}

func TestParseArgs_ServeNeedsNoTarget(t *testing.T) {
	t.Parallel()
	a, err := cli.ParseArgs([]string{"-serve", "-addr", ":9000"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if !a.Serve || a.Addr != ":9000" {
		t.Errorf("args = %+v", a)
	}
}

func TestParseArgs_Invalid(t *testing.T) {
	t.Parallel()
	cases := map[string][]string{
		"missing target":   {},
		"blank target":     {"-target", "  "},
		"negative depth":   {"-depth", "-1", "a.test"},
		"min score range":  {"-min-score", "101", "a.test"},
		"unknown strategy": {"-strategy", "tablet", "a.test"},
		"unknown format":   {"-format", "pdf", "a.test"},
		"xlsx to stdout":   {"-format", "xlsx", "a.test"},
		"unknown flag":     {"-bogus", "a.test"},
	}
	for name, args := range cases {
		if _, err := cli.ParseArgs(args); err == nil {
			t.Errorf("%s: expected error for %v", name, args)
		}
	}
}

func TestParseArgs_Help(t *testing.T) {
	t.Parallel()
	if _, err := cli.ParseArgs([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("err = %v, want flag.ErrHelp", err)
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	cli.Usage(&buf)
	for _, want := range []string{"Usage: sitepulse", "-depth", "-serve", "-min-score"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("usage missing %q:\n%s", want, buf.String())
		}
	}
}
