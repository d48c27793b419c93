package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// config is the command configuration. The TOML file uses the same keys
// as the struct tags:
//
//	package = "canvas"
//	var = "Bindings"
//	output = "bindings_gen.go"
//	inputs = ["canvas.d.ts", "events.d.ts"]
type config struct {
	Package string   `toml:"package"`
	Var     string   `toml:"var"`
	Output  string   `toml:"output"`
	Inputs  []string `toml:"inputs"`
	Check   bool     `toml:"check"`
	Verbose bool     `toml:"verbose"`
}

// parseArgs loads the config file named by -config, if any, then applies
// the flags that were set. Positional arguments replace the configured
// inputs.
func parseArgs(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("bindgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "TOML config file")
		pkg        = fs.String("pkg", "", "package name of the generated file (default \"bindings\")")
		varName    = fs.String("var", "", "name of the generated tables variable (default \"Tables\")")
		output     = fs.String("o", "", "output file (default stdout)")
		check      = fs.Bool("check", false, "validate the declarations without writing output")
		verbose    = fs.Bool("v", false, "log debug output")
	)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: bindgen [flags] files...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &config{}
	if *configPath != "" {
		md, err := toml.DecodeFile(*configPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", *configPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) != 0 {
			return nil, fmt.Errorf("config %s: unknown key %q", *configPath, undecoded[0].String())
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pkg":
			cfg.Package = *pkg
		case "var":
			cfg.Var = *varName
		case "o":
			cfg.Output = *output
		case "check":
			cfg.Check = *check
		case "v":
			cfg.Verbose = *verbose
		}
	})
	if fs.NArg() != 0 {
		cfg.Inputs = fs.Args()
	}
	if len(cfg.Inputs) == 0 {
		return nil, errors.New("no input files")
	}
	return cfg, nil
}
