// Command bindgen compiles declaration files into Go source holding the
// binding tables.
//
//	bindgen [-config bindgen.toml] [-pkg name] [-var name] [-o out.go] [-check] [-v] files...
//
// Files are parsed concurrently, resolved together, and emitted as one
// gofmt'd file, written to stdout unless -o is set. With -check nothing is
// written. Flags override values from the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"golang.org/x/sync/errgroup"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/decl"
	"github.com/joeycumines/go-bindbridge/resolve"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command, returning the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "bindgen: %v\n", err)
		return 2
	}

	level := stumpy.L.LevelInformational()
	if cfg.Verbose {
		level = stumpy.L.LevelDebug()
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(stderr)),
		stumpy.L.WithLevel(level),
	).Logger()

	if err := compile(ctx, cfg, stdout, logger); err != nil {
		fmt.Fprintf(stderr, "bindgen: %v\n", err)
		return 1
	}
	return 0
}

func compile(ctx context.Context, cfg *config, stdout io.Writer, logger *logiface.Logger[logiface.Event]) error {
	files, err := parseFiles(ctx, cfg.Inputs, logger)
	if err != nil {
		return err
	}

	model, err := resolve.Resolve(files...)
	if err != nil {
		return err
	}
	tables, err := bindgen.Generate(model)
	if err != nil {
		return err
	}
	logger.Debug().
		Int(`interfaces`, len(tables.All())).
		Int(`dictionaries`, len(tables.Dictionaries())).
		Log(`generated tables`)

	src, err := bindgen.Emit(tables, bindgen.EmitOptions{
		Package: cfg.Package,
		Var:     cfg.Var,
		Source:  cfg.Inputs,
	})
	if err != nil {
		return err
	}
	if cfg.Check {
		logger.Info().
			Int(`files`, len(files)).
			Log(`declarations ok`)
		return nil
	}

	if cfg.Output == "" {
		_, err = stdout.Write(src)
		return err
	}
	if err := os.WriteFile(cfg.Output, src, 0o644); err != nil {
		return err
	}
	logger.Info().
		Str(`output`, cfg.Output).
		Int(`bytes`, len(src)).
		Log(`wrote bindings`)
	return nil
}

// parseFiles parses every input concurrently, keeping input order.
func parseFiles(ctx context.Context, paths []string, logger *logiface.Logger[logiface.Event]) ([]*decl.File, error) {
	files := make([]*decl.File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := decl.ParseFile(path)
			if err != nil {
				return err
			}
			logger.Debug().
				Str(`file`, path).
				Int(`interfaces`, len(f.Interfaces)).
				Int(`dictionaries`, len(f.Dictionaries)).
				Log(`parsed declarations`)
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
