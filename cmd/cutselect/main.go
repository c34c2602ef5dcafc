// Command cutselect runs the cut-selection constraint-programming core over a cuts catalog and
// writes the chosen-cuts JSON (spec.md §6.2) to the requested output path.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/amterp/color"

	"github.com/cutselect/cutselect"
	"github.com/cutselect/cutselect/internal/logging"
)

var slogLevel = func() *slog.LevelVar {
	lvl := &slog.LevelVar{}
	lvl.Set(logging.LevelInfo)
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
	return lvl
}()

func choiceFlag[T any](p *T, name string, choices map[string]T, dflt string, usage string) {
	cstr := strings.Join(slices.Sorted(maps.Keys(choices)), ", ")
	var ok bool
	if *p, ok = choices[dflt]; !ok {
		panic(fmt.Errorf("invalid default for %v option: %v", dflt, name))
	}
	usage += fmt.Sprintf(" (one of: %v; default: %v)", cstr, dflt)
	flag.Func(name, usage, func(arg string) error {
		if arg == "" {
			arg = dflt
		}
		v, ok := choices[arg]
		if !ok {
			return fmt.Errorf("expected one of: %v", cstr)
		}
		*p = v
		return nil
	})
}

type config struct {
	cutsPath  string
	outPath   string
	objective cutselect.ObjectiveMode
	cutSize   int
	binHint   string
}

func parseFlags() *config {
	cfg := &config{}

	bumpLogLevel := func(lower bool) {
		slogLevel.Set(logging.BumpLevel(slogLevel.Level(), lower))
		name, ok := logging.LevelName(slogLevel.Level())
		if !ok {
			name = slogLevel.Level().String()
		}
		slog.Debug("log level changed", "level", name)
	}
	setLogLevel := func(arg string) error {
		lvl, err := logging.StringToLevel(arg)
		if err != nil {
			return err
		}
		slogLevel.Set(lvl)
		return nil
	}
	flag.BoolFunc("v", "Increase log verbosity.", func(arg string) error {
		switch arg {
		case "", "true":
			bumpLogLevel(true)
		default:
			return setLogLevel(arg)
		}
		return nil
	})
	flag.BoolFunc("q", "Decrease log verbosity.", func(arg string) error {
		switch arg {
		case "", "true":
			bumpLogLevel(false)
		default:
			return setLogLevel(arg)
		}
		return nil
	})

	colorChoices := map[string]bool{
		"auto":   color.NoColor,
		"never":  true,
		"always": false,
	}
	choiceFlag(&color.NoColor, "color", colorChoices, "auto", "Output colors according to `mode`.")

	objChoices := map[string]cutselect.ObjectiveMode{
		"og":      cutselect.ObjOriginal,
		"inv":     cutselect.ObjInv,
		"area":    cutselect.ObjArea,
		"depth":   cutselect.ObjDepth,
		"overall": cutselect.ObjOverall,
	}
	choiceFlag(&cfg.objective, "objective", objChoices, "area", "Optimize for `mode`.")

	flag.StringVar(&cfg.cutsPath, "cuts", "", "Path to the cuts catalog (JSON, or a netlist an external enumerator can convert).")
	flag.StringVar(&cfg.outPath, "out", "", "Path to write the chosen-cuts JSON to.")
	flag.IntVar(&cfg.cutSize, "cut-size", 0, "Cut-size hint forwarded to the external cut enumerator, if one is invoked.")
	flag.StringVar(&cfg.binHint, "cut-enum-bin", "", "Path to the external cut-enumeration binary.")

	help := func(string) error {
		flag.CommandLine.SetOutput(os.Stdout)
		flag.Usage()
		os.Exit(0)
		return nil
	}
	flag.BoolFunc("h", "Print usage information and exit.", help)
	flag.BoolFunc("help", "Print usage information and exit.", help)
	flag.Parse()

	if cfg.cutsPath == "" {
		log.Fatal("-cuts is required")
	}
	if cfg.outPath == "" {
		log.Fatal("-out is required")
	}
	return cfg
}

func run(ctx context.Context, cfg *config) (cutselect.Result, error) {
	src, err := cutselect.ResolveCatalogSource(ctx, cfg.cutsPath, cfg.binHint, cutSizeArg(cfg.cutSize))
	if err != nil {
		return cutselect.Result{}, err
	}
	defer src.Close()
	cat, err := cutselect.LoadReader(ctx, src)
	if err != nil {
		return cutselect.Result{}, err
	}
	return cutselect.Solve(ctx, cat, cutselect.Objective{Mode: cfg.objective}, cfg.outPath)
}

func cutSizeArg(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := parseFlags()

	statusf := color.New(color.FgHiCyan).SprintfFunc()

	res, err := run(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "cut selection failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(statusf("status: %s", res.Status))
	if res.ObjectiveValue != nil {
		fmt.Printf("objective value: %d\n", *res.ObjectiveValue)
	}
	if res.PhaseADepth != nil {
		fmt.Printf("phase A depth: %d\n", *res.PhaseADepth)
	}
	if res.PhaseBTiebreak != nil {
		fmt.Printf("phase B tiebreak: %d\n", *res.PhaseBTiebreak)
	}

	switch res.Status {
	case cutselect.StatusOptimal, cutselect.StatusFeasible:
		os.Exit(0)
	default:
		slog.ErrorContext(ctx, "no feasible cover found", "status", res.Status)
		os.Exit(1)
	}
}
