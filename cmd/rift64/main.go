package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/riftjit/rift64/config"
	"github.com/riftjit/rift64/core"
	"github.com/riftjit/rift64/guestmem"
	"github.com/riftjit/rift64/state"
)

// Version information, overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to a TOML config file (default: platform config dir)")
		entryFlag   = flag.String("entry", "", "Entry point address (hex or decimal, default: the code segment base)")
		maxSteps    = flag.Int("max-steps", 0, "Maximum translated blocks to run before stopping (0: unlimited)")
		statsOut    = flag.Bool("stats", false, "Print a statistics snapshot to stderr at exit")
		traceOut    = flag.String("trace-file", "", "Write a per-block execution trace to this file")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("rift64 %s (%s)\n", Version, Commit)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: rift64 [flags] <raw-guest-image>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *configPath, *entryFlag, *maxSteps, *statsOut, *traceOut); err != nil {
		fmt.Fprintf(os.Stderr, "rift64: %v\n", err)
		os.Exit(1)
	}
}

func run(imagePath, configPath, entryFlag string, maxSteps int, printStats bool, traceFile string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading guest image: %w", err)
	}

	mem, err := guestmem.NewDefault()
	if err != nil {
		return fmt.Errorf("mapping guest address space: %w", err)
	}
	defer mem.Close()

	entry := uint64(guestmem.CodeSegmentStart)
	if entryFlag != "" {
		entry, err = parseAddress(entryFlag)
		if err != nil {
			return fmt.Errorf("parsing -entry: %w", err)
		}
	}
	if err := mem.LoadImage(entry, image); err != nil {
		return fmt.Errorf("loading guest image: %w", err)
	}

	var trace *core.Trace
	var traceHandle *os.File
	if traceFile != "" {
		traceHandle, err = os.Create(traceFile)
		if err != nil {
			return fmt.Errorf("opening trace file: %w", err)
		}
		defer traceHandle.Close()
		trace = core.NewTrace(cfg.Trace.MaxEntries, traceHandle)
	} else if cfg.Trace.Enabled {
		trace = core.NewTrace(cfg.Trace.MaxEntries, nil)
	}

	ctx, err := core.New(core.Options{
		CodeCacheBytes:       cfg.JIT.CodeCacheBytes,
		TranslationTableSize: cfg.JIT.TranslationTableSize,
		MaxBlockInstructions: cfg.JIT.MaxBlockInstructions,
		EnableChaining:       cfg.Execution.EnableChaining,
		Trace:                trace,
	})
	if err != nil {
		return fmt.Errorf("initializing JIT context: %w", err)
	}
	defer ctx.Close()

	ts := &state.ThreadState{PC: entry}
	ts.SP = guestmem.StackSegmentStart + guestmem.StackSegmentSize
	ts.General[30] = cfg.Execution.StopSentinel

	if maxSteps == 0 {
		maxSteps = -1
	}
	result, dispatchErr := ctx.Dispatch(mem, ts, maxSteps)

	if printStats {
		printSnapshot(ctx.Snapshot())
	}

	if dispatchErr != nil {
		if trap, ok := dispatchErr.(*core.ErrGuestTrap); ok {
			return fmt.Errorf("guest trap: %v", trap)
		}
		return dispatchErr
	}
	if result.Exited && result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func parseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	return strconv.ParseUint(s, base, 64)
}

func printSnapshot(snap core.Snapshot) {
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(snap)
}
