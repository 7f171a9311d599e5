// Command emu32asm assembles one or more EMU32 source files into a
// relocatable E32O object file. Single-shot batch assembly, not a
// REPL: flag parsing follows the teacher's flat main.go idiom (stdlib
// flag, no subcommand framework) rather than a readline/subcommands
// library, since there is no interactive surface here to justify one.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/lookbusy1344/emu32asm/asm"
	"github.com/lookbusy1344/emu32asm/config"
	"github.com/lookbusy1344/emu32asm/object"

	"flag"
)

// Version information, overridable at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	exitOK = iota
	exitAssemblerError
	exitIOError
	exitUsageError
)

// stringList accumulates repeated flag occurrences (-I DIR -I DIR2),
// the multi-value idiom the teacher's own flat-flag main.go never
// needed (it only ever opens one source file).
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// defineList accumulates -D NAME[=VALUE] occurrences into a name/value
// map, splitting on the first '='.
type defineList map[string]string

func (d defineList) String() string {
	parts := make([]string, 0, len(d))
	for k, v := range d {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (d defineList) Set(v string) error {
	name, value, _ := strings.Cut(v, "=")
	if name == "" {
		return fmt.Errorf("-D requires a macro name")
	}
	d[name] = value
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("emu32asm", flag.ContinueOnError)

	var includePaths stringList
	defines := defineList{}

	output := fs.String("o", "", "output object file (default: <source-basename>.o for each source)")
	fs.Var(&includePaths, "I", "add include search path (repeatable)")
	fs.Var(defines, "D", "predefine a preprocessor macro: NAME or NAME=VALUE (repeatable)")
	stopAfterObject := fs.Bool("c", true, "stop after object emission (always true: no linker)")
	warnLevel := fs.String("W", "none", "warning controls: none, all, error")
	showVersion := fs.Bool("v", false, "print version banner and exit")

	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}

	if *showVersion {
		fmt.Printf("emu32asm %s (%s)\n", Version, Commit)
		return exitOK
	}

	sources := fs.Args()
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "usage: emu32asm [options] source.s [source.s ...]")
		fs.PrintDefaults()
		return exitUsageError
	}
	if !*stopAfterObject {
		fmt.Fprintln(os.Stderr, "emu32asm: -c=false requires a linker, which this toolchain does not provide")
		return exitUsageError
	}

	if *output != "" && len(sources) > 1 {
		fmt.Fprintln(os.Stderr, "emu32asm: -o requires a single source file (no linker exists to merge several objects)")
		return exitUsageError
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "emu32asm: config: %v\n", err)
		return exitIOError
	}
	allIncludes := append(append(stringList{}, cfg.Assembler.IncludePaths...), includePaths...)

	treatWarningsAsErrors := *warnLevel == "error"

	// Each source file is its own translation unit (§5: "no shared
	// mutable state across translation units") and, with no linker
	// in scope, emits its own independent object file.
	for _, path := range sources {
		src, err := os.ReadFile(path) // #nosec G304 -- user-specified assembler source path
		if err != nil {
			fmt.Fprintf(os.Stderr, "emu32asm: %v\n", err)
			return exitIOError
		}

		baseDir := "."
		if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
			baseDir = path[:idx]
		}

		obj, a, err := asm.AssembleSourceWithDefines(string(src), path, baseDir, allIncludes, defines)
		if a == nil {
			// Preprocessing failed before an Assembler was even built
			// (e.g. a missing #include): no diagnostics to drain.
			fmt.Fprintf(os.Stderr, "emu32asm: %v\n", err)
			return exitAssemblerError
		}
		for _, d := range a.Diagnostics() {
			if d.Warning && !treatWarningsAsErrors && *warnLevel == "none" {
				continue
			}
			fmt.Fprintln(os.Stderr, d)
		}
		if err != nil {
			return exitAssemblerError
		}
		if treatWarningsAsErrors && a.Status() == asm.StatusWarning {
			return exitAssemblerError
		}

		outPath := *output
		if outPath == "" {
			outPath = firstSourceObjectName(path)
		}
		if outPath == "" {
			outPath = cfg.Assembler.OutputPath
		}

		if err := writeObject(outPath, obj); err != nil {
			fmt.Fprintf(os.Stderr, "emu32asm: %v\n", err)
			return exitIOError
		}
	}

	return exitOK
}

func writeObject(path string, obj *object.Object) (err error) {
	out, err := os.Create(path) // #nosec G304 -- user-specified output path
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return object.Write(out, obj)
}

func firstSourceObjectName(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	if base == "" {
		return ""
	}
	return base + ".o"
}
