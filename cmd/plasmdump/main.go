// Command plasmdump prints a structured summary of a .plasm assembly
// file: its types, fields and methods, and (best effort) the names of
// the types each field, parameter and return value refers to (§6).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/PuraLingua/pura-lingua-sub001/assemblyio"
	"github.com/PuraLingua/pura-lingua-sub001/stdlib"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

var program = filepath.Base(os.Args[0])

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
	log.SetPrefix("")
}

// Main decodes the assembly named by --file and writes its summary to
// w in the format named by --kind. The only supported kind is "json".
func Main(ctx context.Context, w io.Writer, args []string) error {
	flags := flag.NewFlagSet(program, flag.ExitOnError)

	var file, kind string
	var help bool
	flags.BoolVar(&help, "h", false, "Show this message and exit.")
	flags.StringVar(&file, "file", "", "Path to the .plasm assembly file to dump.")
	flags.StringVar(&kind, "kind", "json", "Output format. Only \"json\" is supported.")

	flags.Usage = func() {
		log.Printf("Usage:\n  %s --file FILE [--kind json]\n\n", program)
		flags.PrintDefaults()
		os.Exit(2)
	}

	if err := flags.Parse(args); err != nil || help {
		flags.Usage()
	}

	if file == "" {
		flags.Usage()
	}

	if kind != "json" {
		return fmt.Errorf("unsupported --kind %q: only \"json\" is supported", kind)
	}

	mgr := typesystem.NewAssemblyManager()
	if _, err := stdlib.Build(mgr); err != nil {
		return fmt.Errorf("build standard library: %w", err)
	}

	asm, err := assemblyio.Load(file, mgr)
	if err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}

	dump := dumpAssembly(mgr, asm)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("encode %s: %w", file, err)
	}

	return nil
}

func main() {
	err := Main(context.Background(), os.Stdout, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}
