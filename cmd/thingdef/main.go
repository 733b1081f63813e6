// thingdef compiles DECORATE actor definitions and writes the disassembly
// dumps and the compiled image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/thingdef/image"
	"github.com/chazu/thingdef/lumps"
	"github.com/chazu/thingdef/manifest"
	"github.com/chazu/thingdef/thingdef"
)

var log = commonlog.GetLogger("thingdef.cmd")

func main() {
	dir := flag.String("C", ".", "Project directory (searched upwards for thingdef.toml)")
	lump := flag.String("lump", "", "Lump name to look for (default from manifest, else DECORATE)")
	disasm := flag.String("disasm", "", "Write a text disassembly to this file")
	database := flag.String("db", "", "Store the disassembly in this SQLite database")
	output := flag.String("o", "", "Write the compiled image to this file")
	verbosity := flag.Int("v", -1, "Log verbosity (0 = errors only, 2 = debug)")
	logFile := flag.String("log", "", "Log to this file instead of stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: thingdef [options] [paths...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles the DECORATE lumps found in the given directories, archives and files.\n")
		fmt.Fprintf(os.Stderr, "Without paths, the sources listed in thingdef.toml are used.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  thingdef                           # Build the project in the current directory\n")
		fmt.Fprintf(os.Stderr, "  thingdef -disasm disasm.txt mod.pk3\n")
		fmt.Fprintf(os.Stderr, "  thingdef -o actors.img -db runs.db ./actors\n")
	}
	flag.Parse()

	m, err := loadManifest(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the manifest.
	if *lump != "" {
		m.Sources.Lump = *lump
	}
	if *verbosity >= 0 {
		m.Log.Verbosity = *verbosity
	}
	logPath := m.LogPath()
	if *logFile != "" {
		logPath = *logFile
	}
	if logPath == "" {
		commonlog.Configure(m.Log.Verbosity, nil)
	} else {
		commonlog.Configure(m.Log.Verbosity, &logPath)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		paths = m.SourcePaths()
	}

	if err := run(m, paths, pick(*disasm, m.DisasmPath()), pick(*database, m.DatabasePath()), pick(*output, m.ImagePath())); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(dir)
	}
	return m, nil
}

func pick(flagValue, configured string) string {
	if flagValue != "" {
		return flagValue
	}
	return configured
}

func run(m *manifest.Manifest, paths []string, disasmPath, dbPath, imagePath string) error {
	sources, err := lumps.Find(paths, m.Sources.Lump)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no %s lumps found", m.Sources.Lump)
	}

	ctx := thingdef.NewContext()

	var sinks thingdef.MultiDump
	if disasmPath != "" {
		f, err := os.Create(disasmPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", disasmPath, err)
		}
		defer f.Close()
		sinks = append(sinks, thingdef.NewTextDump(f))
	}
	if dbPath != "" {
		db, err := thingdef.NewSQLiteDump(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}
	if len(sinks) > 0 {
		ctx.Dump = sinks
	}

	err = ctx.RunCompilation(sources)
	var fatal *thingdef.FatalError
	if errors.As(err, &fatal) {
		for _, d := range ctx.Diag.Errors() {
			fmt.Fprintln(os.Stderr, d)
		}
		return fatal
	}
	if err != nil {
		return err
	}

	if imagePath != "" {
		img, err := image.Build(ctx.Registry, ctx.RunID)
		if err != nil {
			return err
		}
		if err := image.WriteFile(imagePath, img); err != nil {
			return err
		}
		log.Infof("wrote %s", imagePath)
	}
	return nil
}
