// Command pfdbg is the CLI entry point for the polyfile debugger: it
// loads a byte buffer and a reference magic-rule file, wires the
// reference engine's illustrative format parsers, and runs the Debugger
// to completion.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	pfdbg "github.com/polyfile/pfdbg"
	"github.com/polyfile/pfdbg/debugger"
	"github.com/polyfile/pfdbg/magic"
)

func main() {
	cmd := &cli.Command{
		Name:  "pfdbg",
		Usage: "interactive debugger for a libmagic-style file-identification engine",
		Commands: []*cli.Command{
			debugCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func debugCommand() *cli.Command {
	return &cli.Command{
		Name:      "debug",
		Usage:     "debug the reference magic engine's evaluation of a file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rules",
				Usage:   "path to a magic rule file (defaults to a tiny built-in set)",
				Sources: cli.EnvVars("PFDBG_RULES"),
			},
			&cli.BoolFlag{
				Name:    "break-on-parsing",
				Usage:   "hand off to an external debugger before each submatch parser runs",
				Sources: cli.EnvVars("PFDBG_BREAK_ON_PARSING"),
			},
			&cli.StringFlag{
				Name:    "history-file",
				Usage:   "path to the REPL command history file",
				Sources: cli.EnvVars("PFDBG_HISTORY_FILE"),
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "enable debug-level logging of instrumentation events",
			},
		},
		Action: runDebug,
	}
}

func runDebug(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	if args.Len() != 1 {
		return errors.New("pfdbg debug: expected exactly one FILE argument")
	}

	data, err := os.ReadFile(args.First())
	if err != nil {
		return fmt.Errorf("pfdbg: reading %s: %w", args.First(), err)
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cmd.Bool("debug-log") {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerCfg := zap.NewDevelopmentConfig()
	loggerCfg.Level = level

	logger, err := loggerCfg.Build()
	if err != nil {
		return fmt.Errorf("pfdbg: building logger: %w", err)
	}

	defer logger.Sync() //nolint:errcheck

	cfg, err := pfdbg.LoadConfig(".")
	if err != nil && !errors.Is(err, pfdbg.ErrConfigNotFound) {
		logger.Warn("failed to load .pfdbg.yaml", zap.Error(err))
		cfg = &pfdbg.Config{}
	} else if err != nil {
		cfg = &pfdbg.Config{}
	}

	rulesPath := cmd.String("rules")

	var rulesText []byte

	if rulesPath == "" {
		rulesText = []byte(defaultRules)
		rulesPath = "<built-in>"
	} else {
		rulesText, err = os.ReadFile(rulesPath)
		if err != nil {
			return fmt.Errorf("pfdbg: reading rules %s: %w", rulesPath, err)
		}
	}

	roots, err := magic.ParseRules(rulesPath, rulesText)
	if err != nil {
		return fmt.Errorf("pfdbg: %w", err)
	}

	engine := magic.NewEngine(roots)
	engine.RegisterParser("application/zip", magic.ZipParser{})
	engine.RegisterParser("application/pdf", magic.PDFParser{})

	breakOnParsing := cmd.Bool("break-on-parsing")
	if cfg.BreakOnParsing != nil {
		breakOnParsing = *cfg.BreakOnParsing
	}

	historyPath := cmd.String("history-file")
	if historyPath == "" {
		historyPath = cfg.HistoryFile
	}

	dbg := debugger.New(engine, debugger.Options{
		Out:            os.Stdout,
		In:             os.Stdin,
		Logger:         logger,
		HistoryPath:    historyPath,
		BreakOnParsing: breakOnParsing,
		Breakpoints:    cfg.Breakpoints,
		Source:         args.First(),
	})

	dbg.Enter()
	defer dbg.Exit()

	test, result, err := engine.Run(data)
	if err != nil {
		return fmt.Errorf("pfdbg: %w", err)
	}

	if test == nil {
		fmt.Println("no test matched")
		return nil
	}

	if magic.IsMatched(result) {
		fmt.Printf("matched: %s\n", test.Message())
	} else {
		fmt.Printf("failed: %s\n", test.Message())
	}

	return nil
}

// defaultRules is a minimal built-in rule set exercising string and
// numeric comparison tests, used when --rules is not given.
const defaultRules = `0	string	PK\x03\x04	Zip archive data
!:mime	application/zip
!:ext	zip
0	string	%PDF-	PDF document
!:mime	application/pdf
!:ext	pdf
0	byte	value==0x7f	ELF-like byte marker
`
