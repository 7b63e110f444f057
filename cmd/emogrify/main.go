package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"emogrify/internal/config"
	"emogrify/pkg/inliner"
)

const appName = "emogrify"

// env is the program state shared by the command hooks.
type env struct {
	cfg      config.Config
	log      *zap.Logger
	closeLog func() error
	start    time.Time
}

type envKey struct{}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &env{cfg: config.Default(), log: zap.NewNop(), start: time.Now()})
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	return &env{cfg: config.Default(), log: zap.NewNop(), start: time.Now()}
}

// initializeAppContext loads configuration and prepares logging after the
// command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error
	e := envFromContext(ctx)

	if configFile := cmd.String("config"); configFile != "" {
		if e.cfg, err = config.Load(configFile); err != nil {
			return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
		}
	}
	if cmd.Bool("debug") {
		e.cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if cmd.IsSet("target") {
		e.cfg.TargetEmailClient = cmd.String("target")
		e.cfg.EmailClientOptimizations = true
	}

	// stdout may carry the document, console logging always goes to stderr
	if e.log, e.closeLog, err = e.cfg.Logging.Prepare(os.Stderr); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}

	e.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	if cmd.String("config") == "" {
		e.log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	e := envFromContext(ctx)

	e.log.Debug("Program ended", zap.Duration("elapsed", time.Since(e.start)), zap.Strings("parsed args", cmd.Args().Slice()))
	// syncing a console logger on a terminal may fail, it is not worth reporting
	_ = e.log.Sync()
	if e.closeLog != nil {
		if er := e.closeLog(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close log file: %w", er))
		}
	}
	return
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	e := envFromContext(ctx)
	if e.closeLog != nil {
		e.log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:           appName,
		Usage:          "inlines CSS into HTML for email clients",
		ArgsUsage:      "[INPUT]",
		Before:         initializeAppContext,
		After:          destroyAppContext,
		ExitErrHandler: exitErrHandler,
		Action:         run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log debug information to stderr"},
			&cli.StringSliceFlag{Name: "css", Usage: "apply CSS from `FILE` before the document's own <style> elements, may be repeated"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write result to `FILE` instead of stdout"},
			&cli.StringSliceFlag{Name: "unprocessable-tag", Usage: "remove empty elements with this `TAG`, may be repeated"},
			&cli.StringFlag{Name: "target", Usage: "validate against email `CLIENT` (outlook, gmail, apple_mail, outlook_online, generic)"},
			&cli.StringFlag{Name: "input-dir", Usage: "process all HTML files under `DIR`"},
			&cli.StringFlag{Name: "output-dir", Usage: "write batch results to `DIR`"},
			&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Value: runtime.NumCPU(), Usage: "files processed concurrently in batch mode"},
			&cli.BoolFlag{Name: "stats", Usage: "show processing statistics on stderr"},
		},
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

// run routes to the appropriate processing mode
func run(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	inputFile := cmd.Args().First()
	inputDir, outputDir := cmd.String("input-dir"), cmd.String("output-dir")
	switch {
	case cmd.NArg() > 1:
		return fmt.Errorf("too many arguments: %s", strings.Join(cmd.Args().Slice(), " "))
	case inputFile != "" && inputDir != "":
		return fmt.Errorf("cannot specify both INPUT and --input-dir")
	case inputDir != "" && outputDir == "":
		return fmt.Errorf("--output-dir required when using --input-dir")
	}

	extraCSS, err := readCSS(cmd.StringSlice("css"))
	if err != nil {
		return err
	}
	tags := cmd.StringSlice("unprocessable-tag")
	newInliner := func() *inliner.Inliner {
		in := inliner.New(e.cfg, e.log)
		in.SetCSS(extraCSS)
		for _, tag := range tags {
			in.AddUnprocessableTag(tag)
		}
		return in
	}

	if inputDir != "" {
		total, err := runBatch(ctx, e.log, batch{
			inputDir:   inputDir,
			outputDir:  outputDir,
			jobs:       cmd.Int("jobs"),
			newInliner: newInliner,
		})
		if cmd.Bool("stats") {
			showProcessingStats(os.Stderr, total, inputDir)
		}
		return err
	}

	var (
		input []byte
		name  = inputFile
	)
	if inputFile == "" {
		name = "<stdin>"
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, err = os.ReadFile(inputFile)
	}
	if err != nil {
		return fmt.Errorf("failed to read input %s: %w", name, err)
	}

	result, err := newInliner().Inline(string(input))
	if err != nil {
		return fmt.Errorf("failed to inline CSS: %w", err)
	}
	if err := writeOutput(result.HTML, cmd.String("output")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	reportResult(e.log, name, result)
	if cmd.Bool("stats") {
		showProcessingStats(os.Stderr, result.Stats, name)
	}
	return nil
}

// readCSS concatenates CSS files in the given order.
func readCSS(files []string) (string, error) {
	var sb strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("failed to read CSS file %s: %w", f, err)
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// writeOutput writes content to a file or stdout
func writeOutput(content, filename string) error {
	if filename == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// reportResult logs skipped CSS and compatibility warnings of one document.
func reportResult(log *zap.Logger, name string, result *inliner.Result) {
	for _, issue := range result.Issues {
		log.Warn("Skipped CSS", zap.String("file", name), zap.Error(issue))
	}
	for _, w := range result.Warnings {
		log.Warn("Compatibility warning", zap.String("file", name), zap.Stringer("warning", w))
	}
}

// showProcessingStats displays processing statistics
func showProcessingStats(w io.Writer, stats inliner.Stats, name string) {
	fmt.Fprintf(w, "\nProcessing Statistics for %s:\n", name)
	fmt.Fprintf(w, "  CSS rules parsed: %d\n", stats.CSSRulesParsed)
	fmt.Fprintf(w, "  Preserved blocks: %d\n", stats.PreservedBlocks)
	fmt.Fprintf(w, "  HTML elements processed: %d\n", stats.HTMLElementsProcessed)
	fmt.Fprintf(w, "  Elements styled: %d\n", stats.ElementsStyled)
	fmt.Fprintf(w, "  Selectors matched: %d\n", stats.SelectorsMatched)
	fmt.Fprintf(w, "  Unprocessable tags removed: %d\n", stats.UnprocessableRemoved)
	fmt.Fprintf(w, "  Processing time: %dms\n", stats.ProcessingTimeMs)
}
