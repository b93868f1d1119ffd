package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/config"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/dataset"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/monitoring"
	urfave "github.com/urfave/cli/v2"
)

var (
	version = "v0.0.1-default"

	errNoModel = errors.New("no model available")

	dataFlag = &urfave.StringFlag{
		Name:    "data",
		Usage:   "Path to the comma separated dataset",
		Value:   dataset.DefaultPath,
		EnvVars: []string{config.EnvPrefix + "_DATASET_PATH"},
	}

	likelihoodFlag = &urfave.BoolFlag{
		Name:  "likelihood",
		Usage: "Also print the likelihood percentage (optional, default: false)",
	}

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs to stderr (optional, default: false)",
	}

	outFlag = &urfave.StringFlag{
		Name:     "out",
		Usage:    "Destination JSON file for the model",
		Required: true,
	}
)

func newApp() *urfave.App {
	return &urfave.App{
		Name:            "predict",
		Version:         version,
		HideHelpCommand: true,
		Usage:           "Reads eight feature values from stdin and prints 1 (likely diabetic) or 0",
		UsageText: `echo "6 148 72 35 0 33.6 0.627 50" | predict
   echo "6,148,72,35,0,33.6,0.627,50" | predict --data pima.csv --likelihood`,
		Flags: []urfave.Flag{
			dataFlag,
			likelihoodFlag,
			debugFlag,
		},
		Before: func(c *urfave.Context) error {
			initLogging(c.App.ErrWriter, c.Bool(debugFlag.Name))
			return nil
		},
		Action: cmdPredict,
		Commands: []*urfave.Command{
			statsCmd,
			weightsCmd,
			exportCmd,
		},
	}
}

var (
	statsCmd = &urfave.Command{
		Name:   "stats",
		Usage:  "Print per-feature dataset statistics as JSON",
		Action: cmdStats,
	}

	weightsCmd = &urfave.Command{
		Name:   "weights",
		Usage:  "Print the derived model parameters as JSON",
		Action: cmdWeights,
	}

	exportCmd = &urfave.Command{
		Name:      "export",
		Usage:     "Save the derived model to a JSON file",
		UsageText: "predict export --out models/diabetes.json",
		Flags:     []urfave.Flag{outFlag},
		Action:    cmdExport,
	}
)

func initLogging(w io.Writer, debug bool) {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(monitoring.NewLoggerWithWriter(w, level).Logger)
}

// cmdPredict prints nothing when no model can be built or the input line
// is not a valid sample; both are reported on stderr only.
func cmdPredict(c *urfave.Context) error {
	model, ok, err := analysis.BuildModel(dataset.NewCSVSource(c.String(dataFlag.Name)))
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	if !ok {
		return nil
	}

	line, err := readLine(c.App.Reader)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	x, err := dataset.ParseInstance(line)
	if err != nil {
		slog.Warn("Ignoring input line", "error", err)
		return nil
	}

	result, err := analysis.ClassifyWithLikelihood(model.Params, x)
	if err != nil {
		slog.Warn("Ignoring input line", "error", err)
		return nil
	}

	fmt.Fprintln(c.App.Writer, result.Label)
	if c.Bool(likelihoodFlag.Name) {
		fmt.Fprintf(c.App.Writer, "likelihood: %.2f%%\n", *result.LikelihoodPercent)
	}
	return nil
}

func cmdStats(c *urfave.Context) error {
	rows, err := dataset.NewCSVSource(c.String(dataFlag.Name)).Rows()
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	stats, err := analysis.Analyze(rows)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, stats)
}

func cmdWeights(c *urfave.Context) error {
	model, err := requireModel(c)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, model.Params)
}

func cmdExport(c *urfave.Context) error {
	model, err := requireModel(c)
	if err != nil {
		return err
	}

	out := c.String(outFlag.Name)
	name := strings.TrimSuffix(filepath.Base(out), ".json")
	store := analysis.NewModelStore(filepath.Dir(out))
	if err := store.Save(name, &model); err != nil {
		return fmt.Errorf("exporting model: %w", err)
	}

	slog.Info("Model exported", "path", out, "rows", model.Stats.Count)
	return nil
}

func requireModel(c *urfave.Context) (analysis.Model, error) {
	path := c.String(dataFlag.Name)
	model, ok, err := analysis.BuildModel(dataset.NewCSVSource(path))
	if err != nil {
		return analysis.Model{}, fmt.Errorf("loading dataset: %w", err)
	}
	if !ok {
		return analysis.Model{}, fmt.Errorf("%w from %s", errNoModel, path)
	}
	return model, nil
}

func readLine(r io.Reader) (string, error) {
	if r == nil {
		r = os.Stdin
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
