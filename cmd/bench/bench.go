// bench runs a batch of repeater chain trials for each entry in the cartesian
// product of a collection of protocol parameters, e.g. hops, arms and loss
// probability, and outputs a CSV of success statistics for each combination.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/alan-christopher/repeater/repeater"
	"github.com/alan-christopher/repeater/repeater/batch"
	"github.com/alan-christopher/repeater/repeater/decode"
)

// newFlagSet defines every flag of bench. Flags left unset fall back to the
// config file, then to DefaultConfig.
func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	fs.String("config", "", "A TOML or YAML file of settings. Flags set explicitly take precedence.")

	fs.IntSlice("hops", nil, "The numbers of Bell-state measurement junctions between Alice and Bob.")
	fs.IntSlice("arms", nil, "The numbers of arms per RGS half.")
	fs.StringSlice("branching", nil, "The tree-code branching vectors, factors joined by 'x', e.g. 3x2.")
	fs.Float64Slice("loss", nil, "The per-photon loss probabilities.")
	fs.StringSlice("strategy", nil, "The decoding strategies: majority or first.")
	fs.StringSlice("tiebreak", nil, "The majority vote tie breakers: random or confidence.")

	fs.Int("trials", 0, "The number of trials per parameter combination.")
	fs.Int("attempts", 0, "The maximum protocol runs per trial.")
	fs.Int64("seed", 0, "The seed of the first parameter combination.")
	fs.Int("workers", 0, "The number of trials to run in parallel. 0 uses every CPU.")
	fs.Bool("skip-verification", false, "Skip the stabilizer checks made while preparing each RGS.")
	fs.String("metrics-addr", "", "If set, serve Prometheus metrics on this address.")
	fs.String("records", "", "If set, append a framed record of every protocol run to this file.")
	fs.String("log-level", "", "The minimum level to log at.")
	return fs
}

var columns = []string{"Hops", "Arms", "Branching", "Loss", "Strategy", "TieBreak",
	"Trials", "Attempts", "Successes", "SuccessRate", "AttemptRate", "AttemptRateLo",
	"AttemptRateHi", "BSMFailures", "DecodeFailures", "Correct", "Incorrect",
	"Unentangled", "LossRate", "Seconds"}

// An Experiment packages together the result of benchmarking a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	Hops      int
	Arms      int
	Branching string
	Loss      float64
	Strategy  string
	TieBreak  string
	Trials    int

	// Fields corresponding to experiment results
	Attempts       int
	Successes      int
	SuccessRate    float64
	AttemptRate    float64
	AttemptRateLo  float64
	AttemptRateHi  float64
	BSMFailures    int
	DecodeFailures int
	Correct        int
	Incorrect      int
	Unentangled    int
	LossRate       float64
	Seconds        float64
}

func main() {
	fs := newFlagSet()
	fs.Parse(os.Args[1:])
	path, _ := fs.GetString("config")
	cfg, err := loadConfig(path, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := newLogger(cfg.LogLevel)
	if err := run(cfg, os.Stdout, logger); err != nil {
		logger.Fatal().Err(err).Msg("benchmark failed")
	}
}

// newLogger returns a console logger on stderr, leaving stdout to the CSV.
func newLogger(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", "bench").Logger()
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		logger = logger.Level(lvl)
	}
	return logger
}

func run(cfg Config, out io.Writer, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var metrics *batch.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := batch.NewMetrics(reg)
		if err != nil {
			return err
		}
		metrics = m
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	var records *repeater.RecordWriter
	if cfg.Records != "" {
		f, err := os.OpenFile(cfg.Records, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		w := bufio.NewWriter(f)
		defer w.Flush()
		records = repeater.NewRecordWriter(w)
	}

	if _, err := fmt.Fprintln(out, header()); err != nil {
		return err
	}
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	args := [][]interface{}{
		values(cfg.Hops),
		values(cfg.Arms),
		values(cfg.Branching),
		values(cfg.Loss),
		values(cfg.Strategies),
		values(cfg.TieBreaks),
	}
	seed := cfg.Seed
	var runErr error
	applyCartesian(func(args []interface{}) {
		if runErr != nil {
			return
		}
		exp := &Experiment{
			Hops:      args[0].(int),
			Arms:      args[1].(int),
			Branching: formatBranching(args[2].([]int)),
			Loss:      args[3].(float64),
			Strategy:  args[4].(string),
			TieBreak:  args[5].(string),
			Trials:    cfg.Trials,
		}
		opts, err := batchOpts(cfg, args)
		if err != nil {
			runErr = err
			return
		}
		opts.Seed = seed
		opts.Logger = &logger
		opts.Metrics = metrics
		opts.Records = records
		seed++
		if err := bench(ctx, exp, opts); err != nil {
			runErr = fmt.Errorf("benching %+v: %w", exp, err)
			return
		}
		if err := tmpl.Execute(out, exp); err != nil {
			runErr = fmt.Errorf("BUG: could not fill in line template: %w", err)
		}
	}, args)
	return runErr
}

func batchOpts(cfg Config, args []interface{}) (batch.Opts, error) {
	strategy, err := decode.ParseStrategy(args[4].(string))
	if err != nil {
		return batch.Opts{}, err
	}
	tieBreak, err := decode.ParseTieBreaker(args[5].(string))
	if err != nil {
		return batch.Opts{}, err
	}
	return batch.Opts{
		Protocol: repeater.ProtocolOpts{
			Hops:             args[0].(int),
			Arms:             args[1].(int),
			Branching:        args[2].([]int),
			LossProbability:  args[3].(float64),
			Strategy:         strategy,
			TieBreak:         tieBreak,
			SkipVerification: cfg.SkipVerification,
		},
		Trials:      cfg.Trials,
		MaxAttempts: cfg.MaxAttempts,
		Workers:     cfg.Workers,
		RunID:       uuid.NewString(),
	}, nil
}

func bench(ctx context.Context, exp *Experiment, opts batch.Opts) error {
	start := time.Now()
	s, err := batch.Run(ctx, opts)
	if err != nil {
		return err
	}
	exp.Seconds = time.Since(start).Seconds()
	exp.Attempts = s.Attempts
	exp.Successes = s.Successes
	exp.SuccessRate = s.SuccessRate()
	exp.AttemptRate = s.AttemptSuccessRate()
	exp.AttemptRateLo, exp.AttemptRateHi = s.Wilson(0.95)
	exp.BSMFailures = s.BSMFailures
	exp.DecodeFailures = s.DecodeFailures
	exp.Correct = s.Correct
	exp.Incorrect = s.Incorrect
	exp.Unentangled = s.Unentangled
	exp.LossRate = s.LossRate()
	return nil
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func values[T any](xs []T) []interface{} {
	r := make([]interface{}, 0, len(xs))
	for _, x := range xs {
		r = append(r, x)
	}
	return r
}

func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
