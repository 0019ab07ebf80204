package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kestrel-js/kestrel"
	"github.com/kestrel-js/kestrel/oracle"
	"github.com/kestrel-js/kestrel/scenario"
)

// errFailed is returned when scenarios ran but some of them failed; the
// details have already been printed.
var errFailed = errors.New("some scenarios failed")

type rootOptions struct {
	config     string
	match      string
	verbose    bool
	cpuprofile string

	logger zerolog.Logger
	stop   func()
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "kestrel",
		Short:         "Replay property-operation scenarios on the kestrel object engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			opts.logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()
			if opts.cpuprofile != "" {
				f, err := os.Create(opts.cpuprofile)
				if err != nil {
					return err
				}
				if err := pprof.StartCPUProfile(f); err != nil {
					f.Close()
					return err
				}
				opts.stop = func() {
					pprof.StopCPUProfile()
					f.Close()
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.stop != nil {
				opts.stop()
			}
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.config, "config", "", "engine config file (YAML)")
	pf.StringVar(&opts.match, "match", "", "only scenarios whose name matches this ECMAScript regular expression")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&opts.cpuprofile, "cpuprofile", "", "write cpu profile to file")

	cmd.AddCommand(newRunCommand(opts), newShapesCommand(opts), newStatsCommand(opts))
	return cmd
}

func (opts *rootOptions) engineOptions() ([]kestrel.Option, error) {
	res := []kestrel.Option{kestrel.WithLogger(opts.logger)}
	if opts.config != "" {
		cfg, err := kestrel.LoadConfig(opts.config)
		if err != nil {
			return nil, err
		}
		res = append(res, kestrel.WithConfig(cfg))
	}
	return res, nil
}

// load reads the scenario files and directories in paths, keeping the ones
// that match --match and support this version.
func (opts *rootOptions) load(paths []string) ([]*scenario.Scenario, error) {
	var list []*scenario.Scenario
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if fi.IsDir() {
			l, err := scenario.LoadDir(p)
			if err != nil {
				return nil, err
			}
			list = append(list, l...)
			continue
		}
		s, err := scenario.Load(p)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	scenario.Sort(list)
	list, err := scenario.Match(list, opts.match)
	if err != nil {
		return nil, err
	}
	res := list[:0]
	for _, s := range list {
		ok, err := s.Supported()
		if err != nil {
			return nil, err
		}
		if !ok {
			opts.logger.Info().Str("scenario", s.Name).Str("requires", s.Requires).Str("version", kestrel.Version).Msg("skipping scenario")
			continue
		}
		res = append(res, s)
	}
	return res, nil
}

func newRunCommand(root *rootOptions) *cobra.Command {
	var useOracle, asJSON bool
	cmd := &cobra.Command{
		Use:   "run <scenario file or dir>...",
		Short: "Run scenarios and report expectation failures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := root.load(args)
			if err != nil {
				return err
			}
			engineOpts, err := root.engineOptions()
			if err != nil {
				return err
			}
			var orc *oracle.Oracle
			if useOracle {
				orc = oracle.New(root.logger)
			}
			out := cmd.OutOrStdout()
			var results []*scenario.Result
			failed := 0
			for _, s := range list {
				var res *scenario.Result
				var diffs []string
				if orc != nil {
					res, diffs, err = orc.Check(s, engineOpts...)
				} else {
					res, err = scenario.Run(s, engineOpts...)
				}
				if err != nil {
					return err
				}
				for _, d := range diffs {
					res.Failures = append(res.Failures, "oracle: "+d)
				}
				if !res.Passed() {
					failed++
				}
				if asJSON {
					results = append(results, res)
					continue
				}
				status := "ok"
				if !res.Passed() {
					status = "FAIL"
				}
				fmt.Fprintf(out, "%-4s %s\n", status, s.Name)
				for _, f := range res.Failures {
					fmt.Fprintf(out, "     %s\n", f)
				}
			}
			if asJSON {
				b, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			}
			root.logger.Debug().Int("scenarios", len(list)).Int("failed", failed).Msg("run finished")
			if failed > 0 {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useOracle, "oracle", false, "also run every scenario on goja and compare")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

// replay runs every scenario on one engine so that they share a shape graph.
func (opts *rootOptions) replay(args []string) (*kestrel.Engine, []*scenario.Result, error) {
	list, err := opts.load(args)
	if err != nil {
		return nil, nil, err
	}
	engineOpts, err := opts.engineOptions()
	if err != nil {
		return nil, nil, err
	}
	e := kestrel.New(engineOpts...)
	var results []*scenario.Result
	for _, s := range list {
		res, err := scenario.RunOn(e, s)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, res)
	}
	return e, results, nil
}

func newShapesCommand(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "shapes <scenario file or dir>...",
		Short: "Replay scenarios on one engine and write its shape graph as a pprof profile",
		Long: `Replay scenarios on one engine and write its shape graph as a pprof profile.

Every shape is a sample whose stack is the transition path from the empty
shape. Inspect it with:
  go tool pprof -traces shapes.pb.gz
  go tool pprof -http=: shapes.pb.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := root.replay(args)
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := e.Shapes().WriteProfile(f); err != nil {
				f.Close()
				return err
			}
			root.logger.Info().Str("file", output).Int("shapes", e.Shapes().Stats().Nodes).Msg("shape profile written")
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "shapes.pb.gz", "profile file")
	return cmd
}

func newStatsCommand(root *rootOptions) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "stats <scenario file or dir>...",
		Short: "Replay scenarios on one engine and print shape graph and inline cache statistics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := language.Parse(lang)
			if err != nil {
				return err
			}
			e, results, err := root.replay(args)
			if err != nil {
				return err
			}
			printStats(message.NewPrinter(tag), cmd.OutOrStdout(), e, results)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "language used to format numbers")
	return cmd
}

func printStats(p *message.Printer, w io.Writer, e *kestrel.Engine, results []*scenario.Result) {
	st := e.Shapes().Stats()
	p.Fprintf(w, "scenarios:          %d\n", len(results))
	p.Fprintf(w, "shapes:             %d\n", st.Nodes)
	p.Fprintf(w, "transition hits:    %d\n", st.TransitionHits)
	p.Fprintf(w, "transition misses:  %d\n", st.TransitionMisses)
	p.Fprintf(w, "materializations:   %d\n", st.Materializations)
	p.Fprintf(w, "lazy walk steps:    %d\n", st.WalkSteps)
	for _, res := range results {
		for _, c := range res.Caches {
			ratio := 0.0
			if total := c.Hits + c.Misses; total > 0 {
				ratio = float64(c.Hits) / float64(total)
			}
			p.Fprintf(w, "cache %s/%s: %s, %d hits, %d misses (%.1f%%)\n", res.Name, c.ID, c.State, c.Hits, c.Misses, ratio*100)
		}
	}
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(64)
	}
}
