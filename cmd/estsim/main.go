/* Scenario replay driver for the channel estimation engine */
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	chanest "github.com/softmodem/chanest/src"
)

func main() {
	var scenarioPath = pflag.StringP("scenario", "s", "", "Scenario YAML file (required).")
	var tracePath = pflag.StringP("trace", "t", "", "Write a CSV trace of every tick to this file.")
	var traceDir = pflag.StringP("tracedir", "d", "", "Write daily-named CSV traces into this directory. Use one of -t/-d but not both.")
	var verbose = pflag.BoolP("verbose", "v", false, "Debug logging.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "estsim - clock a channel estimation scenario to completion\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	if *scenarioPath == "" {
		fmt.Fprintf(os.Stderr, "A scenario file is required.\n\n")
		pflag.Usage()
		os.Exit(1)
	}

	if *tracePath != "" && *traceDir != "" {
		fmt.Fprintf(os.Stderr, "Use -t or -d but not both.\n\n")
		pflag.Usage()
		os.Exit(1)
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	var scenario, loadErr = chanest.LoadScenario(*scenarioPath)
	if loadErr != nil {
		log.Fatal("Scenario load failed", "error", loadErr)
	}

	var cfg = scenario.Config()

	log.Info("Scenario loaded",
		"name", scenario.Name,
		"pilots", cfg.NumPilots,
		"channels", cfg.NumChannels,
		"training", scenario.Training)

	var engine, engineErr = chanest.NewEstimator(cfg)
	if engineErr != nil {
		log.Fatal("Engine construction failed", "error", engineErr)
	}

	var trace *chanest.TraceWriter

	if *tracePath != "" || *traceDir != "" {
		var dest = *tracePath
		if *traceDir != "" {
			dest = *traceDir
		}

		var twErr error

		trace, twErr = chanest.NewTraceWriter(*traceDir != "", dest, cfg.NumChannels)
		if twErr != nil {
			log.Fatal("Trace setup failed", "error", twErr)
		}

		defer trace.Close()
	}

	var in = scenario.Inputs()
	var out chanest.Outputs

	for tick := 0; tick < engine.CycleTicks(scenario.Training); tick++ {
		out = engine.Step(in)

		// The request is a pulse; drop it once the engine has seen it.
		in.EstimationEnable = false

		log.Debug("tick", "n", tick, "state", out.State, "pilot", out.PilotIndex)

		if trace != nil {
			if err := trace.Write(tick, out); err != nil {
				log.Fatal("Trace write failed", "error", err)
			}
		}
	}

	if !out.EstimationValid {
		log.Fatal("Cycle finished without asserting estimation_valid - engine bug")
	}

	if out.OverflowFlag {
		log.Warn("Accumulator overflow during this cycle; estimates wrapped")
	}

	for i, est := range out.Estimates {
		fmt.Printf("channel %d: estimate = %6d (%+.4f)\n", i, est, float64(est)/chanest.Q10_ONE)
	}

	if scenario.Training {
		for i, e := range out.Errors {
			fmt.Printf("channel %d: error    = %6d (%+.4f)\n", i, e, float64(e)/chanest.Q10_ONE)
		}

		fmt.Printf("mean squared error = %d\n", out.MeanSquaredError)
	}
}
