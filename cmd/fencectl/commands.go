package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/replay"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 2 * time.Minute
	serverEnv      = "FENCECTL_SERVER"
)

type rootOptions struct {
	server  string
	timeout time.Duration
	verbose bool
}

func (o *rootOptions) client() *replay.Client {
	return replay.NewClient(o.server, replay.WithHTTPClient(&http.Client{Timeout: o.timeout}))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fencectl",
		Short:         "Drive a touchrank server from the command line",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}

	server := os.Getenv(serverEnv)
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "touchrank base URL (env "+serverEnv+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every request")

	root.AddCommand(
		newReplayCmd(opts),
		newEventsCmd(opts),
		newStandingsCmd(opts),
		newPredictCmd(opts),
		newSimulateCmd(opts),
	)
	return root
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	var simulations int
	cmd := &cobra.Command{
		Use:   "replay <fixture.yaml>",
		Short: "Replay a tournament fixture into a new event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("simulations") {
				f.Simulations = simulations
			}

			runner := replay.NewRunner(opts.client(), replay.WithLogger(logger.Get().Named("replay")))
			res, err := runner.Run(cmd.Context(), f)
			if res != nil && res.Event.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "event %s (%s)\n\n", res.Event.Name, res.Event.ID)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := range res.Pools {
				renderPool(out, &res.Pools[i])
			}
			renderStandings(out, &res.Standings)
			for i := range res.Predictions {
				renderPrediction(out, &res.Predictions[i])
			}
			if res.Simulation != nil {
				renderSimulation(out, res.Simulation)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&simulations, "simulations", "n", 0, "override the fixture's simulation count")
	return cmd
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List open events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := opts.client().Events(cmd.Context())
			if err != nil {
				return err
			}
			renderEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
}

func newStandingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "standings <event-id>",
		Short: "Print the current standings of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client().Standings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderStandings(cmd.OutOrStdout(), &st)
			return nil
		},
	}
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict <event-id> <a> <b>",
		Short: "Predict a bout between two competitors",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.client().Predict(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			renderPrediction(cmd.OutOrStdout(), &p)
			return nil
		},
	}
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		trials int
		seeds  string
	)
	cmd := &cobra.Command{
		Use:   "simulate <event-id>",
		Short: "Simulate the event's bracket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			if seeds != "" {
				if _, err := c.SetBracket(cmd.Context(), args[0], splitSeeds(seeds)); err != nil {
					return err
				}
			}
			res, err := c.Simulate(cmd.Context(), args[0], trials)
			if err != nil {
				return err
			}
			renderSimulation(cmd.OutOrStdout(), &res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&trials, "trials", "n", 0, "number of trials (server default when 0)")
	cmd.Flags().StringVar(&seeds, "seeds", "", "comma-separated seed order to set before simulating")
	return cmd
}

func splitSeeds(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
