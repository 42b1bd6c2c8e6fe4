package cmd

import (
	"fmt"

	"treesearch/session"
	"treesearch/store"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (a *app) runCommand() *cobra.Command {
	var (
		asJSON bool
		record bool
	)
	cmd := &cobra.Command{
		Use:   "run <plan>",
		Short: "Execute a plan file (JSON or YAML, - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			ops, err := session.ParsePlan(data)
			if err != nil {
				return err
			}

			sess := session.New(a.registry, a.sessionOptions()...)
			trace := sess.Run(cmd.Context(), ops)

			if record {
				if err := a.record(sess, ops, trace); err != nil {
					log.Error().Err(err).Msg("failed to record run")
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(trace, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			} else {
				fmt.Fprintln(out, trace.Formatted())
			}
			return trace.Err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the trace as JSON")
	cmd.Flags().BoolVar(&record, "record", false, "store the trace in the run store")
	return cmd
}

func (a *app) record(sess *session.Session, ops []session.Op, trace session.Trace) error {
	runs, err := store.Open(a.cfg.Store())
	if err != nil {
		return err
	}
	defer runs.Close()

	plan, err := session.Steps(ops)
	if err != nil {
		return err
	}
	id, err := runs.Put(store.Run{SessionID: sess.ID(), Env: sess.Env(), Plan: plan, Trace: trace})
	if err != nil {
		return err
	}
	log.Info().Str("run", id).Msg("recorded run")
	return nil
}
