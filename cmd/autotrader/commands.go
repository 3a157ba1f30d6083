package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/camuig/autotrader/internal/coordinator"
	"github.com/camuig/autotrader/internal/storage"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := a.coord.RunCycle(cmd.Context(), coordinator.TriggerCLI)
			if err := printJSON(out); err != nil {
				return err
			}
			if out.Status == storage.OutcomeError {
				return fmt.Errorf("run %s failed: %s", out.RunID, out.Message)
			}
			return nil
		},
	}
}

func killSwitchCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "killswitch",
		Short: "Halt or resume order placement",
	}

	set := func(active bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ev, err := a.coord.SetKillSwitch(cmd.Context(), active, reason, "cli")
			if err != nil {
				return err
			}
			return printJSON(ev)
		}
	}

	on := &cobra.Command{Use: "on", Short: "Reject every order from the next run on", RunE: set(true)}
	on.Flags().StringVarP(&reason, "reason", "r", "", "why trading is halted")
	off := &cobra.Command{Use: "off", Short: "Allow orders again", RunE: set(false)}
	off.Flags().StringVarP(&reason, "reason", "r", "", "why trading resumes")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the kill switch state and recent changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			history, err := repo.KillSwitchHistory(cmd.Context(), 10)
			if err != nil {
				return err
			}
			active := len(history) > 0 && history[0].Active
			return printJSON(map[string]any{"active": active, "history": history})
		},
	}

	cmd.AddCommand(on, off, status)
	return cmd
}

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			runs, err := repo.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tTRIGGER\tOUTCOME\tEXECUTED\tMESSAGE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Trigger, r.Outcome, r.Executed, strings.ReplaceAll(r.Message, "\n", " "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Refresh open orders from the broker and attach missing exits",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.exec.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg.Redacted())
		},
	}
}

// openRepo opens only the database, for commands that never touch the broker.
func openRepo() (*storage.Repository, func(), error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewRepository(db), func() {
		if err := storage.Close(db); err != nil {
			log.Error("close database", "error", err)
		}
	}, nil
}
