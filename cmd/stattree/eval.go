package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/udisondev/statustree/internal/db"
	"github.com/udisondev/statustree/internal/model"
	"github.com/udisondev/statustree/internal/statdef"
)

type evalFlags struct {
	set    []string
	add    []string
	random int
	seed   uint64
	reset  bool
	entity string
}

func newEvalCmd(a *app) *cobra.Command {
	var f evalFlags

	cmd := &cobra.Command{
		Use:   "eval <file>",
		Short: "Build a definition and print its evaluated tree",
		Long: `Build the definition in <file>, apply writes in order (--set, then --add,
then --random adjustments) and print every node with its current value.

With --entity the value nodes are first restored from the snapshot stored
for that entity and tree, and the resulting values are saved back.

Examples:
  stattree eval definitions/character.yaml --add Buff=0.5
  stattree eval definitions/character.yaml --set Level=3 --random 5 --seed 42
  stattree eval definitions/character.yaml --entity 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --add Level=1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEval(cmd, args[0], f)
		},
	}

	cmd.Flags().StringArrayVar(&f.set, "set", nil, "set a value node: key=number (repeatable)")
	cmd.Flags().StringArrayVar(&f.add, "add", nil, "add to a value node: key=delta (repeatable)")
	cmd.Flags().IntVar(&f.random, "random", 0, "apply N random adjustments in [-10, 10)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed (default: time based)")
	cmd.Flags().BoolVar(&f.reset, "reset", false, "reset value nodes to their literals after restoring a snapshot")
	cmd.Flags().StringVar(&f.entity, "entity", "", "entity UUID whose stored snapshot is restored and saved")
	return cmd
}

func (a *app) runEval(cmd *cobra.Command, path string, f evalFlags) error {
	def, err := statdef.Load(path)
	if err != nil {
		return err
	}

	var entityID uuid.UUID
	if f.entity != "" {
		if entityID, err = uuid.Parse(f.entity); err != nil {
			return fmt.Errorf("parsing entity id: %w", err)
		}
	}

	st := model.NewDataDrivenStat[uuid.UUID](def)
	if err := st.Setup(entityID); err != nil {
		return fmt.Errorf("building %s: %w", def.Name, err)
	}

	var snapshots *db.SnapshotRepository
	if f.entity != "" {
		database, err := db.New(cmd.Context(), a.cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer database.Close()
		if err := db.RunMigrations(cmd.Context(), a.cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		snapshots = db.NewSnapshotRepository(database.Pool())

		values, err := snapshots.Load(cmd.Context(), entityID, def.Name)
		if err != nil {
			return err
		}
		skipped, err := st.Restore(values)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d values (%d stale)\n", len(values)-skipped, skipped)
	}

	if f.reset {
		st.ResetValues()
	}
	if err := applyWrites(st, f); err != nil {
		return err
	}
	if f.random > 0 {
		seed := f.seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng := rand.New(rand.NewPCG(seed, seed>>1))
		for range f.random {
			if key, delta, ok := st.RandomAdjust(rng); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "adjust %s %+g\n", key, delta)
			}
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), st.Dump())
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", st)
	st.DebugInfo()

	if snapshots != nil {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := snapshots.Save(ctx, entityID, def.Name, st.Snapshot()); err != nil {
			return err
		}
	}
	return nil
}

func applyWrites[O any](st *model.DataDrivenStat[O], f evalFlags) error {
	for _, s := range f.set {
		key, v, err := parseAssignment(s)
		if err != nil {
			return err
		}
		if !st.SetValueToNode(key, v) {
			return fmt.Errorf("no value node %q", key)
		}
	}
	for _, s := range f.add {
		key, v, err := parseAssignment(s)
		if err != nil {
			return err
		}
		if !st.AddValueToNode(key, v) {
			return fmt.Errorf("no value node %q", key)
		}
	}
	return nil
}
