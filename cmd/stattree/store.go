package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/statustree/internal/data"
	"github.com/udisondev/statustree/internal/db"
)

// openDefinitions connects, migrates and returns the definition repository.
// The returned close func must be called.
func (a *app) openDefinitions(ctx context.Context) (*db.DefinitionRepository, func(), error) {
	dsn := a.cfg.Database.DSN()
	database, err := db.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx, dsn); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return db.NewDefinitionRepository(database.Pool()), database.Close, nil
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file|dir]...",
		Short: "Store definitions in PostgreSQL",
		Long: `Validate definitions and store them in the database, replacing any stored
definition with the same name. Without arguments the configured
definitions_dir is imported. Nothing is stored when any file is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{a.cfg.DefinitionsDir}
			}
			files, err := expandDefinitionPaths(args)
			if err != nil {
				return err
			}

			reg := data.NewRegistry(nil)
			for _, path := range files {
				def, err := data.LoadFile(path)
				if err != nil {
					return err
				}
				if err := reg.Put(def); err != nil {
					return err
				}
			}

			repo, closeDB, err := a.openDefinitions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			var mu sync.Mutex
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(4)
			for _, name := range reg.Names() {
				def, _ := reg.Get(name)
				g.Go(func() error {
					id, err := repo.Save(ctx, def)
					if err != nil {
						return err
					}
					mu.Lock()
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, name)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			slog.Info("definitions imported", "count", reg.Len())
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Write a stored definition as YAML",
		Long: `Load the named definition from the database and write it as YAML to
stdout or to --output. Without a name the stored names are listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := a.openDefinitions(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if len(args) == 0 {
				names, err := repo.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			def, err := repo.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if def == nil {
				return fmt.Errorf("definition %q not found", args[0])
			}
			if output != "" {
				if err := def.Save(output); err != nil {
					return err
				}
				slog.Info("definition exported", "name", def.Name, "path", output)
				return nil
			}
			b, err := def.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
