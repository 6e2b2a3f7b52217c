package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/statustree/internal/data"
	"github.com/udisondev/statustree/internal/stat"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file|dir]...",
		Short: "Validate stat tree definitions",
		Long: `Check definition files for every structural problem: invalid root,
out of range indices, parent/child mismatches, duplicate keys, value nodes
with children, subtract/divide operators without exactly two children,
min greater than max, and cycles. Each valid definition is also built.

Directories are expanded to the YAML files they contain. Without arguments
the configured definitions_dir is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{a.cfg.DefinitionsDir}
			}
			files, err := expandDefinitionPaths(args)
			if err != nil {
				return err
			}
			return validateFiles(cmd, files)
		},
	}
}

func expandDefinitionPaths(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := data.DefinitionFiles(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

type validation struct {
	name  string
	nodes int
	value float64
	err   error
}

func validateFiles(cmd *cobra.Command, files []string) error {
	results := make([]validation, len(files))

	var g errgroup.Group
	for i, path := range files {
		g.Go(func() error {
			results[i] = validateFile(path)
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	failed := 0
	for i, res := range results {
		if res.err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n  %v\n", files[i], res.err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s, %d nodes, value %g)\n", files[i], res.name, res.nodes, res.value)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d definitions invalid", failed, len(files))
	}
	return nil
}

func validateFile(path string) validation {
	def, err := data.LoadFile(path)
	if err != nil {
		return validation{err: err}
	}
	root, err := def.Build()
	if err != nil {
		return validation{name: def.Name, err: err}
	}
	return validation{name: def.Name, nodes: stat.Count(root), value: root.Value()}
}
