package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"apidrift/internal/engine/requirements"
	"apidrift/internal/ui/report"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDepsCmd(_ *session) *cobra.Command {
	var (
		format string
		pkg    string
	)

	cmd := &cobra.Command{
		Use:   "deps [project-dir]",
		Short: "List the dependencies declared by a Python project",
		Long: `Read setup.py, setup.cfg, requirements.txt and pyproject.toml at the top
of project-dir (default: the working directory) and print every declared
dependency with its constraint kind.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			deps := requirements.Dependencies(dir)
			if pkg != "" {
				dep, ok := requirements.Lookup(deps, pkg)
				if !ok {
					return fmt.Errorf("package %s is not declared in %s", pkg, dir)
				}
				deps = []requirements.Dependency{dep}
			}
			return writeDependencies(cmd.OutOrStdout(), deps, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", string(report.FormatTSV), "output format: tsv, json or yaml")
	cmd.Flags().StringVar(&pkg, "package", "", "print only this package")
	return cmd
}

func writeDependencies(w io.Writer, deps []requirements.Dependency, format report.Format) error {
	if deps == nil {
		deps = []requirements.Dependency{}
	}
	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(deps)
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(deps); err != nil {
			return err
		}
		return enc.Close()
	case report.FormatTSV:
		var b strings.Builder
		b.WriteString("Package\tSpec\tKind\tVersion\tSource\n")
		for _, d := range deps {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\n", d.Package, d.Spec, d.Kind, d.Version(), d.Source)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
	return fmt.Errorf("deps does not support format %q", format)
}
