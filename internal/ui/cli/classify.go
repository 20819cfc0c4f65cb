package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"apidrift/internal/core/app"
	"apidrift/internal/engine/apidiff"

	"github.com/spf13/cobra"
)

type classifyFlags struct {
	source     string
	sourceFile string
	predicted  string
	truth      string
	signature  string
	pkg        string
	version    string
	api        string
	dbPath     string
	asJSON     bool
}

func newClassifyCmd(rt *session) *cobra.Command {
	var f classifyFlags

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one predicted statement against its ground truth",
		Long: `Classify one prediction. The signature of the ground-truth API is given
inline with --signature as JSON ({"name":..., "params":[...], "has_return":...})
or looked up in the knowledge base by --package and --version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := f.task()
			if err != nil {
				return err
			}

			opts := app.Options{Workers: 1}
			if task.Signature == nil {
				store, err := rt.openKnowledge(f.dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Source = store
			}

			_, results, err := app.NewService(opts).Evaluate(cmd.Context(), []app.Task{task})
			if err != nil {
				return err
			}
			res := results[0]
			if res.Error != "" {
				return errors.New(res.Error)
			}
			return writeVerdict(cmd.OutOrStdout(), res, f.asJSON)
		},
	}

	cmd.Flags().StringVar(&f.source, "source", "", "source text preceding the predicted line")
	cmd.Flags().StringVar(&f.sourceFile, "source-file", "", "file holding the source text")
	cmd.Flags().StringVar(&f.predicted, "pred", "", "predicted statement")
	cmd.Flags().StringVar(&f.truth, "gt", "", "ground-truth statement")
	cmd.Flags().StringVar(&f.signature, "signature", "", "ground-truth API signature as JSON")
	cmd.Flags().StringVar(&f.pkg, "package", "", "package for knowledge base lookup")
	cmd.Flags().StringVar(&f.version, "version", "", "version constraint such as ==1.2.0 (default: newest known)")
	cmd.Flags().StringVar(&f.api, "api", "", "API name to look up (default: the ground truth's callee)")
	cmd.Flags().StringVar(&f.dbPath, "db-path", "", "knowledge base path (default: paths.knowledge)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("gt")
	cmd.MarkFlagsMutuallyExclusive("source", "source-file")
	cmd.MarkFlagsMutuallyExclusive("signature", "package")
	return cmd
}

func (f classifyFlags) task() (app.Task, error) {
	task := app.Task{
		ID:          "cli",
		Package:     f.pkg,
		Version:     f.version,
		API:         f.api,
		Source:      f.source,
		Predicted:   f.predicted,
		GroundTruth: f.truth,
	}
	if f.sourceFile != "" {
		data, err := os.ReadFile(f.sourceFile)
		if err != nil {
			return app.Task{}, fmt.Errorf("read source file: %w", err)
		}
		task.Source = string(data)
	}
	if f.signature != "" {
		var sig apidiff.API
		if err := json.Unmarshal([]byte(f.signature), &sig); err != nil {
			return app.Task{}, fmt.Errorf("parse --signature: %w", err)
		}
		task.Signature = &sig
	}
	if task.Signature == nil && task.Package == "" {
		return app.Task{}, errors.New("either --signature or --package is required")
	}
	return task, nil
}

func writeVerdict(w io.Writer, res app.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "%s", res.Verdict.Outcome)
	if res.Verdict.Reason != "" {
		fmt.Fprintf(w, "\t%s", res.Verdict.Reason)
	}
	fmt.Fprintln(w)
	if res.Verdict.PredictedFQN != "" || res.Verdict.ExpectedFQN != "" {
		fmt.Fprintf(w, "predicted: %s\nexpected:  %s\n", res.Verdict.PredictedFQN, res.Verdict.ExpectedFQN)
	}
	if res.Version != "" {
		fmt.Fprintf(w, "version:   %s\n", res.Version)
	}
	return nil
}
