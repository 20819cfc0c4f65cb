package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"apidrift/internal/core/errors"
	"apidrift/internal/core/ports"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/apiscan"
	"apidrift/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// KnowledgeStore is the read-write side of the knowledge base.
type KnowledgeStore interface {
	ports.SignatureSource
	SaveSignatures(ctx context.Context, pkg, version string, apis []apidiff.API) error
	HasVersion(ctx context.Context, pkg, version string) (bool, error)
	SaveDiff(ctx context.Context, pkg string, deltas []apidiff.VersionDelta) error
}

// BuildOptions configure BuildPackage.
type BuildOptions struct {
	Excludes []string
	Workers  int
	// Rescan re-scans versions already present in the store.
	Rescan bool
	// Force lists versions re-scanned even when Rescan is false.
	Force []string
}

// BuildReport describes one BuildPackage run.
type BuildReport struct {
	Package  string
	Scanned  []string
	Skipped  []string
	APIs     map[string]int
	Deltas   []apidiff.VersionDelta
	Duration time.Duration
}

// BuildPackage scans every "<pkg>-<version>" directory under dir into store,
// then recomputes the version deltas of pkg over all stored versions.
func BuildPackage(ctx context.Context, store KnowledgeStore, pkg, dir string, opts BuildOptions) (*BuildReport, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.BuildPackage",
		trace.WithAttributes(attribute.String("package", pkg)))
	defer span.End()

	started := time.Now()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read package directory"), errors.CtxPath, dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	versions := apiscan.VersionsFromArchives(pkg, names)
	if len(versions) == 0 {
		err := errors.New(errors.CodeNotFound, "no versioned source directories")
		err = errors.AddContext(err, errors.CtxPackage, pkg)
		return nil, errors.AddContext(err, errors.CtxPath, dir)
	}

	report := &BuildReport{Package: pkg, APIs: make(map[string]int, len(versions))}
	for _, version := range versions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !opts.Rescan && !slices.Contains(opts.Force, version) {
			known, err := store.HasVersion(ctx, pkg, version)
			if err != nil {
				return nil, err
			}
			if known {
				report.Skipped = append(report.Skipped, version)
				continue
			}
		}

		scanStart := time.Now()
		apis, err := apiscan.ScanPackage(ctx, filepath.Join(dir, pkg+"-"+version), apiscan.Options{
			Excludes: opts.Excludes,
			Version:  version,
			Workers:  opts.Workers,
		})
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxVersion, version)
		}
		observability.ScanDuration.WithLabelValues(pkg).Observe(time.Since(scanStart).Seconds())
		observability.ScannedAPIs.Set(float64(len(apis)))

		if err := store.SaveSignatures(ctx, pkg, version, apis); err != nil {
			return nil, err
		}
		report.Scanned = append(report.Scanned, version)
		report.APIs[version] = len(apis)
		slog.Info("scanned package version", "package", pkg, "version", version, "apis", len(apis))
	}

	deltas, err := RebuildDiff(ctx, store, pkg)
	if err != nil {
		return nil, err
	}
	report.Deltas = deltas
	report.Duration = time.Since(started)
	return report, nil
}

// RebuildDiff recomputes and stores the deltas of pkg from its stored
// signatures.
func RebuildDiff(ctx context.Context, store KnowledgeStore, pkg string) ([]apidiff.VersionDelta, error) {
	versions, err := store.Versions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	sets := make([]apidiff.VersionSet, 0, len(versions))
	for _, version := range versions {
		apis, err := store.Signatures(ctx, pkg, version)
		if err != nil {
			return nil, err
		}
		sets = append(sets, apidiff.VersionSet{Version: version, APIs: apis})
	}
	deltas := apidiff.Diff(sets)
	if err := store.SaveDiff(ctx, pkg, deltas); err != nil {
		return nil, errors.AddContext(err, errors.CtxPackage, pkg)
	}
	return deltas, nil
}
