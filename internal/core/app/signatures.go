package app

import (
	"context"
	"sync"

	"apidrift/internal/core/errors"
	"apidrift/internal/core/ports"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/shared/util"
)

// snapshot is the immutable API index of one package version.
type snapshot map[string][]apidiff.API

type versionKey struct {
	pkg     string
	version string
}

// signatureCache reads each (package, version) from the source once while it
// stays among the most recently used snapshots. Version lists and shift
// results are kept for the whole run.
type signatureCache struct {
	source   ports.SignatureSource
	versions sync.Map // pkg -> []string
	apis     *util.LRUCache[versionKey, snapshot]
	shifts   sync.Map // pkg + "\x00" + api -> shiftResult
}

type shiftResult struct {
	kind apidiff.ShiftKind
	ok   bool
}

func newSignatureCache(source ports.SignatureSource, capacity int) *signatureCache {
	return &signatureCache{source: source, apis: util.NewLRUCache[versionKey, snapshot](capacity)}
}

func (c *signatureCache) packageVersions(ctx context.Context, pkg string) ([]string, error) {
	if cached, ok := c.versions.Load(pkg); ok {
		return cached.([]string), nil
	}
	versions, err := c.source.Versions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	actual, _ := c.versions.LoadOrStore(pkg, versions)
	return actual.([]string), nil
}

func (c *signatureCache) snapshot(ctx context.Context, pkg, version string) (snapshot, error) {
	key := versionKey{pkg: pkg, version: version}
	if cached, ok := c.apis.Get(key); ok {
		return cached, nil
	}
	apis, err := c.source.Signatures(ctx, pkg, version)
	if err != nil {
		return nil, err
	}
	snap := make(snapshot, len(apis))
	for _, api := range apis {
		snap[api.Name] = append(snap[api.Name], api)
	}
	c.apis.Put(key, snap)
	return snap, nil
}

// lookup finds name in pkg at version. An empty version falls back to the
// newest known one.
func (c *signatureCache) lookup(ctx context.Context, pkg, version, name string) (apidiff.API, string, error) {
	if version == "" {
		versions, err := c.packageVersions(ctx, pkg)
		if err != nil {
			return apidiff.API{}, "", err
		}
		if len(versions) == 0 {
			return apidiff.API{}, "", errors.AddContext(
				errors.New(errors.CodeNotFound, "package has no scanned versions"),
				errors.CtxPackage, pkg)
		}
		version = versions[len(versions)-1]
	}

	snap, err := c.snapshot(ctx, pkg, version)
	if err != nil {
		return apidiff.API{}, version, err
	}
	decls := snap[name]
	if len(decls) == 0 {
		err := errors.New(errors.CodeNotFound, "api not declared by package version")
		err = errors.AddContext(err, errors.CtxPackage, pkg)
		err = errors.AddContext(err, errors.CtxVersion, version)
		return apidiff.API{}, version, errors.AddContext(err, errors.CtxAPI, name)
	}
	return decls[0], version, nil
}

// shift reports the first change of name across the known versions of pkg:
// it appears or vanishes (method_name), or its parameters or return flag
// differ between consecutive declarations.
func (c *signatureCache) shift(ctx context.Context, pkg, name string) (apidiff.ShiftKind, bool, error) {
	cacheKey := pkg + "\x00" + name
	if cached, ok := c.shifts.Load(cacheKey); ok {
		r := cached.(shiftResult)
		return r.kind, r.ok, nil
	}

	versions, err := c.packageVersions(ctx, pkg)
	if err != nil {
		return "", false, err
	}
	var (
		prev   *apidiff.API
		result shiftResult
		absent bool
	)
	for _, version := range versions {
		snap, err := c.snapshot(ctx, pkg, version)
		if err != nil {
			return "", false, err
		}
		decls := snap[name]
		if len(decls) == 0 {
			absent = true
			if prev != nil && !result.ok {
				result = shiftResult{kind: apidiff.ShiftName, ok: true}
			}
			continue
		}
		cur := decls[0]
		if !result.ok {
			if prev == nil && absent {
				result = shiftResult{kind: apidiff.ShiftName, ok: true}
			} else if prev != nil {
				if kind, changed := apidiff.Shift(*prev, cur); changed {
					result = shiftResult{kind: kind, ok: true}
				}
			}
		}
		prev = &cur
	}
	c.shifts.Store(cacheKey, result)
	return result.kind, result.ok, nil
}
