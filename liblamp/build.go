package liblamp

import (
	"context"

	"github.com/2x3systems/golamp/golamp"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// BuildResult is the outcome of a complete dictionary build.
type BuildResult struct {
	Enumeration *golamp.Enumeration
	Dictionary  *Dictionary
}

// Build enumerates the configured scheme and builds its verified dictionary.
// Nothing is written; see Run.
func Build(ctx context.Context, cfg golamp.Config) (*BuildResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var enum *golamp.Enumeration
	var err error
	if cfg.Workers != 1 {
		enum, err = EnumerateParallel(ctx, cfg.Scheme, cfg.Workers)
	} else {
		enum, err = Enumerate(cfg.Scheme)
	}
	if err != nil {
		return nil, err
	}

	dict, err := BuildDictionary(enum)
	if err != nil {
		return nil, err
	}
	if err = dict.Verify(enum); err != nil {
		return nil, err
	}

	return &BuildResult{
		Enumeration: enum,
		Dictionary:  dict,
	}, nil
}

// Run performs Build then writes the artifact to cfg.Output and, if cfg.CatalogPath is set,
// the enumerated classes to a catalog opened with openCatalog.
//
// The artifact is staged before the catalog is touched and only moved into place once the
// catalog is written, so a failed run leaves no artifact and a failed artifact write leaves
// the catalog alone.
func Run(
	ctx context.Context,
	cfg golamp.Config,
	openCatalog func(opts golamp.CatalogOpts) (golamp.Catalog, error),
) (*BuildResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CatalogPath != "" && openCatalog == nil {
		return nil, errors.Wrap(golamp.ErrBadCatalogParam, "catalog path given without a catalog opener")
	}

	res, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var staged *StagedArtifact
	if cfg.Output != "" {
		staged, err = StageArtifact(cfg.Output, res.Dictionary.Artifact(), cfg.Format, cfg.Compression)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", cfg.Output)
		}
		defer staged.Discard()
	}

	if cfg.CatalogPath != "" {
		if err = putCatalog(cfg.CatalogPath, res.Enumeration, openCatalog); err != nil {
			return nil, err
		}
	}

	if staged != nil {
		if err = staged.Commit(); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", cfg.Output)
		}
		klog.Infof("wrote %s (%s, %s)", cfg.Output, cfg.Format, cfg.Compression)
	}

	return res, nil
}

func putCatalog(
	pathname string,
	enum *golamp.Enumeration,
	openCatalog func(opts golamp.CatalogOpts) (golamp.Catalog, error),
) error {
	cat, err := openCatalog(golamp.CatalogOpts{DbPathName: pathname})
	if err != nil {
		return errors.Wrap(err, "failed to open catalog")
	}
	err = cat.PutEnumeration(enum)
	if cerr := cat.Close(); err == nil {
		err = cerr
	}
	return err
}
