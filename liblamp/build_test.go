package liblamp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/2x3systems/golamp/golamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	golamp.Catalog
	put    *golamp.Enumeration
	putErr error
	closed bool
}

func (cat *fakeCatalog) PutEnumeration(enum *golamp.Enumeration) error {
	if cat.putErr != nil {
		return cat.putErr
	}
	cat.put = enum
	return nil
}

func (cat *fakeCatalog) opener(opts golamp.CatalogOpts) (golamp.Catalog, error) {
	return cat, nil
}

func (cat *fakeCatalog) Close() error {
	cat.closed = true
	return nil
}

func TestBuild(t *testing.T) {
	cfg := golamp.DefaultConfig()
	res, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 940, res.Enumeration.NumClasses())
	assert.Equal(t, 14948, res.Dictionary.MappedCount())

	cfg.Workers = 4
	par, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, res.Dictionary.Artifact(), par.Dictionary.Artifact())

	cfg.Scheme.Require = "0"
	_, err = Build(context.Background(), cfg)
	require.ErrorIs(t, err, golamp.ErrDuplicateLampID)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()

	cfg := golamp.DefaultConfig()
	cfg.Scheme = smallScheme()
	cfg.Output = filepath.Join(dir, "id-dictionary.json")
	cfg.CatalogPath = filepath.Join(dir, "classes")

	cat := &fakeCatalog{}
	var opened golamp.CatalogOpts
	res, err := Run(context.Background(), cfg, func(opts golamp.CatalogOpts) (golamp.Catalog, error) {
		opened = opts
		return cat, nil
	})
	require.NoError(t, err)

	assert.Equal(t, cfg.CatalogPath, opened.DbPathName)
	assert.True(t, cat.closed)
	assert.Same(t, res.Enumeration, cat.put)

	art, err := LoadArtifact(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, res.Dictionary.Artifact(), art)

	_, err = Run(context.Background(), cfg, nil)
	require.ErrorIs(t, err, golamp.ErrBadCatalogParam)
}

func TestRunArtifactFailureSkipsCatalog(t *testing.T) {
	dir := t.TempDir()

	cfg := golamp.DefaultConfig()
	cfg.Scheme = smallScheme()
	cfg.Output = filepath.Join(dir, "no-such-dir", "id-dictionary.json")
	cfg.CatalogPath = filepath.Join(dir, "classes")

	cat := &fakeCatalog{}
	_, err := Run(context.Background(), cfg, cat.opener)
	require.Error(t, err)
	assert.Nil(t, cat.put, "catalog written although the artifact failed")
	assert.False(t, cat.closed)
}

func TestRunCatalogFailureSkipsArtifact(t *testing.T) {
	dir := t.TempDir()

	cfg := golamp.DefaultConfig()
	cfg.Scheme = smallScheme()
	cfg.Output = filepath.Join(dir, "id-dictionary.json")
	cfg.CatalogPath = filepath.Join(dir, "classes")

	cat := &fakeCatalog{putErr: golamp.ErrCatalogReadOnly}
	_, err := Run(context.Background(), cfg, cat.opener)
	require.ErrorIs(t, err, golamp.ErrCatalogReadOnly)
	assert.True(t, cat.closed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact or temp file left behind")
}

func TestRunWritesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()

	cfg := golamp.DefaultConfig()
	cfg.Scheme = golamp.Scheme{NumBits: 4, MaxZeroRun: 1, MinTotalZeros: 1, Require: "00", StartMarker: "11"}
	cfg.Output = filepath.Join(dir, "id-dictionary.json")

	_, err := Run(context.Background(), cfg, nil)
	require.ErrorIs(t, err, golamp.ErrNoValidSequences)

	_, err = os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(err))
}
