package main

import (
	"fmt"
	"strconv"

	"github.com/2x3systems/golamp/golamp"
	"github.com/2x3systems/golamp/liblamp"
	"github.com/2x3systems/golamp/liblamp/catalog"
	"github.com/2x3systems/golamp/pylamp"
	"github.com/dustin/go-humanize"
	"github.com/go-python/gpython/py"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
)

type cliOpts struct {
	configPath  string
	schemeExpr  string
	output      string
	format      string
	compression string
	workers     int
	catalogPath string
	catCtx      golamp.CatalogContext
}

// newRootCmd builds the command tree; catalogs opened by commands are registered with catCtx.
func newRootCmd(catCtx golamp.CatalogContext) *cobra.Command {
	opts := &cliOpts{
		catCtx: catCtx,
	}

	root := &cobra.Command{
		Use:           "golamp",
		Short:         "Generate the observed ID to lamp ID dictionary of a lamp signaling scheme",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file")
	pf.StringVar(&opts.schemeExpr, "scheme", "", `scheme expression, e.g. 'nBits=16 maxZeros=2 require="00" marker="1001"'`)

	root.AddCommand(
		newBuildCmd(opts),
		newVerifyCmd(opts),
		newLookupCmd(),
		newObservedCmd(opts),
		newEncodeCmd(opts),
		newClassesCmd(opts),
		newRunCmd(),
	)
	return root
}

// loadConfig resolves the config file, then the scheme expression, then flags that were set.
func (opts *cliOpts) loadConfig(cmd *cobra.Command) (golamp.Config, error) {
	cfg := golamp.DefaultConfig()

	var err error
	if opts.configPath != "" {
		if cfg, err = golamp.LoadConfig(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if opts.schemeExpr != "" {
		if cfg.Scheme, err = liblamp.ParseScheme(opts.schemeExpr); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("format") {
		cfg.Format = golamp.Format(opts.format)
	}
	if flags.Changed("compress") {
		cfg.Compression = golamp.Compression(opts.compression)
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("catalog") {
		cfg.CatalogPath = opts.catalogPath
	}

	return cfg, cfg.Validate()
}

func (opts *cliOpts) openCatalog(catOpts golamp.CatalogOpts) (golamp.Catalog, error) {
	return catalog.OpenCatalog(opts.catCtx, catOpts)
}

func newBuildCmd(opts *cliOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Enumerate the scheme and write the dictionary artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			klog.Infof("building dictionary for %v", cfg.Scheme)

			res, err := liblamp.Run(cmd.Context(), cfg, opts.openCatalog)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s lamp IDs, %s of %s observed IDs mapped\n",
				humanize.Comma(int64(res.Enumeration.NumClasses())),
				humanize.Comma(int64(res.Dictionary.MappedCount())),
				humanize.Comma(int64(cfg.Scheme.NumIDs())))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "artifact pathname (default id-dictionary.json)")
	f.StringVar(&opts.format, "format", "", "artifact format: json, bin")
	f.StringVar(&opts.compression, "compress", "", "artifact compression: none, zstd, lz4")
	f.IntVar(&opts.workers, "workers", 1, "scan workers (0 for one per CPU)")
	f.StringVar(&opts.catalogPath, "catalog", "", "also write the enumerated classes to a catalog at this path")
	return cmd
}

func newVerifyCmd(opts *cliOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <artifact>",
		Short: "Check an artifact matches a fresh build of the scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			art, err := liblamp.LoadArtifact(args[0])
			if err != nil {
				return err
			}
			res, err := liblamp.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if diff := cmp.Diff(res.Dictionary.Artifact(), art); diff != "" {
				return errors.Wrapf(golamp.ErrBadArtifact, "%s differs from a fresh build (-want +got):\n%s", args[0], diff)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <artifact> <observed ID>...",
		Short: "Resolve observed IDs to lamp IDs using an artifact",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := liblamp.LoadArtifact(args[0])
			if err != nil {
				return err
			}
			dict, err := liblamp.DictionaryFromArtifact(art)
			if err != nil {
				return err
			}
			for _, arg := range args[1:] {
				obsID, err := parseID(arg)
				if err != nil {
					return err
				}
				if lamp, ok := dict.Lookup(golamp.ID(obsID)); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", obsID, lamp)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", obsID, golamp.Unmapped)
				}
			}
			return nil
		},
	}
}

func newObservedCmd(opts *cliOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "observed <lamp ID>...",
		Short: "List the observed IDs of lamp IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			for _, arg := range args {
				lamp, err := parseID(arg)
				if err != nil {
					return err
				}
				obsIDs, err := liblamp.ObservedIDs(golamp.LampID(lamp), cfg.Scheme.LampBits, cfg.Scheme.Marker())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%v\n", lamp, obsIDs)
			}
			return nil
		},
	}
}

func newEncodeCmd(opts *cliOpts) *cobra.Command {
	var mode string
	var noStop bool

	cmd := &cobra.Command{
		Use:   "encode <ID>...",
		Short: "Print the signal encoding of IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			encOpts := liblamp.DefaultEncodingOpts
			encOpts.MaxZeroRun = cfg.Scheme.MaxZeroRun

			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				seq := liblamp.BaseSequence(golamp.ID(id), cfg.Scheme.NumBits, golamp.LittleEndian, !noStop)
				enc, err := liblamp.Encode(seq, golamp.EncodingMode(mode), encOpts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%v\t%v\n", id, seq, enc)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(golamp.EncodePulseLength), "encoding: pulse-length, switch, max, none")
	cmd.Flags().BoolVar(&noStop, "no-stop", false, "omit the leading stop symbol")
	return cmd
}

func newClassesCmd(opts *cliOpts) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "classes <catalog>",
		Short: "List the classes stored in a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.openCatalog(golamp.CatalogOpts{
				DbPathName: args[0],
				ReadOnly:   true,
			})
			if err != nil {
				return err
			}
			defer cat.Close()

			scheme, err := cat.Scheme()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %v: %s classes\n", scheme, humanize.Comma(cat.NumClasses()))

			count := 0
			return cat.Select(func(cls golamp.Class) bool {
				fmt.Fprintf(out, "%d\t%v\t%d\t%v\n", cls.Canonical, liblamp.BitsOf(cls.Canonical, scheme.NumBits, golamp.LittleEndian), cls.Lamp, cls.Orbit)
				count++
				return limit <= 0 || count < limit
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many classes")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.py>",
		Short: "Run a Python script with the golamp module available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := pylamp.RunScript(args[0])
			if err != nil {
				py.TracebackDump(err)
			}
			return err
		},
	}
}

func parseID(str string) (uint32, error) {
	v, err := strconv.ParseUint(str, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "bad ID %q", str)
	}
	return uint32(v), nil
}
