package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"ndresample/pkg/cluster"
	"ndresample/pkg/config"
	"ndresample/pkg/logging"
	"ndresample/pkg/scene"
	"ndresample/pkg/visualization"
	"ndresample/pkg/wire"
)

const usage = `ndresample resamples 3D and 4D scenes and computes distance maps.

Usage:
  ndresample resample [flags] <input> <output> <mode> <p1> <p2> <p3> [<p4>] <distanceMethod>
                      <degX> <degY> <degZ> [<degT> <volFirst> <volLast>] [<sliceFirst> <sliceLast>]...
  ndresample resample [flags] <input> <output> <argument file>
  ndresample distmap  [flags] <input> <output> <mode> <distanceType>
  ndresample worker   [flags]
  ndresample extract  [flags] <scene>
  ndresample init-config <path>

mode 1 runs in the background without progress output. An argument file
holds the arguments after <output>, one per line. A pixel size of 0 keeps
the input's.
`

// common holds the flags every job command accepts.
type common struct {
	configPath *string
	workers    *int
	connect    *string
	compress   *bool
	verbose    *bool
}

func addCommon(fs *flag.FlagSet) *common {
	return &common{
		configPath: fs.String("config", "ndresample.yaml", "Configuration file (.yaml or .toml)"),
		workers:    fs.Int("workers", 0, "Number of local workers (default from config)"),
		connect:    fs.String("connect", "", "Comma separated worker addresses; overrides local workers"),
		compress:   fs.Bool("compress", false, "Compress messages exchanged with workers"),
		verbose:    fs.Bool("verbose", false, "Log debug messages"),
	}
}

// setup loads the configuration, applies flag overrides and starts
// logging.
func (c *common) setup() (*config.Config, error) {
	cfg, err := config.LoadConfig(*c.configPath)
	if err != nil {
		return nil, err
	}
	if *c.workers > 0 {
		cfg.Processing.Workers = *c.workers
	}
	if *c.connect != "" {
		cfg.Transport.WorkerAddrs = strings.Split(*c.connect, ",")
	}
	if *c.compress {
		cfg.Transport.Compress = true
	}
	if *c.verbose {
		cfg.Logging.Verbose = true
	}
	if cfg.Logging.Verbose {
		logging.SetLogMode(logging.DebugMode)
	}
	cfg.Logging.SetLogger()
	return cfg, nil
}

func transport(cfg *config.Config) (cluster.Transport, error) {
	codec := wire.Codec{Compress: cfg.Transport.Compress}
	if len(cfg.Transport.WorkerAddrs) > 0 {
		return cluster.DialRPC(cfg.Transport.WorkerAddrs, codec, time.Duration(cfg.Transport.RequestTimeout))
	}
	return cluster.NewLocalTransport(cfg.Processing.Workers, codec), nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "resample":
		err = runResample(ctx, os.Args[2:])
	case "distmap":
		err = runDistance(ctx, os.Args[2:])
	case "worker":
		err = runWorker(ctx, os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "init-config":
		if len(os.Args) != 3 {
			err = fmt.Errorf("init-config needs a path")
		} else if err = config.CreateDefaultConfigFile(os.Args[2]); err == nil {
			fmt.Printf("Default configuration written to %s\n", os.Args[2])
		}
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		logging.Criticalf("%v\n", err)
		logging.Shutdown()
		os.Exit(1)
	}
	logging.Shutdown()
}

func runResample(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resample", flag.ExitOnError)
	c := addCommon(fs)
	spc := fs.Int("spc", 0, "Input slices per volume in one unit of work (default from config)")
	extractSlices := fs.Bool("extract-slices", false, "Export images of the result along every axis")
	slicesDir := fs.String("slices-dir", "", "Directory for exported images (default from config)")
	fs.Parse(args)

	cfg, err := c.setup()
	if err != nil {
		return err
	}
	args, err = expandArgFile(fs.Args())
	if err != nil {
		return err
	}
	r, err := parseResampleArgs(args, func(path string) (bool, error) {
		sr, err := scene.Open(path)
		if err != nil {
			return false, err
		}
		defer sr.Close()
		return sr.Descriptor().Is4D(), nil
	})
	if err != nil {
		return err
	}
	r.params.SlicesPerChunk = cfg.Processing.SlicesPerChunk
	if *spc > 0 {
		r.params.SlicesPerChunk = *spc
	}

	t, err := transport(cfg)
	if err != nil {
		return err
	}
	coord := &cluster.Coordinator{Transport: t, Quiet: r.background}
	tlog := logging.NewTimeLog()
	if err := cluster.RunResample(ctx, coord, r.input, r.output, r.params); err != nil {
		return err
	}
	tlog.Infof("Wrote %s", r.output)

	if *extractSlices || cfg.Output.ExtractSlices {
		dir := cfg.Output.SlicesDir
		if *slicesDir != "" {
			dir = *slicesDir
		}
		return extractAll(r.output, dir, cfg.Output.ImageFormat)
	}
	return nil
}

func runDistance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("distmap", flag.ExitOnError)
	c := addCommon(fs)
	npy := fs.String("npy", "", "Also write the signed distance field as a NumPy array")
	fs.Parse(args)

	cfg, err := c.setup()
	if err != nil {
		return err
	}
	d, err := parseDistanceArgs(fs.Args())
	if err != nil {
		return err
	}
	t, err := transport(cfg)
	if err != nil {
		return err
	}
	coord := &cluster.Coordinator{Transport: t, Quiet: d.background}
	tlog := logging.NewTimeLog()
	if err := cluster.RunDistance(ctx, coord, d.input, d.output, cluster.DistanceParams{Kind: d.kind, NpyPath: *npy}); err != nil {
		return err
	}
	tlog.Infof("Wrote %s", d.output)
	return nil
}

func runWorker(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	c := addCommon(fs)
	listen := fs.String("listen", "", "Address to serve on (default from config)")
	fs.Parse(args)

	cfg, err := c.setup()
	if err != nil {
		return err
	}
	addr := cfg.Transport.Listen
	if *listen != "" {
		addr = *listen
	}
	return cluster.NewServer(addr, wire.Codec{Compress: cfg.Transport.Compress}).Serve(ctx)
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	axis := fs.String("axis", "", "Axis to export (x, y or z); all when empty")
	dir := fs.String("dir", "slices", "Output directory")
	format := fs.String("format", "png", "Image format (png, jpg, tif, bmp)")
	volume := fs.Int("volume", 0, "Volume of a 4D scene to export")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("extract needs exactly one scene")
	}

	viewer, err := visualization.OpenViewer(fs.Arg(0), *volume)
	if err != nil {
		return err
	}
	axes := []string{"x", "y", "z"}
	if *axis != "" {
		axes = []string{*axis}
	}
	for _, a := range axes {
		if err := viewer.SaveSliceSequence(a, filepath.Join(*dir, a), *format); err != nil {
			return fmt.Errorf("%s-axis slices: %w", a, err)
		}
	}
	return nil
}

// extractAll exports every axis of the first volume of a scene.
func extractAll(path, dir, format string) error {
	viewer, err := visualization.OpenViewer(path, 0)
	if err != nil {
		return err
	}
	for _, axis := range []string{"x", "y", "z"} {
		axisDir := filepath.Join(dir, axis)
		logging.Infof("Saving %s-axis slices to: %s\n", axis, axisDir)
		if err := viewer.SaveSliceSequence(axis, axisDir, format); err != nil {
			logging.Warningf("Failed to save %s-axis slices: %v\n", axis, err)
		}
	}
	return nil
}
