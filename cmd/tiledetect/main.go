// Package main - Command line tiled object detection for large images.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/nvr-ai/go-tiled/images"
	"github.com/nvr-ai/go-tiled/inference/detectors"
	"github.com/nvr-ai/go-tiled/inference/providers"
	"github.com/nvr-ai/go-tiled/models"
	"github.com/nvr-ai/go-tiled/pipeline"
	"github.com/nvr-ai/go-tiled/render"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type options struct {
	imagePath  string
	modelPath  string
	ortLib     string
	configPath string
	outPath    string
	labels     string
	backend    string
	sessions   int
	jsonOut    bool
	logLevel   string
	logJSON    bool
	colors     bool
	preview    int

	tileSize int
	overlap  float64
	conf     float64
	iou      float64
}

func main() {
	var opts options
	flag.StringVar(&opts.imagePath, "image", "", "Path to the large input image, or a directory of images")
	flag.StringVar(&opts.modelPath, "model", "", "Path to the YOLO ONNX tile model")
	flag.StringVar(&opts.ortLib, "ort-lib", "", "Path to the onnxruntime shared library")
	flag.StringVar(&opts.configPath, "config", "", "Optional YAML pipeline configuration")
	flag.StringVar(&opts.outPath, "out", "", "Rendered output path, or output directory in directory mode (default <name>_result.jpg)")
	flag.StringVar(&opts.labels, "labels", "", "Class labels: \"coco\", \"tower_crane\" or a comma separated list (default tower_crane)")
	flag.StringVar(&opts.backend, "backend", string(providers.CPUBackend), "Execution provider: cpu, cuda, coreml, openvino")
	flag.IntVar(&opts.sessions, "sessions", 0, "Number of concurrent ONNX sessions (0 = auto)")
	flag.BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.logJSON, "log-json", false, "Emit JSON logs")
	flag.BoolVar(&opts.colors, "class-colors", false, "Draw each class in its own colour")
	flag.IntVar(&opts.preview, "preview", 0, "Also write a preview scaled to this longest side")
	flag.IntVar(&opts.tileSize, "tile-size", 640, "Tile size in pixels")
	flag.Float64Var(&opts.overlap, "overlap", 0.2, "Tile overlap ratio in [0, 1)")
	flag.Float64Var(&opts.conf, "conf", 0.5, "Confidence threshold")
	flag.Float64Var(&opts.iou, "iou", 0.4, "NMS IoU threshold")
	flag.Parse()

	logger, err := initLogger(opts.logLevel, opts.logJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.WithError(err).Error("detection failed")
		os.Exit(1)
	}
}

// initLogger configures text output for humans and JSON output for log shippers.
func initLogger(level string, jsonOutput bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid -log-level %q", level)
	}
	logger.SetLevel(lvl)

	if jsonOutput {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// pipelineConfig loads the YAML file if given and applies explicitly set flags on top.
func pipelineConfig(opts options) (pipeline.Config, error) {
	config := pipeline.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := pipeline.LoadConfig(opts.configPath)
		if err != nil {
			return config, err
		}
		config = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tile-size":
			config.TileSize = opts.tileSize
		case "overlap":
			config.OverlapRatio = opts.overlap
		case "conf":
			config.ConfThreshold = opts.conf
		case "iou":
			config.IoUThreshold = opts.iou
		}
	})
	return config, config.Validate()
}

func detectorConfig(opts options, config pipeline.Config) (detectors.Config, error) {
	dc := detectors.DefaultConfig()
	dc.ModelPath = opts.modelPath
	dc.LibraryPath = opts.ortLib
	if dc.LibraryPath == "" {
		dc.LibraryPath = providers.SharedLibraryPath()
	}
	dc.TileSize = config.TileSize
	dc.PadColor = config.PadColor
	dc.Provider.Backend = providers.Backend(opts.backend)
	if opts.sessions > 0 {
		dc.Sessions = opts.sessions
	}
	if opts.labels != "" {
		classes, err := models.ResolveClassSet(opts.labels)
		if err != nil {
			return dc, err
		}
		dc.Labels = append([]string(nil), classes.Labels...)
	}
	return dc, dc.Validate()
}

// outputPath names the rendered image for input. In directory mode -out is
// the output directory.
func outputPath(opts options, input string, batch bool) string {
	if opts.outPath != "" && !batch {
		return opts.outPath
	}
	dir := filepath.Dir(input)
	if batch && opts.outPath != "" {
		dir = opts.outPath
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_result.jpg")
}

// inputs expands -image into the list of files to process.
func inputs(path string) ([]string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, common.NewImageReadError(path, err)
	}
	if !info.IsDir() {
		return []string{path}, false, nil
	}
	paths, err := images.ListDirectory(path)
	if err != nil {
		return nil, true, err
	}
	if len(paths) == 0 {
		return nil, true, errors.Errorf("no images found in %s", path)
	}
	return paths, true, nil
}

func run(ctx context.Context, opts options, logger *logrus.Logger) error {
	if opts.imagePath == "" || opts.modelPath == "" {
		flag.Usage()
		return errors.New("-image and -model are required")
	}

	config, err := pipelineConfig(opts)
	if err != nil {
		return err
	}
	dc, err := detectorConfig(opts, config)
	if err != nil {
		return err
	}
	paths, batch, err := inputs(opts.imagePath)
	if err != nil {
		return err
	}
	if batch && opts.outPath != "" {
		if err := os.MkdirAll(opts.outPath, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
	}

	detector, err := detectors.NewONNXDetector(dc)
	if err != nil {
		return errors.Wrap(err, "load detector")
	}
	defer detector.Close()

	p, err := pipeline.New(detector, config, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	style := render.DefaultStyle()
	style.PerClassColors = opts.colors
	renderer := render.NewRenderer(style, detector.Classes())

	results := make(map[string]*pipeline.Result, len(paths))
	for _, path := range paths {
		result, err := detectOne(ctx, p, renderer, opts, path, outputPath(opts, path, batch))
		if err != nil {
			if !batch || ctx.Err() != nil {
				return err
			}
			logger.WithError(err).WithField("image", path).Error("skipping image")
			continue
		}
		results[path] = result
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if !batch {
			return enc.Encode(results[paths[0]])
		}
		return enc.Encode(results)
	}
	return nil
}

// detectOne runs the pipeline over one file and writes the rendered result.
func detectOne(ctx context.Context, p *pipeline.Pipeline, renderer *render.Renderer, opts options, path, out string) (*pipeline.Result, error) {
	img, err := images.Load(path)
	if err != nil {
		return nil, err
	}
	result, err := p.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	if err := renderer.Save(out, img, result.Detections); err != nil {
		return nil, errors.Wrap(err, "save result image")
	}
	if opts.preview > 0 {
		if err := savePreview(renderer, img, result, out, opts.preview); err != nil {
			return nil, err
		}
	}
	if !opts.jsonOut {
		report(path, result, out)
	}
	return result, nil
}

func savePreview(renderer *render.Renderer, img image.Image, result *pipeline.Result, out string, maxSide int) error {
	preview, err := renderer.Preview(img, result.Detections, maxSide)
	if err != nil {
		return errors.Wrap(err, "render preview")
	}
	path := strings.TrimSuffix(out, filepath.Ext(out)) + "_preview.jpg"
	return images.Save(path, preview, 90)
}

func report(path string, result *pipeline.Result, out string) {
	abs, err := filepath.Abs(out)
	if err != nil {
		abs = out
	}

	fmt.Printf("%s: %dx%d split into %d tiles\n", path, result.Width, result.Height, len(result.Windows))
	fmt.Printf("Detected %d objects (%d candidates before merging) in %s\n",
		len(result.Detections), result.Candidates, result.Elapsed.Round(time.Millisecond))
	fmt.Printf("Result saved to: %s\n", abs)

	for i, d := range result.Detections {
		r := d.Box.ToRect()
		fmt.Printf("%s%d | box: [%d %d %d %d] | confidence: %.2f\n",
			d.Label, i+1, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, d.Confidence)
	}

	if infer, ok := result.Timings[pipeline.StageInfer]; ok {
		fmt.Printf("Tile inference: %d calls, mean %s, p95 %s\n",
			infer.Count, infer.Mean.Round(time.Microsecond), infer.P95.Round(time.Microsecond))
	}
	if result.DetectionsDiscarded > 0 {
		fmt.Printf("Discarded %d malformed tile detections\n", result.DetectionsDiscarded)
	}
	if !result.Complete() {
		fmt.Printf("%d of %d tiles failed:\n", result.TilesFailed, len(result.Windows))
		for _, f := range result.Failures {
			fmt.Printf("  tile %d at (%d,%d) after %d attempts: %s\n",
				f.Window.Index, f.Window.X, f.Window.Y, f.Attempts, f.Message)
		}
	}
}
