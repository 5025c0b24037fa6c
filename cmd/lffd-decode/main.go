package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nvr-ai/go-lffd/images"
	"github.com/nvr-ai/go-lffd/inference"
	"github.com/nvr-ai/go-lffd/models/lffd"
	"github.com/nvr-ai/go-lffd/models/postprocess"
	"github.com/nvr-ai/go-lffd/profiler"
	"github.com/nvr-ai/go-lffd/util"
)

const (
	// DefaultLongSide is the longest image side the network is run at.
	DefaultLongSide = 384
	// DefaultDumpDir is the default directory holding scale-<i>.json dumps.
	DefaultDumpDir = "dumps"
)

func main() {
	var (
		dumpDir    string
		configPath string
		width      int
		height     int
		resize     float64
		longSide   int
		score      float64
		topK       int
		overlap    float64
		noNMS      bool
		parallel   bool
		profile    bool
	)
	flag.StringVar(&dumpDir, "dumps", DefaultDumpDir, "Directory with per-scale network output dumps")
	flag.StringVar(&configPath, "config", "", "Optional YAML params file")
	flag.IntVar(&width, "width", 0, "Original image width in pixels")
	flag.IntVar(&height, "height", 0, "Original image height in pixels")
	flag.Float64Var(&resize, "resize", 0, "Resize scale the network input was produced with (0 = derive from image size)")
	flag.IntVar(&longSide, "long-side", DefaultLongSide, "Longest side used when deriving the resize scale")
	flag.Float64Var(&score, "score", 0.7, "Score threshold")
	flag.IntVar(&topK, "topk", 10000, "Maximum candidates per scale (0 = unlimited)")
	flag.Float64Var(&overlap, "nms", 0.3, "NMS coverage threshold")
	flag.BoolVar(&noNMS, "no-nms", false, "Disable non-maximum suppression")
	flag.BoolVar(&parallel, "parallel", false, "Decode scales concurrently")
	flag.BoolVar(&profile, "profile", false, "Print stage timings")
	flag.Parse()

	params := lffd.DefaultParams()
	if configPath != "" {
		loaded, err := lffd.LoadParams(configPath)
		if err != nil {
			log.Fatalf("Failed to load params: %v", err)
		}
		params = loaded
	}

	// Flags given on the command line override the params file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			params.OriginalWidth = width
		case "height":
			params.OriginalHeight = height
		case "resize":
			params.ResizeScale = float32(resize)
		case "score":
			params.ScoreThreshold = float32(score)
		case "topk":
			params.TopK = topK
		case "nms":
			params.NMS.OverlapThreshold = float32(overlap)
		case "no-nms":
			params.NMS.Enabled = !noNMS
		case "parallel":
			params.Parallel = parallel
		}
	})

	if params.ResizeScale == 0 || (configPath == "" && resize == 0) {
		scale := images.FitScale(params.OriginalWidth, params.OriginalHeight, longSide)
		params.ResizeScale = images.EnsureMinShorterSide(scale, params.OriginalWidth, params.OriginalHeight, images.MinShorterSide)
		log.Printf("Derived resize scale %.4f for %dx%d", params.ResizeScale, params.OriginalWidth, params.OriginalHeight)
	}

	timer := profiler.NewStageTimer()
	dets, err := run(dumpDir, params, timer)
	if err != nil {
		log.Fatalf("Detection failed: %v", err)
	}

	log.Printf("Found %d faces", len(dets))
	for _, d := range dets {
		crop := d.ToRectangle()
		fmt.Printf("%s crop=%v\n", d, crop)
	}

	if profile {
		if _, err := timer.WriteTo(os.Stderr); err != nil {
			log.Printf("Failed to write timings: %v", err)
		}
	}
}

func run(dumpDir string, params lffd.Params, timer *profiler.StageTimer) ([]postprocess.Detection, error) {
	var dumps []util.ScaleDump
	if err := timer.Track("load", func() (err error) {
		dumps, err = util.LoadScaleDumps(dumpDir)
		return err
	}); err != nil {
		return nil, err
	}
	log.Printf("Loaded %d scale dumps from %s", len(dumps), dumpDir)

	var outputs []lffd.ScaleOutput
	if err := timer.Track("split", func() error {
		flat, err := util.Flatten(dumps)
		if err != nil {
			return err
		}
		outputs, err = inference.SplitOutputs(flat)
		return err
	}); err != nil {
		return nil, err
	}

	// Decoding and suppression are timed apart so that suppression cost is visible.
	suppress := params.NMS
	params.NMS.Enabled = false

	var dets []postprocess.Detection
	if err := timer.Track("decode", func() (err error) {
		dets, err = lffd.Detect(outputs, params)
		return err
	}); err != nil {
		return nil, err
	}

	if suppress.Enabled {
		stop := timer.Start("nms")
		dets = postprocess.ApplyNMS(dets, &suppress)
		log.Printf("NMS took %v", stop())
	}

	return dets, nil
}
