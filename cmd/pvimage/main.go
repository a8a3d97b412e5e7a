package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"pvimage/internal/progress"
	"pvimage/pkg/config"
	"pvimage/pkg/dataset"
	"pvimage/pkg/imgio"
	"pvimage/pkg/imgseq"
	"pvimage/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing module images")
	outputDir := flag.String("output", "", "Directory to save the loaded images to")
	configPath := flag.String("config", "pvimage.yaml", "Path to the YAML configuration file")
	modality := flag.String("modality", "", "Imaging modality of the input images (EL or PL)")
	cols := flag.Int("cols", 0, "Number of cell columns per module")
	rows := flag.Int("rows", 0, "Number of cell rows per module")
	sameCamera := flag.Bool("same-camera", false, "All images were taken with the same camera setup")
	allowMixed := flag.Bool("allow-mixed-dtypes", false, "Allow images with different sample types in one sequence")
	n := flag.Int("n", 0, "Read only the first N images (0 reads all)")
	pattern := flag.String("pattern", "", "Comma-separated file patterns to read (default from config)")
	asType := flag.String("as-type", "", "Convert loaded images to this sample type (uint8, uint16, float32, float64)")
	partial := flag.Bool("partial", false, "Treat images as partial module views")
	renderDir := flag.String("render-dir", "", "Directory to save rendered overview images to")
	demo := flag.Bool("demo", false, "Fetch and read the public demo dataset instead of -input")
	flag.Parse()

	// Validate inputs
	if *inputDir == "" && !*demo {
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration; explicit flags override the file
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "modality":
			cfg.Read.Modality = *modality
		case "cols":
			cfg.Read.Cols = *cols
		case "rows":
			cfg.Read.Rows = *rows
		case "same-camera":
			cfg.Read.SameCamera = *sameCamera
		case "allow-mixed-dtypes":
			cfg.Read.AllowDifferentDTypes = *allowMixed
		case "n":
			cfg.Read.N = *n
		case "pattern":
			cfg.Read.Patterns = strings.Split(*pattern, ",")
		}
	})

	mod, err := imgseq.ParseModality(cfg.Read.Modality)
	if err != nil {
		log.Fatalf("Invalid modality: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("PVIMAGE - EL/PL SOLAR MODULE IMAGE TOOLKIT")
	fmt.Println("================================")

	startTime := time.Now()

	// Load the image sequence
	var seq *imgseq.ModuleImageSequence
	if *demo {
		fmt.Println("Fetching the public demo dataset...")
		registry := dataset.NewRegistry(cfg.Dataset.CacheDir)
		seq, err = registry.Poly10x6(cfg.Read.N)
		if err != nil {
			log.Fatalf("Failed to load demo dataset: %v", err)
		}
	} else {
		reporter := progress.New("Reading images", nil)
		opts := imgio.ReadOptions{
			Modality:             mod,
			SameCamera:           cfg.Read.SameCamera,
			Cols:                 cfg.Read.Cols,
			Rows:                 cfg.Read.Rows,
			N:                    cfg.Read.N,
			Patterns:             cfg.Read.Patterns,
			AllowDifferentDTypes: cfg.Read.AllowDifferentDTypes,
			Progress:             reporter.Update,
		}
		if *partial {
			seq, err = imgio.ReadPartialModuleImages(*inputDir, opts)
		} else {
			seq, err = imgio.ReadModuleImages(*inputDir, opts)
		}
		reporter.Finish()
		if err != nil {
			log.Fatalf("Failed to read images: %v", err)
		}
	}

	// Convert the sample type if requested
	if *asType != "" {
		target, err := imgseq.ParseDType(*asType)
		if err != nil {
			log.Fatalf("Invalid sample type: %v", err)
		}
		converted, err := seq.AsType(target)
		if err != nil {
			log.Fatalf("Failed to convert images: %v", err)
		}
		seq = converted
		fmt.Printf("Converted images to %s\n", target)
	}

	elapsed := time.Since(startTime)

	// Print the sequence summary
	fmt.Printf("\nLoaded %d images in %.2f seconds\n", seq.Len(), elapsed.Seconds())
	fmt.Printf("Modality: %s\n", seq.Modality())
	if dt, ok := seq.DType(); ok {
		fmt.Printf("Sample type: %s\n", dt)
	} else {
		fmt.Println("Sample type: varies per image")
	}
	if shape, ok := seq.Shape(); ok {
		fmt.Printf("Image size: %dx%d pixels\n", shape.Cols, shape.Rows)
	} else {
		fmt.Println("Image size: varies per image")
	}
	if seq.Cols() > 0 && seq.Rows() > 0 {
		fmt.Printf("Cell layout: %d columns x %d rows\n", seq.Cols(), seq.Rows())
	}

	// Save the images if requested
	if *outputDir != "" {
		fmt.Printf("\nSaving images to: %s\n", *outputDir)
		reporter := progress.New("Saving images", nil)
		if err := imgio.SaveImagesWithProgress(*outputDir, seq, cfg.Write.Mkdir, reporter.Update); err != nil {
			log.Fatalf("Failed to save images: %v", err)
		}
		reporter.Finish()
		fmt.Println("Save completed!")
	}

	// Render overview images if requested
	if *renderDir != "" {
		fmt.Printf("\nRendering overview images to: %s\n", *renderDir)
		renderer := visualization.NewRenderer(cfg.Render.ClipLow, cfg.Render.ClipHigh, cfg.Render.MaxWidth, cfg.Render.Markers)
		if err := renderer.SaveOverview(*renderDir, seq, 0); err != nil {
			log.Printf("Warning: Failed to render overview: %v", err)
		} else {
			fmt.Println("Rendering completed!")
		}
	}
}
