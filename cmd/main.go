package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"mnist-lenet/internal/classifier"
	"mnist-lenet/internal/config"
	"mnist-lenet/internal/parser"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("mnist-lenet: ")

	weights := flag.String("weights", "", "Directory holding <tensor>-f32.raw weight files")
	images := flag.String("images", "", "MNIST idx3 image archive")
	index := flag.Int("index", 0, "Image to classify")
	backend := flag.String("backend", "", "Execution backend: graph or reference")
	flag.Parse()

	cfg := config.Default()
	cfg.ApplyOverrides(config.Overrides{
		WeightsDir: *weights,
		ImagesPath: *images,
		Index:      *index,
		Backend:    *backend,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("cpu=%q cores=%d avx2=%v", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.Supports(cpuid.AVX2))

	if err := run(cfg, os.Stdout); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, out io.Writer) error {
	model, err := classifier.Open(cfg.Backend)
	if err != nil {
		return err
	}
	defer model.Close()

	if err := model.LoadWeights(cfg.WeightsDir); err != nil {
		return errors.Wrap(err, "load weights")
	}

	set, err := parser.ReadImages(cfg.ImagesPath)
	if err != nil {
		return errors.Wrap(err, "load images")
	}
	img, ok := set.Image(cfg.Index)
	if !ok {
		return errors.Errorf("image %d not found, archive holds %d", cfg.Index, set.Len())
	}
	fmt.Fprint(out, parser.ASCII(img))

	result, err := model.Classify(parser.Normalize(img))
	if err != nil {
		return err
	}
	for _, p := range result {
		fmt.Fprintf(out, "%d: %f\n", p.Digit, p.Prob)
	}
	return nil
}
