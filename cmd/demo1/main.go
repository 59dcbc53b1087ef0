package main

import (
	"flag"
	"fmt"
	"log"

	"mnist-lenet/internal/classifier"
	"mnist-lenet/internal/config"
	"mnist-lenet/internal/parser"

	"github.com/pkg/errors"
)

func countAccuracy(images *parser.ImageSet, labels *parser.LabelSet, model *classifier.Model, limit int) (float64, error) {
	if images.Len() != labels.Len() {
		return 0, errors.Errorf("%d images but %d labels", images.Len(), labels.Len())
	}
	n := images.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		return 0, errors.New("no images to evaluate")
	}

	correctCount := 0
	for i := 0; i < n; i++ {
		img, _ := images.Image(i)
		answer, _ := labels.Label(i)
		result, err := model.Classify(parser.Normalize(img))
		if err != nil {
			return 0, errors.Wrapf(err, "image %d", i)
		}
		if result.Top().Digit == answer {
			correctCount++
		}
		if (i+1)%1000 == 0 {
			fmt.Println("Images:", i+1, "Accuracy:", float64(correctCount)/float64(i+1)*100, "%")
		}
	}
	return float64(correctCount) / float64(n) * 100, nil
}

func main() {
	weights := flag.String("weights", "", "Directory holding <tensor>-f32.raw weight files")
	images := flag.String("images", "", "MNIST idx3 image archive")
	labels := flag.String("labels", "", "MNIST idx1 label archive")
	limit := flag.Int("limit", 0, "Evaluate only the first N images")
	backend := flag.String("backend", "", "Execution backend: graph or reference")
	flag.Parse()

	cfg := config.Default()
	cfg.ApplyOverrides(config.Overrides{
		WeightsDir: *weights,
		ImagesPath: *images,
		LabelsPath: *labels,
		Limit:      *limit,
		Backend:    *backend,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	fmt.Println("Loading...")
	model, err := classifier.Open(cfg.Backend)
	if err != nil {
		return err
	}
	defer model.Close()
	if err := model.LoadWeights(cfg.WeightsDir); err != nil {
		return errors.Wrap(err, "load weights")
	}
	imageSet, err := parser.ReadImages(cfg.ImagesPath)
	if err != nil {
		return errors.Wrap(err, "load images")
	}
	labelSet, err := parser.ReadLabels(cfg.LabelsPath)
	if err != nil {
		return errors.Wrap(err, "load labels")
	}

	fmt.Println("Evaluating...")
	accuracy, err := countAccuracy(imageSet, labelSet, model, cfg.Limit)
	if err != nil {
		return err
	}
	fmt.Println("Accuracy:", accuracy, "%")
	return nil
}
