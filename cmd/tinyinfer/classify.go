package main

import (
	"bufio"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

func newClassifyCmd() *cobra.Command {
	var (
		modelName string
		imagePath string
		topK      int
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Run an image through a classification model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, err := LoadManifest(viper.GetString("manifest"))
			if err != nil {
				return err
			}
			entry, err := manifest.Find(modelName)
			if err != nil {
				return err
			}

			input, err := loadImageTensor(imagePath, entry)
			if err != nil {
				return err
			}

			graph := runtime.NewGraph(entry.Param, entry.Bin)
			graph.Build(entry.Input, entry.Output)
			outputs := graph.Forward([]*tensor.Tensor{input}, viper.GetBool("debug"))

			labels, err := loadLabels(entry.Labels)
			if err != nil {
				return err
			}
			printTopK(cmd, outputs[0], labels, topK)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "model name from the manifest")
	cmd.Flags().StringVar(&imagePath, "image", "", "image file to classify")
	cmd.Flags().IntVar(&topK, "top", 5, "number of predictions to print")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

// loadImageTensor decodes, resizes and normalizes an image into a CHW
// float32 tensor matching the model's declared input.
func loadImageTensor(path string, entry ModelEntry) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	channels := entry.InputSize.Channels
	height := entry.InputSize.Height
	width := entry.InputSize.Width
	if channels != 3 {
		return nil, fmt.Errorf("only 3-channel inputs are supported, manifest says %d", channels)
	}

	t := tensor.New(channels, height, width)
	bounds := img.Bounds()
	for y := 0; y < height; y++ {
		// nearest-neighbour resize keeps the demo dependency-free
		srcY := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/width
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			t.SetAt(0, y, x, normalize(float32(r)/65535, entry, 0))
			t.SetAt(1, y, x, normalize(float32(g)/65535, entry, 1))
			t.SetAt(2, y, x, normalize(float32(b)/65535, entry, 2))
		}
	}
	return t, nil
}

func normalize(v float32, entry ModelEntry, channel int) float32 {
	if channel < len(entry.Mean) {
		v -= entry.Mean[channel]
	}
	if channel < len(entry.Std) && entry.Std[channel] != 0 {
		v /= entry.Std[channel]
	}
	return v
}

func loadLabels(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	return labels, scanner.Err()
}

func printTopK(cmd *cobra.Command, output *tensor.Tensor, labels []string, topK int) {
	scores := output.Values(true)
	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool { return scores[indices[i]] > scores[indices[j]] })

	if topK > len(indices) {
		topK = len(indices)
	}
	for rank := 0; rank < topK; rank++ {
		idx := indices[rank]
		label := fmt.Sprintf("class %d", idx)
		if idx < len(labels) {
			label = labels[idx]
		}
		cmd.Printf("%2d. %-40s %.5f\n", rank+1, label, scores[idx])
	}
}
