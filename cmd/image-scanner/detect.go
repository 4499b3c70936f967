package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/imaging"
	"github.com/ironsheep/image-scanner/internal/scanner"
	"github.com/spf13/cobra"
)

func detectCmd() *cobra.Command {
	var output, cropsDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect objects in one image file and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			style, err := newStyle(cfg.Render)
			if err != nil {
				return err
			}

			bmp, err := imaging.DecodeFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			detector := detection.NewDetector(newLoader(cfg.Model), logger)
			if err := detector.Load(ctx); err != nil {
				return err
			}
			dets, err := detector.Detect(ctx, bmp.Image)
			if err != nil {
				return err
			}

			if output != "" {
				surface := imaging.NewSurface(0, 0)
				scanner.Render(surface, bmp, dets, style)
				if err := imaging.SaveFile(output, surface.Image()); err != nil {
					return err
				}
				logger.Info("annotated image written", "path", output)
			}

			if cropsDir != "" {
				if err := writeCrops(cropsDir, bmp, dets); err != nil {
					return err
				}
			}

			return printResults(cmd.OutOrStdout(), dets, asJSON)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the annotated image here (format from extension)")
	cmd.Flags().StringVar(&cropsDir, "crops", "", "write one cropped image per detection into this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print detections as JSON")
	return cmd
}

func printResults(w io.Writer, dets []detection.Detection, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if dets == nil {
			dets = []detection.Detection{}
		}
		return enc.Encode(dets)
	}

	list := scanner.ListResults(dets)
	if list.PlaceholderVisible {
		_, err := fmt.Fprintln(w, list.Placeholder)
		return err
	}
	for _, item := range list.Items {
		if _, err := fmt.Fprintln(w, item.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeCrops(dir string, bmp *imaging.Bitmap, dets []detection.Detection) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create crops dir: %w", err)
	}
	for i, d := range dets {
		img, err := imaging.CropBox(bmp, d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height, 1)
		if err != nil {
			continue
		}
		name := fmt.Sprintf("%02d-%s.png", i+1, fileSafe(d.Label))
		if err := imaging.SaveFile(filepath.Join(dir, name), img); err != nil {
			return err
		}
	}
	return nil
}

// fileSafe keeps letters, digits, dash and underscore.
func fileSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, s)
	if s == "" {
		return "object"
	}
	return s
}
