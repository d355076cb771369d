package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/webp"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/similarity"
)

type hashed struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

type match struct {
	Path     string `json:"path"`
	Distance int    `json:"distance"`
	Score    int    `json:"score"`
}

func newHashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash IMAGE...",
		Short: "Print the perceptual hash of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := hashFiles(args)
			if err != nil {
				return err
			}
			p := a.printer(cmd)
			if p.json {
				return p.emit(items)
			}
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", it.Hash, it.Path)
			}
			return nil
		},
	}
}

func newSimilarCmd(a *app) *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "similar QUERY CORPUS...",
		Short: "Rank corpus images by visual similarity to QUERY",
		Long:  "CORPUS entries are image files or directories searched recursively for images.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold <= 0 {
				threshold = a.cfg.Similarity.Threshold
			}
			query, err := hashFile(args[0])
			if err != nil {
				return err
			}
			paths, err := collectImages(args[1:])
			if err != nil {
				return err
			}
			items, err := hashFiles(paths)
			if err != nil {
				return err
			}

			corpus := make([]similarity.Item, len(items))
			for i, it := range items {
				corpus[i] = similarity.Item{ID: it.Path, Hash: it.Hash}
			}
			matches := []match{}
			for _, r := range similarity.FindSimilar(query, corpus, threshold) {
				matches = append(matches, match{Path: r.Item.ID, Distance: r.Distance, Score: r.Score})
			}

			p := a.printer(cmd)
			if p.json {
				return p.emit(matches)
			}
			if len(matches) == 0 {
				p.warn("no image within distance %d of %s", threshold, args[0])
				return nil
			}
			for _, m := range matches {
				p.info("%3d  %s (distance %d)", m.Score, m.Path, m.Distance)
			}
			p.success("%d of %d images similar to %s", len(matches), len(corpus), args[0])
			return nil
		},
	}

	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "maximum hash distance (default from config)")
	return cmd
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return similarity.Hash(img)
}

func hashFiles(paths []string) ([]hashed, error) {
	out := make([]hashed, 0, len(paths))
	for _, path := range paths {
		h, err := hashFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, hashed{Path: path, Hash: h})
	}
	return out, nil
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// collectImages expands directories into the image files below them.
func collectImages(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && imageExts[strings.ToLower(filepath.Ext(path))] {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
