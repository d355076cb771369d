// Package similarity compares cropped product pictures by perceptual hash.
package similarity

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/corona10/goimagehash"
)

// hashSide gives a 16x16, 256-bit perception hash.
const hashSide = 16

// DefaultThreshold is the largest distance still reported as similar. It
// tolerates re-encoding and small crop differences.
const DefaultThreshold = 20

// Unreadable is the distance reported when either hash cannot be decoded.
const Unreadable = 9999

// Hash returns the perceptual hash of img as a hex string.
func Hash(img image.Image) (string, error) {
	h, err := goimagehash.ExtPerceptionHash(img, hashSide, hashSide)
	if err != nil {
		return "", fmt.Errorf("perception hash: %w", err)
	}
	return strings.TrimPrefix(h.ToString(), "p:"), nil
}

// Distance returns the Hamming distance of two hashes produced by Hash, or
// Unreadable.
func Distance(a, b string) int {
	ha, err := decode(a)
	if err != nil {
		return Unreadable
	}
	hb, err := decode(b)
	if err != nil {
		return Unreadable
	}
	d, err := ha.Distance(hb)
	if err != nil {
		return Unreadable
	}
	return d
}

func decode(s string) (*goimagehash.ExtImageHash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty hash")
	}
	if !strings.Contains(s, ":") {
		s = "p:" + s
	}
	return goimagehash.ExtImageHashFromString(s)
}

// Item is a stored picture known by its hash
type Item struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// Result is a similar item with its score (100 minus distance, floored at 0).
type Result struct {
	Item
	Distance int `json:"distance"`
	Score    int `json:"score"`
}

// FindSimilar returns the corpus items within threshold of query, best first.
// Items without a hash are skipped.
func FindSimilar(query string, corpus []Item, threshold int) []Result {
	var out []Result
	for _, item := range corpus {
		if item.Hash == "" {
			continue
		}
		d := Distance(query, item.Hash)
		if d > threshold {
			continue
		}
		out = append(out, Result{Item: item, Distance: d, Score: max(0, 100-d)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// FindSimilarImage hashes img and searches corpus with it.
func FindSimilarImage(img image.Image, corpus []Item, threshold int) ([]Result, error) {
	h, err := Hash(img)
	if err != nil {
		return nil, err
	}
	return FindSimilar(h, corpus, threshold), nil
}
