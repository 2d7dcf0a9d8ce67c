// Package aspect buckets image dimensions into aspect ratio tags.
//
// All functions require width > 0 and height > 0.
package aspect

import (
	"fmt"
	"math"
	"strings"
)

// Tag is an aspect ratio bucket name
type Tag string

const (
	TooTall       Tag = "too_tall"
	TallWallpaper Tag = "tall_wallpaper"
	Tall          Tag = "tall"
	Square        Tag = "square"
	Wide          Tag = "wide"
	WideWallpaper Tag = "wide_wallpaper"
	TooWide       Tag = "too_wide"
)

// Policy maps a width and height to a bucket
type Policy func(width, height int) Tag

// Linear buckets by width/height.
func Linear(width, height int) Tag {
	ar := float64(width) / float64(height)
	switch {
	case ar <= 1.0/2:
		return TooTall
	case ar <= 8.0/9:
		return Tall
	case ar < 9.0/8:
		return Square
	case ar < 2:
		return Wide
	default:
		return TooWide
	}
}

// Log2 buckets by log2(width/height) into seven classes.
func Log2(width, height int) Tag {
	ar := math.Log2(float64(width) / float64(height))
	switch {
	case ar <= -1.25:
		return TooTall
	case ar <= -0.75:
		return TallWallpaper
	case ar <= -0.25:
		return Tall
	case ar < 0.25:
		return Square
	case ar < 0.75:
		return Wide
	case ar < 1.25:
		return WideWallpaper
	default:
		return TooWide
	}
}

// LinearTags and Log2Tags list each policy's outputs from tallest to widest
var (
	LinearTags = []Tag{TooTall, Tall, Square, Wide, TooWide}
	Log2Tags   = []Tag{TooTall, TallWallpaper, Tall, Square, Wide, WideWallpaper, TooWide}
)

// ParsePolicy returns the policy named "linear" or "log2"
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "linear":
		return Linear, nil
	case "log2", "":
		return Log2, nil
	}
	return nil, fmt.Errorf("unknown aspect ratio policy %q (want linear or log2)", name)
}

// Classify validates the dimensions and applies p
func Classify(p Policy, width, height int) (Tag, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("width and height must be positive, got %dx%d", width, height)
	}
	return p(width, height), nil
}
