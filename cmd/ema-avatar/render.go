package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

// renderHalfBlocks draws img width cells wide. Every cell shows two pixels,
// the upper one as the foreground of an upper half block and the lower one
// as its background.
func renderHalfBlocks(img image.Image, width int) string {
	bounds := img.Bounds()
	if width <= 0 || bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return ""
	}

	height := max(bounds.Dy()*width/bounds.Dx(), 2)
	height += height % 2
	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < height; y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := range width {
			style := lipgloss.NewStyle().
				Foreground(hexColor(scaled.At(x, y))).
				Background(hexColor(scaled.At(x, y+1)))
			sb.WriteString(style.Render("▀"))
		}
	}
	return sb.String()
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
