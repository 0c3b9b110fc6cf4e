// Package pdf converts invoice images into single-page PDF documents.
package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// DefaultDPI is the resolution used to size the page from the image pixels.
const DefaultDPI = 100

var ErrUnsupportedImage = errors.New("unsupported image format")

// imageTypes maps image.DecodeConfig format names to fpdf image types.
var imageTypes = map[string]string{
	"jpeg": "JPG",
	"png":  "PNG",
	"gif":  "GIF",
}

type Converter struct {
	DPI float64
}

func NewConverter() *Converter {
	return &Converter{DPI: DefaultDPI}
}

// SiblingPath returns the PDF path next to imagePath: same directory, same
// base name, ".pdf" extension.
func SiblingPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".pdf"
}

// Convert writes a one-page PDF containing the image to SiblingPath(imagePath)
// and returns that path.
func (c *Converter) Convert(imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	imgType, ok := imageTypes[format]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewind image: %w", err)
	}

	dpi := c.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	// Page size in points (1/72 inch) so that one pixel maps to 1/dpi inch.
	w := float64(cfg.Width) * 72 / dpi
	h := float64(cfg.Height) * 72 / dpi

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle(filepath.Base(imagePath), true)

	opts := fpdf.ImageOptions{ImageType: imgType, ReadDpi: false}
	doc.RegisterImageOptionsReader(imagePath, opts, f)
	doc.AddPage()
	doc.ImageOptions(imagePath, 0, 0, w, h, false, opts, 0, "")

	out := SiblingPath(imagePath)
	if err := doc.OutputFileAndClose(out); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return out, nil
}
