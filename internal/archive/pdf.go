// Package archive packages a downloaded chapter directory into portable
// artifacts (PDF, zip). Input ordering follows the zero-padded file names
// the download pipeline writes, which is reading order.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
)

var imageExtensions = map[string]string{
	".jpg":  "JPG",
	".jpeg": "JPG",
	".png":  "PNG",
	".gif":  "GIF",
}

// orderedImages lists the image files in dir sorted by name.
func orderedImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	return files, nil
}

// BuildPDF renders every image in dir onto its own page and writes the
// document to outPath.
func BuildPDF(dir, outPath string) error {
	files, err := orderedImages(dir)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)

	const pageW, pageH = 210.0, 297.0
	for _, file := range files {
		imgType := imageExtensions[strings.ToLower(filepath.Ext(file))]
		opts := fpdf.ImageOptions{ImageType: imgType, ReadDpi: true}

		pdf.AddPage()
		info := pdf.RegisterImageOptions(file, opts)
		if pdf.Err() {
			return fmt.Errorf("register image %s: %s", file, pdf.Error())
		}
		w, h := fitPage(info.Width(), info.Height(), pageW, pageH)
		pdf.ImageOptions(file, (pageW-w)/2, (pageH-h)/2, w, h, false, opts, 0, "")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// fitPage scales an image to fill the page while keeping aspect ratio.
func fitPage(imgW, imgH, pageW, pageH float64) (float64, float64) {
	if imgW <= 0 || imgH <= 0 {
		return pageW, pageH
	}
	scale := pageW / imgW
	if imgH*scale > pageH {
		scale = pageH / imgH
	}
	return imgW * scale, imgH * scale
}
