// Package upload turns a product folder into a catalog record: it classifies
// the files into a product/motif/color tree, uploads every image in order and
// hands the assembled record to a Registrar.
package upload

import (
	"bytes"
	"io"
	"strings"

	"floordesign/models"
)

// FileEntry is one file of a product folder, addressed by its relative path.
type FileEntry struct {
	Segments []string
	Open     func() (io.ReadCloser, error)
}

// NewFileEntry splits a relative path such as "Tapis/Floral/rouge.png".
// Backslashes are accepted as separators and empty segments are dropped.
func NewFileEntry(relPath string, open func() (io.ReadCloser, error)) FileEntry {
	parts := strings.Split(strings.ReplaceAll(relPath, "\\", "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return FileEntry{Segments: segments, Open: open}
}

// BytesEntry is a FileEntry backed by an in-memory buffer.
func BytesEntry(relPath string, data []byte) FileEntry {
	return NewFileEntry(relPath, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// Hidden reports whether any segment is a dotfile or dot-folder, such as
// "Tapis/.DS_Store" or ".git/config". Intake skips these before Classify,
// where a hidden file would otherwise take the principal image slot.
func (f FileEntry) Hidden() bool {
	for _, s := range f.Segments {
		if strings.HasPrefix(s, ".") {
			return true
		}
	}
	return false
}

// Path rejoins the segments with '/'.
func (f FileEntry) Path() string {
	return strings.Join(f.Segments, "/")
}

// Name is the last path segment.
func (f FileEntry) Name() string {
	if len(f.Segments) == 0 {
		return ""
	}
	return f.Segments[len(f.Segments)-1]
}

// ColorFile is one color variant waiting to be uploaded.
type ColorFile struct {
	ColorLabel string
	File       FileEntry
}

// MotifGroup holds a motif's color variants in input order.
type MotifGroup struct {
	Name   string
	Colors []ColorFile
}

// ProductStructure is the classified view of a product folder.
// Motifs keep the order in which each motif was first seen.
type ProductStructure struct {
	ProductName    string
	PrincipalImage *FileEntry
	Motifs         []MotifGroup
}

// Motif returns the named motif group, or nil.
func (s *ProductStructure) Motif(name string) *MotifGroup {
	for i := range s.Motifs {
		if s.Motifs[i].Name == name {
			return &s.Motifs[i]
		}
	}
	return nil
}

// TotalFiles counts the principal image plus every color layer.
func (s *ProductStructure) TotalFiles() int {
	total := 0
	if s.PrincipalImage != nil {
		total++
	}
	for _, m := range s.Motifs {
		total += len(m.Colors)
	}
	return total
}

// Classify groups files by depth:
//
//	product/file         -> principal image (last one wins)
//	product/motif/color  -> color layer of motif
//
// Other depths are ignored. The product name comes from the first file,
// whatever its depth; later files never rename it.
func Classify(files []FileEntry) ProductStructure {
	var s ProductStructure
	index := make(map[string]int)
	named := false

	for _, f := range files {
		if len(f.Segments) == 0 {
			continue
		}
		if !named {
			s.ProductName = f.Segments[0]
			named = true
		}

		switch len(f.Segments) {
		case 2:
			file := f
			s.PrincipalImage = &file
		case 3:
			motif := f.Segments[1]
			i, ok := index[motif]
			if !ok {
				i = len(s.Motifs)
				index[motif] = i
				s.Motifs = append(s.Motifs, MotifGroup{Name: motif})
			}
			s.Motifs[i].Colors = append(s.Motifs[i].Colors, ColorFile{
				ColorLabel: colorLabel(f.Segments[2]),
				File:       f,
			})
		}
	}

	return s
}

// ClassifyStrict is Classify but rejects batches whose files do not all
// share the same top-level folder.
func ClassifyStrict(files []FileEntry) (ProductStructure, error) {
	root := ""
	for _, f := range files {
		if len(f.Segments) == 0 {
			continue
		}
		if root == "" {
			root = f.Segments[0]
			continue
		}
		if f.Segments[0] != root {
			return ProductStructure{}, &MixedRootsError{First: root, Other: f.Segments[0]}
		}
	}
	return Classify(files), nil
}

// colorLabel strips the last extension: "rouge.png" -> "rouge", "v.2.jpg" -> "v.2".
// A trailing dot with nothing after it is kept.
func colorLabel(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx >= 0 && idx < len(filename)-1 {
		return filename[:idx]
	}
	return filename
}

// PublicIDs lists the media IDs a registered product was uploaded under,
// in upload order.
func PublicIDs(p models.Product) []string {
	folder := FolderRoot + "/" + p.Name
	ids := []string{folder + "/" + PrincipalImageID}
	for _, m := range p.Motifs {
		for _, layer := range m.ColorLayers {
			ids = append(ids, folder+"/"+m.Name+"/"+layer.ColorLabel)
		}
	}
	return ids
}
