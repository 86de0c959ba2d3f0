// Package assets stores uploaded listing images in a single flat directory.
//
// NAMING:
// Stored files are named {timestamp}_{xid}{ext}. The client-supplied
// filename is trusted only for its extension — the rest of the name is
// generated, which both avoids collisions between concurrent uploads (no
// locking protects the directory) and keeps attacker-chosen names off the
// filesystem.
//
// Files are written before the corresponding database row. A crash between
// the two orphans a file on disk, never a row pointing at a missing file;
// orphaned files are inert.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
	"golang.org/x/image/draw"

	"github.com/sakif/propsdb/internal/apperror"
)

// MaxDimension is the largest width or height stored for JPEG/PNG uploads;
// bigger images are downscaled. GIF and WebP pass through untouched (no
// stdlib re-encoder).
const MaxDimension = 2048

// JPEGQuality is the re-encode quality for downscaled JPEGs.
const JPEGQuality = 85

// allowedExtensions is the image-format allow-list, matched against the
// lowercased extension of the uploaded filename.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Store writes, replaces, and deletes image files in one flat directory.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns a Store
// rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("assets: creating upload dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are stored in, for the static file server.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates the upload's extension, generates a collision-resistant
// name, and writes the file. Returns the stored name (bare filename, no
// directory). Oversized JPEG/PNG images are downscaled before writing.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", apperror.ValidationFailed("image",
			fmt.Sprintf("unsupported image type %q (allowed: png, jpg, jpeg, gif, webp)", ext))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("assets: reading upload: %w", err)
	}

	if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
		data = downscaled(data, ext)
	}

	name := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102_150405"), xid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("assets: writing %s: %w", name, err)
	}

	return name, nil
}

// Replace stores the new upload, then deletes the old file. The old name
// may be empty (listing had no image); a missing file on disk is not an
// error. Ordering matters: the new file must be durable before the old one
// goes away.
func (s *Store) Replace(oldName, filename string, r io.Reader) (string, error) {
	name, err := s.Save(filename, r)
	if err != nil {
		return "", err
	}

	if oldName != "" {
		if err := s.Remove(oldName); err != nil {
			return "", fmt.Errorf("assets: removing replaced file %s: %w", oldName, err)
		}
	}

	return name, nil
}

// Remove deletes a stored file. Idempotent — a missing file is not an
// error. Names containing path separators are rejected outright so a
// corrupted image_path can never reach outside the upload directory.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("assets: invalid asset name %q", name)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("assets: removing %s: %w", name, err)
	}
	return nil
}

// downscaled decodes a JPEG/PNG, scales it down if either dimension exceeds
// MaxDimension, and re-encodes in the same format. Best effort: bytes that
// don't decode are stored as-is rather than rejected.
func downscaled(data []byte, ext string) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= MaxDimension && h <= MaxDimension {
		return data
	}

	newW, newH := w, h
	if w > h {
		newW = MaxDimension
		newH = h * MaxDimension / w
	} else {
		newH = MaxDimension
		newW = w * MaxDimension / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if ext == ".png" {
		err = png.Encode(&buf, dst)
	} else {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return data
	}
	return buf.Bytes()
}
