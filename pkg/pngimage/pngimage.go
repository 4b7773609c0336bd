// Package pngimage pairs an RGBA image with text metadata and encodes both
// into one PNG file. Metadata is stored in iTXt chunks, so values may be
// any UTF-8 text.
package pngimage

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sort"
	"unicode/utf8"
)

// Metadata keys written by Diff.
const (
	KeyIdentical      = "identical"
	KeyDiffPixelCount = "diff-pixel-count"
	KeyError          = "error"
)

// compressAbove is the value length past which iTXt text is compressed.
const compressAbove = 512

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// ErrNotPNG is returned by Decode for input without the PNG signature.
var ErrNotPNG = errors.New("not a PNG file")

// Image is an RGBA raster plus string metadata.
type Image struct {
	Data     *image.RGBA
	Metadata map[string]string
}

// New wraps img. The metadata map is copied.
func New(img *image.RGBA, metadata map[string]string) *Image {
	m := make(map[string]string, len(metadata))
	for k, v := range metadata {
		m[k] = v
	}
	return &Image{Data: img, Metadata: m}
}

// Width returns the image width in pixels.
func (i *Image) Width() int { return i.Data.Bounds().Dx() }

// Height returns the image height in pixels.
func (i *Image) Height() int { return i.Data.Bounds().Dy() }

// Encode writes the image as PNG with one iTXt chunk per metadata entry,
// in key order, directly after the header chunk.
func (i *Image) Encode(w io.Writer) error {
	var raw bytes.Buffer
	if err := png.Encode(&raw, i.Data); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	data := raw.Bytes()

	// signature + IHDR (length, type, 13 bytes, crc)
	headerEnd := len(pngSignature) + 8 + 13 + 4
	if len(data) < headerEnd {
		return errors.New("encoding png: short output")
	}

	keys := make([]string, 0, len(i.Metadata))
	for k := range i.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out bytes.Buffer
	out.Write(data[:headerEnd])
	for _, k := range keys {
		chunk, err := itxt(k, i.Metadata[k])
		if err != nil {
			return err
		}
		writeChunk(&out, "iTXt", chunk)
	}
	out.Write(data[headerEnd:])

	_, err := w.Write(out.Bytes())
	return err
}

// Bytes returns the encoded PNG.
func (i *Image) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := i.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a PNG and its tEXt, zTXt and iTXt metadata.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, ErrNotPNG
	}

	metadata := make(map[string]string)
	rest := data[len(pngSignature):]
	for len(rest) >= 12 {
		n := int(binary.BigEndian.Uint32(rest[:4]))
		if n < 0 || 12+n > len(rest) {
			return nil, errors.New("decoding png: truncated chunk")
		}
		typ := string(rest[4:8])
		body := rest[8 : 8+n]
		switch typ {
		case "tEXt":
			if k, v, ok := bytes.Cut(body, []byte{0}); ok {
				metadata[string(k)] = latin1(v)
			}
		case "zTXt":
			if k, v, ok := bytes.Cut(body, []byte{0}); ok && len(v) > 0 {
				if text, err := inflate(v[1:]); err == nil {
					metadata[string(k)] = latin1(text)
				}
			}
		case "iTXt":
			k, v, err := parseITXt(body)
			if err != nil {
				return nil, fmt.Errorf("decoding png metadata: %w", err)
			}
			metadata[k] = v
		}
		rest = rest[12+n:]
		if typ == "IEND" {
			break
		}
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	return &Image{Data: toRGBA(img), Metadata: metadata}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// ---------------------------------------------------------------------------
// Chunks
// ---------------------------------------------------------------------------

func writeChunk(w *bytes.Buffer, typ string, body []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(body)))
	w.Write(n[:])

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(body)

	w.WriteString(typ)
	w.Write(body)
	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	w.Write(n[:])
}

// itxt builds an iTXt body: keyword, NUL, compression flag and method,
// empty language tag and translated keyword, then the text.
func itxt(key, value string) ([]byte, error) {
	if len(key) == 0 || len(key) > 79 || bytes.IndexByte([]byte(key), 0) >= 0 {
		return nil, fmt.Errorf("invalid metadata key %q: want 1-79 bytes without NUL", key)
	}
	for _, r := range key {
		if r < 0x20 || r > 0x7e {
			return nil, fmt.Errorf("invalid metadata key %q: want printable ASCII", key)
		}
	}
	if !utf8.ValidString(value) {
		return nil, fmt.Errorf("metadata value for %q is not UTF-8", key)
	}

	var b bytes.Buffer
	b.WriteString(key)
	b.WriteByte(0)
	if len(value) > compressAbove {
		b.Write([]byte{1, 0, 0, 0})
		zw := zlib.NewWriter(&b)
		zw.Write([]byte(value))
		if err := zw.Close(); err != nil {
			return nil, err
		}
	} else {
		b.Write([]byte{0, 0, 0, 0})
		b.WriteString(value)
	}
	return b.Bytes(), nil
}

func parseITXt(body []byte) (string, string, error) {
	key, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(rest) < 2 {
		return "", "", errors.New("malformed iTXt chunk")
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	// language tag, then translated keyword
	for i := 0; i < 2; i++ {
		var found bool
		_, rest, found = bytes.Cut(rest, []byte{0})
		if !found {
			return "", "", errors.New("malformed iTXt chunk")
		}
	}
	if compressed {
		text, err := inflate(rest)
		if err != nil {
			return "", "", fmt.Errorf("iTXt %q: %w", key, err)
		}
		rest = text
	}
	return string(key), string(rest), nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// ---------------------------------------------------------------------------
// Placeholders and comparison
// ---------------------------------------------------------------------------

var (
	errorBackground = color.RGBA{0xee, 0xee, 0xee, 0xff}
	errorMark       = color.RGBA{0xcc, 0x22, 0x22, 0xff}
	diffMark        = color.RGBA{0xff, 0x00, 0x00, 0xff}
)

// ErrorImage returns a w x h placeholder carrying msg under the "error"
// key. The pixels depend only on the size, so equal sizes compare
// identical.
func ErrorImage(msg string, w, h int) *Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{errorBackground}, image.Point{}, draw.Src)

	for x := 0; x < w; x++ {
		img.SetRGBA(x, 0, errorMark)
		img.SetRGBA(x, h-1, errorMark)
	}
	for y := 0; y < h; y++ {
		img.SetRGBA(0, y, errorMark)
		img.SetRGBA(w-1, y, errorMark)
	}
	// diagonal cross
	for x := 0; x < w; x++ {
		y := x * (h - 1) / max(w-1, 1)
		img.SetRGBA(x, y, errorMark)
		img.SetRGBA(x, h-1-y, errorMark)
	}
	return New(img, map[string]string{KeyError: msg})
}

// Diff compares a and b over the larger of their widths and heights.
// Pixels outside an image count as transparent black. Differing pixels are
// painted red in the returned image; matching pixels are kept, faded. The
// result's metadata holds "identical" (true/false) and "diff-pixel-count".
func Diff(a, b *Image) *Image {
	w := max(a.Width(), b.Width())
	h := max(a.Height(), b.Height())
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pa := pixel(a.Data, x, y)
			pb := pixel(b.Data, x, y)
			if pa != pb {
				count++
				out.SetRGBA(x, y, diffMark)
				continue
			}
			pa.A /= 4
			pa.R /= 4
			pa.G /= 4
			pa.B /= 4
			out.SetRGBA(x, y, pa)
		}
	}

	identical := "false"
	if count == 0 {
		identical = "true"
	}
	return New(out, map[string]string{
		KeyIdentical:      identical,
		KeyDiffPixelCount: fmt.Sprintf("%d", count),
	})
}

func pixel(img *image.RGBA, x, y int) color.RGBA {
	p := image.Point{X: x, Y: y}.Add(img.Bounds().Min)
	if !p.In(img.Bounds()) {
		return color.RGBA{}
	}
	return img.RGBAAt(p.X, p.Y)
}
