package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/colorutil"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/valyala/fastjson"
)

var (
	ErrInvalidHeader = errors.New("invalid catalog file header")
	ErrTruncated     = errors.New("catalog file truncated")
)

// MaxCatalogSize bounds the decompressed size of a packed catalog.
const MaxCatalogSize = 256 << 20

// lz4MaxRatio is the largest expansion an lz4 block can encode.
const lz4MaxRatio = 255

// CatalogReader decodes family metadata files. It is safe for concurrent use.
type CatalogReader struct {
	decoder *zstd.Decoder
	parsers fastjson.ParserPool
}

func NewCatalogReader() (*CatalogReader, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxCatalogSize))
	if err != nil {
		return nil, err
	}
	return &CatalogReader{decoder: dec}, nil
}

// ReadFile loads the catalog stored at path.
func (cr *CatalogReader) ReadFile(path string) (map[string]model.Emoji, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cr.Decode(data)
}

// Decode accepts either a packed file (see CatalogWriter.WriteFile) or a
// plain JSON object of id -> emoji.
func (cr *CatalogReader) Decode(data []byte) (map[string]model.Emoji, error) {
	raw := data
	expected := -1

	if bytes.HasPrefix(data, MagicHeader) {
		var err error
		raw, expected, err = cr.unframe(data)
		if err != nil {
			return nil, err
		}
	} else if len(data) > 0 && data[0] != '{' && !isSpaceByte(data[0]) {
		return nil, ErrInvalidHeader
	}

	p := cr.parsers.Get()
	defer cr.parsers.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	out := make(map[string]model.Emoji, obj.Len())
	var perr error
	obj.Visit(func(key []byte, val *fastjson.Value) {
		if perr != nil {
			return
		}
		e, err := parseEmoji(val)
		if err != nil {
			perr = fmt.Errorf("emoji %q: %w", key, err)
			return
		}
		if e.ID == "" {
			e.ID = string(key)
		}
		out[string(key)] = e
	})
	if perr != nil {
		return nil, perr
	}

	if expected >= 0 && expected != len(out) {
		return nil, fmt.Errorf("%w: footer says %d records, found %d", ErrTruncated, expected, len(out))
	}
	return out, nil
}

func (cr *CatalogReader) unframe(data []byte) ([]byte, int, error) {
	if len(data) < frameOverhead {
		return nil, 0, ErrTruncated
	}
	body := data[len(MagicHeader):]
	codec := Codec(body[0])
	rawSize := int(binary.LittleEndian.Uint32(body[1:5]))
	size := int(binary.LittleEndian.Uint32(body[5:9]))
	if len(body) != 9+size+4 {
		return nil, 0, ErrTruncated
	}
	payload := body[9 : 9+size]
	count := int(binary.LittleEndian.Uint32(body[9+size:]))

	// The header is untrusted: bound it before allocating.
	if rawSize > MaxCatalogSize {
		return nil, 0, fmt.Errorf("%w: raw size %d exceeds %d", ErrInvalidHeader, rawSize, MaxCatalogSize)
	}

	var raw []byte
	switch codec {
	case CodecZstd:
		var err error
		raw, err = cr.decoder.DecodeAll(payload, make([]byte, 0, min(rawSize, 4*size)))
		if err != nil {
			return nil, 0, fmt.Errorf("decompress catalog: %w", err)
		}
	case CodecLZ4:
		if rawSize > lz4MaxRatio*size+16 {
			return nil, 0, fmt.Errorf("%w: raw size %d impossible for %d byte payload", ErrInvalidHeader, rawSize, size)
		}
		raw = make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, 0, fmt.Errorf("decompress catalog: %w", err)
		}
		raw = raw[:n]
	default:
		return nil, 0, fmt.Errorf("%w: codec %d", ErrInvalidHeader, codec)
	}

	if len(raw) != rawSize {
		return nil, 0, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrTruncated, len(raw), rawSize)
	}
	return raw, count, nil
}

// Close releases the decoder.
func (cr *CatalogReader) Close() {
	cr.decoder.Close()
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func parseEmoji(v *fastjson.Value) (model.Emoji, error) {
	if v.Type() != fastjson.TypeObject {
		return model.Emoji{}, errors.New("not an object")
	}

	e := model.Emoji{
		ID:            string(v.GetStringBytes("id")),
		CLDR:          string(v.GetStringBytes("cldr")),
		Group:         string(v.GetStringBytes("group")),
		TTS:           string(v.GetStringBytes("tts")),
		Family:        string(v.GetStringBytes("family")),
		FamilyVersion: string(v.GetStringBytes("familyVersion")),
		Glyph:         string(v.GetStringBytes("glyph")),
		DefaultStyle:  string(v.GetStringBytes("defaultStyle")),
	}
	if e.Group == "" {
		e.Group = model.MissingGroup
	}

	for _, k := range v.GetArray("keywords") {
		e.Keywords = append(e.Keywords, string(k.GetStringBytes()))
	}

	styles := v.GetObject("styles")
	if styles != nil {
		e.Styles = make(map[string]model.Style, styles.Len())
		var serr error
		styles.Visit(func(key []byte, sv *fastjson.Value) {
			if serr != nil {
				return
			}
			s, err := parseStyle(sv)
			if err != nil {
				serr = fmt.Errorf("style %q: %w", key, err)
				return
			}
			e.Styles[string(key)] = s
		})
		if serr != nil {
			return model.Emoji{}, serr
		}
	}

	return e, nil
}

func parseStyle(v *fastjson.Value) (model.Style, error) {
	if v.Type() != fastjson.TypeObject {
		return model.Style{}, errors.New("not an object")
	}

	s := model.Style{
		ID:     string(v.GetStringBytes("id")),
		Label:  string(v.GetStringBytes("label")),
		URL:    string(v.GetStringBytes("url")),
		Group:  string(v.GetStringBytes("group")),
		IsSvg:  v.GetBool("isSvg"),
		Height: optionalInt(v, "height"),
		Width:  optionalInt(v, "width"),
		X:      optionalInt(v, "x"),
		Y:      optionalInt(v, "y"),
	}

	for _, sw := range v.GetArray("colorPalette") {
		s.ColorPalette = append(s.ColorPalette, model.Swatch{
			Hex:         string(sw.GetStringBytes("hex")),
			RGB:         colorutil.RGB(intTriple(sw.GetArray("rgb"))),
			HSL:         floatTriple(sw.GetArray("hsl")),
			CIELAB:      colorutil.Lab(floatTriple(sw.GetArray("CIELAB"))),
			Occurrences: sw.GetInt("occurrences"),
		})
	}
	return s, nil
}

func optionalInt(v *fastjson.Value, key string) *int {
	f := v.Get(key)
	if f == nil || f.Type() != fastjson.TypeNumber {
		return nil
	}
	n := f.GetInt()
	return &n
}

func intTriple(vals []*fastjson.Value) [3]int {
	var out [3]int
	for i := 0; i < len(vals) && i < 3; i++ {
		out[i] = vals[i].GetInt()
	}
	return out
}

func floatTriple(vals []*fastjson.Value) [3]float64 {
	var out [3]float64
	for i := 0; i < len(vals) && i < 3; i++ {
		out[i] = vals[i].GetFloat64()
	}
	return out
}
