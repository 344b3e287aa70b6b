package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// MagicHeader starts every packed catalog file. Files without it are read as
// plain JSON.
var MagicHeader = []byte("EMOJIDB1")

// header + codec + raw size + payload size + record count
const frameOverhead = 8 + 1 + 4 + 4 + 4

// Codec selects the compression of a packed catalog.
type Codec uint8

const (
	CodecZstd Codec = 1
	CodecLZ4  Codec = 2
)

// ParseCodec maps "zstd" and "lz4" to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "zstd", "":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	}
	return 0, fmt.Errorf("unknown codec %q", name)
}

// CatalogWriter writes family metadata files.
type CatalogWriter struct {
	encoder *zstd.Encoder
	// Codec used when packing. Defaults to CodecZstd.
	Codec Codec
}

func NewCatalogWriter() (*CatalogWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &CatalogWriter{encoder: enc, Codec: CodecZstd}, nil
}

// WriteFile stores the catalog at path, replacing any existing file atomically.
// With pack set the JSON is compressed inside the framed layout:
//
//	MagicHeader | codec (uint8) | raw size (uint32) | payload size (uint32) | payload | record count (uint32)
func (cw *CatalogWriter) WriteFile(path string, emojis map[string]model.Emoji, pack bool) error {
	raw, err := json.Marshal(emojis)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	data := raw
	if pack {
		data, err = cw.frame(raw, uint32(len(emojis)))
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (cw *CatalogWriter) frame(raw []byte, count uint32) ([]byte, error) {
	var compressed []byte
	switch cw.Codec {
	case CodecZstd:
		compressed = cw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4))
	case CodecLZ4:
		compressed = make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("lz4 compress: catalog is incompressible")
		}
		compressed = compressed[:n]
	default:
		return nil, fmt.Errorf("unknown codec %d", cw.Codec)
	}

	buf := bytes.NewBuffer(make([]byte, 0, frameOverhead+len(compressed)))
	buf.Write(MagicHeader)
	buf.WriteByte(byte(cw.Codec))
	binary.Write(buf, binary.LittleEndian, uint32(len(raw)))
	binary.Write(buf, binary.LittleEndian, uint32(len(compressed)))
	buf.Write(compressed)
	binary.Write(buf, binary.LittleEndian, count)
	return buf.Bytes(), nil
}

// Close releases the encoder.
func (cw *CatalogWriter) Close() error {
	return cw.encoder.Close()
}
