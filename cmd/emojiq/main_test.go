package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plain = `{
  "e1": {"id": "e1", "cldr": "grinning face", "group": "Smileys & Emotion", "keywords": ["face", "smile"], "tts": "grinning face"},
  "e2": {"id": "e2", "cldr": "red apple", "group": "Food & Drink", "keywords": ["fruit"], "tts": "red apple"}
}`

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestPackUnpackSearch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.json")
	require.NoError(t, os.WriteFile(src, []byte(plain), 0644))

	packed := filepath.Join(dir, "data", model.FamilyNoto.MetadataFile())
	code, _, stderr := runCmd(t, "pack", "-codec", "lz4", src, packed)
	require.Equal(t, 0, code, stderr)

	raw, err := os.ReadFile(packed)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, storage.MagicHeader))

	code, stdout, stderr := runCmd(t, "search", "-data", filepath.Join(dir, "data"), "-family", "noto", "-json", `keyword:"fruit"`)
	require.Equal(t, 0, code, stderr)
	var got []model.Emoji
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "e2", got[0].ID)

	code, stdout, _ = runCmd(t, "search", "-data", filepath.Join(dir, "data"), "-family", "noto")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "grinning face")
	assert.Contains(t, stdout, "2 of 2 matches")

	out := filepath.Join(dir, "roundtrip.json")
	code, _, stderr = runCmd(t, "unpack", packed, out)
	require.Equal(t, 0, code, stderr)
	raw, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), raw[0])
}

func TestExplainAndTokens(t *testing.T) {
	code, stdout, _ := runCmd(t, "explain", `keyword:"a"`, "|", `group:"b"`)
	require.Equal(t, 0, code)
	assert.Equal(t, "OR(keyword:\"a\", group:\"b\")\n", stdout)

	code, stdout, _ = runCmd(t, "tokens", `!id:"x"`)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "NOT")
	assert.Contains(t, stdout, "FILTER_NAME")
	assert.Contains(t, stdout, `"x"`)
}

func TestErrors(t *testing.T) {
	code, _, stderr := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage")

	code, _, _ = runCmd(t, "frobnicate")
	assert.Equal(t, 2, code)

	code, _, stderr = runCmd(t, "explain", "(")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Unexpected token or empty filter list")

	code, _, _ = runCmd(t, "pack", "only-one-arg")
	assert.Equal(t, 2, code)

	code, _, stderr = runCmd(t, "search", "-family", "twemoji")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "twemoji")
}
