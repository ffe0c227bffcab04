package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildZip(t *testing.T, members map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, data := range members {
		w, err := writer.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestExtractor_Text_InvalidData(t *testing.T) {
	extractor := NewExtractor(zap.NewNop())

	_, err := extractor.Text([]byte("this is not a pdf"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open PDF")
}

func TestExtractor_Archive_InvalidData(t *testing.T) {
	extractor := NewExtractor(zap.NewNop())

	_, err := extractor.Archive([]byte("this is not a zip"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ZIP file format")
}

func TestExtractor_Archive_NoDocuments(t *testing.T) {
	extractor := NewExtractor(zap.NewNop())

	tests := []struct {
		name    string
		members map[string][]byte
	}{
		{
			name:    "empty archive",
			members: map[string][]byte{},
		},
		{
			name: "no pdf members",
			members: map[string][]byte{
				"notes.txt":  []byte("hello"),
				"image.jpeg": {0xFF, 0xD8},
			},
		},
		{
			name: "only macos metadata",
			members: map[string][]byte{
				"__MACOSX/invoice1.pdf": []byte("resource fork"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractor.Archive(buildZip(t, tt.members))
			assert.ErrorIs(t, err, ErrNoDocuments)
		})
	}
}

func TestExtractor_Archive_SkipsNonPDFMembers(t *testing.T) {
	extractor := NewExtractor(zap.NewNop())

	data := buildZip(t, map[string][]byte{
		"notes.txt":             []byte("hello"),
		"__MACOSX/invoice1.pdf": []byte("resource fork"),
		"inv/invoice1.pdf":      []byte("garbage bytes"),
	})

	docs, err := extractor.Archive(data)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "inv/invoice1.pdf", docs[0].Path)
}

func TestExtractor_Archive_UppercaseExtension(t *testing.T) {
	extractor := NewExtractor(zap.NewNop())

	data := buildZip(t, map[string][]byte{
		"inv/INVOICE1.PDF": []byte("garbage bytes"),
	})

	docs, err := extractor.Archive(data)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "inv/INVOICE1.PDF", docs[0].Path)
}

func TestExtractor_Archive_UnreadableMemberGetsSentinelText(t *testing.T) {
	extractor := NewExtractor(zap.NewNop())

	// Not a real PDF, extraction fails and the error is embedded in the text
	data := buildZip(t, map[string][]byte{
		"inv/broken1.pdf": []byte("garbage bytes"),
	})

	docs, err := extractor.Archive(data)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, strings.HasPrefix(docs[0].Text, "[Error reading PDF:"),
		"got text %q", docs[0].Text)
}

func TestExtractor_Archive_PreservesArchiveOrder(t *testing.T) {
	extractor := NewExtractor(zap.NewNop())

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, name := range []string{"a/inv1.pdf", "b/inv2.pdf", "c/inv3.pdf"} {
		w, err := writer.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	docs, err := extractor.Archive(buf.Bytes())

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a/inv1.pdf", docs[0].Path)
	assert.Equal(t, "b/inv2.pdf", docs[1].Path)
	assert.Equal(t, "c/inv3.pdf", docs[2].Path)
}
