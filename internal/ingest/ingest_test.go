package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/chatreport/internal/archive"
	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time { return time.Date(2026, 3, 4, 10, 11, 12, 0, time.UTC) }

func newPipeline(t *testing.T) *Pipeline {
	return New(Options{
		DateOrder:      transcript.DayFirst,
		Now:            fixedNow,
		WorkDir:        t.TempDir(),
		ValidateImages: true,
	}, testLogger())
}

func zipOf(t *testing.T, files map[string][]byte) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

const chat = "[01/02/24, 9:15:00 PM] Luis: <attached: photo1.jpg>\n" +
	"12/5/23, 14:05 - Ana: Hello there\n" +
	"second line\n" +
	"third line\n"

func TestOpen_ResolvesAttachments(t *testing.T) {
	r := zipOf(t, map[string][]byte{
		"Obra Norte_chat.txt": []byte(chat),
		"photo1.jpg":          pngBytes(t),
	})

	res, err := newPipeline(t).Open(context.Background(), r, r.Size(), "export.zip")
	require.NoError(t, err)
	defer res.Close()

	ds := res.Dataset
	assert.Equal(t, "Obra Norte", ds.Name)
	require.Equal(t, 2, ds.Len())

	assert.Equal(t, transcript.TypeImage, ds.Messages[0].Type)
	assert.Equal(t, "photo1.jpg", ds.Messages[0].AttachmentFilename)
	assert.Equal(t, "Hello there\nsecond line\nthird line", ds.Messages[1].Content)
	assert.Equal(t, []string{"Ana", "Luis"}, ds.Participants)
	assert.Equal(t, chat, res.Text)
	assert.Equal(t, int64(len(chat)), res.TranscriptSize)
}

func TestOpen_MissingAttachmentIsNotFatal(t *testing.T) {
	r := zipOf(t, map[string][]byte{"_chat.txt": []byte(chat)})

	res, err := newPipeline(t).Open(context.Background(), r, r.Size(), "Proyecto Sur.zip")
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, "Proyecto Sur", res.Dataset.Name)
	assert.Equal(t, transcript.TypeImage, res.Dataset.Messages[0].Type)
	assert.Empty(t, res.Dataset.Messages[0].AttachmentFilename)
}

func TestOpen_NoTranscript(t *testing.T) {
	p := newPipeline(t)
	r := zipOf(t, map[string][]byte{"photo1.jpg": pngBytes(t)})

	_, err := p.Open(context.Background(), r, r.Size(), "export.zip")

	assert.True(t, errors.Is(err, ErrNoTranscript))
	leftovers, _ := os.ReadDir(p.opts.WorkDir)
	assert.Empty(t, leftovers)
}

func TestOpen_RejectsNonZip(t *testing.T) {
	p := newPipeline(t)

	r := bytes.NewReader([]byte("hello"))
	_, err := p.Open(context.Background(), r, r.Size(), "chat.txt")
	assert.True(t, errors.Is(err, ErrNotZip))

	_, err = p.Open(context.Background(), r, r.Size(), "fake.zip")
	assert.True(t, errors.Is(err, ErrNotZip))
}

func TestOpen_UnsafeEntry(t *testing.T) {
	r := zipOf(t, map[string][]byte{"../../etc/passwd.txt": []byte("x")})

	_, err := newPipeline(t).Open(context.Background(), r, r.Size(), "evil.zip")

	assert.True(t, errors.Is(err, archive.ErrUnsafePath))
}

func TestOpen_Idempotent(t *testing.T) {
	p := newPipeline(t)
	body := map[string][]byte{"_chat.txt": []byte(chat + "[31/31/24, 99:99] Ana: odd\n")}

	r1 := zipOf(t, body)
	first, err := p.Open(context.Background(), r1, r1.Size(), "a.zip")
	require.NoError(t, err)
	defer first.Close()

	r2 := zipOf(t, body)
	second, err := p.Open(context.Background(), r2, r2.Size(), "a.zip")
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, first.Dataset.Messages, second.Dataset.Messages)
	assert.Equal(t, first.Dataset.Participants, second.Dataset.Participants)
}

func TestOpenFile(t *testing.T) {
	r := zipOf(t, map[string][]byte{"_chat.txt": []byte(chat)})
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "Equipo.zip")
	require.NoError(t, os.WriteFile(file, raw, 0o644))

	res, err := newPipeline(t).OpenFile(context.Background(), file)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, "Equipo", res.Dataset.Name)
}

func TestResultClose_RemovesWorkspace(t *testing.T) {
	r := zipOf(t, map[string][]byte{"_chat.txt": []byte(chat)})
	res, err := newPipeline(t).Open(context.Background(), r, r.Size(), "a.zip")
	require.NoError(t, err)

	res.Close()

	_, err = os.Stat(res.Workspace.Dir)
	assert.True(t, os.IsNotExist(err))
}
