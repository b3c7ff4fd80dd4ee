package attachment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

type mapMedia map[string]string

func (m mapMedia) Lookup(name string) (string, bool) {
	p, ok := m[name]
	return p, ok
}

func msg(sender, content string) transcript.Message {
	return transcript.Message{
		Timestamp: time.Date(2024, 2, 1, 21, 15, 0, 0, time.UTC),
		Sender:    sender,
		Content:   content,
		Type:      transcript.Classify(content),
		DateText:  "01/02/24",
		TimeText:  "9:15:00",
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"plain", "<attached: photo1.jpg>", "photo1.jpg", true},
		{"no space", "<attached:photo1.jpg>", "photo1.jpg", true},
		{"lrm prefix", "\u200e<attached: 00000012-PHOTO.jpg>", "00000012-PHOTO.jpg", true},
		{"upper case ext", "see <attached: Report.PDF> please", "Report.PDF", true},
		{"spaces in name", "<attached: my file.docx>", "my file.docx", true},
		{"no extension", "<attached: photo>", "", false},
		{"not a marker", "just text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Find(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindAll_And_Strip(t *testing.T) {
	content := "before <attached: a.jpg>\nmiddle \u200e<attached: b.png> after"

	assert.Equal(t, []string{"a.jpg", "b.png"}, FindAll(content))
	assert.Equal(t, "before \nmiddle  after", Strip(content))
	assert.Empty(t, Strip("<attached: a.jpg>"))
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	media := mapMedia{"photo1.jpg": "/tmp/ws/photo1.jpg"}
	in := []transcript.Message{
		msg("Luis", "<attached: photo1.jpg>"),
		msg("Ana", "<attached: missing.jpg>"),
		msg("Ana", "plain"),
	}

	out := Resolve(in, media)

	require.Len(t, out, 3)
	assert.Equal(t, "photo1.jpg", out[0].AttachmentFilename)
	assert.Empty(t, out[1].AttachmentFilename)
	assert.Empty(t, out[2].AttachmentFilename)
	assert.Empty(t, in[0].AttachmentFilename)
}

func TestRender_StripModeFoundAttachment(t *testing.T) {
	media := mapMedia{"photo1.jpg": "/tmp/ws/photo1.jpg"}

	r := Render(msg("Luis", "<attached: photo1.jpg>"), media, ModeStrip)

	assert.Empty(t, r.Text)
	assert.Equal(t, "photo1.jpg", r.Filename)
	assert.Equal(t, "/tmp/ws/photo1.jpg", r.Path)
	assert.False(t, r.Missing)
	assert.True(t, r.HasAttachment())
}

func TestRender_PreserveModeKeepsText(t *testing.T) {
	media := mapMedia{"photo1.jpg": "/tmp/ws/photo1.jpg"}
	content := "look <attached: photo1.jpg>"

	r := Render(msg("Luis", content), media, ModePreserve)

	assert.Equal(t, content, r.Text)
	assert.Equal(t, "/tmp/ws/photo1.jpg", r.Path)
}

func TestRender_MissingAttachment(t *testing.T) {
	r := Render(msg("Ana", "<attached: photo2.jpg>"), mapMedia{}, ModeStrip)

	assert.True(t, r.Missing)
	assert.Empty(t, r.Path)
	assert.Equal(t, "photo2.jpg", r.Filename)
	assert.Contains(t, MissingMarker(r.Filename), "photo2.jpg")
}

func TestRender_NoMarker(t *testing.T) {
	r := Render(msg("Ana", "hello"), mapMedia{}, ModeStrip)

	assert.Equal(t, "hello", r.Text)
	assert.False(t, r.HasAttachment())
	assert.False(t, r.Missing)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStrip, m)

	m, err = ParseMode("PRESERVE")
	require.NoError(t, err)
	assert.Equal(t, ModePreserve, m)
	assert.Equal(t, "preserve", m.String())

	_, err = ParseMode("inline")
	assert.Error(t, err)
}

func TestCollectEvidence_DeduplicatesByFilename(t *testing.T) {
	media := mapMedia{
		"a.jpg": "/ws/a.jpg",
		"b.pdf": "/ws/b.pdf",
	}
	msgs := []transcript.Message{
		msg("Ana", "<attached: a.jpg>"),
		msg("Luis", "again <attached: a.jpg>"),
		msg("Luis", "<attached: b.pdf>"),
		msg("Ana", "<attached: gone.jpg>"),
	}

	all := CollectEvidence(msgs, media, nil)
	require.Len(t, all, 3)
	assert.Equal(t, "a.jpg", all[0].Filename)
	assert.Equal(t, "Ana", all[0].Sender)
	assert.Equal(t, "b.pdf", all[1].Filename)
	assert.True(t, all[2].Missing)

	images := CollectEvidence(msgs, media, func(name string) bool {
		return name != "b.pdf"
	})
	require.Len(t, images, 2)
	assert.Equal(t, "a.jpg", images[0].Filename)
	assert.Equal(t, "gone.jpg", images[1].Filename)
}

func TestEvidenceCaption(t *testing.T) {
	ev := Evidence{Filename: "a.jpg", Sender: "Ana", DateText: "01/02/24", TimeText: "9:15"}
	assert.Equal(t, "Sent 01/02/24 9:15 by Ana", ev.Caption())
	assert.Equal(t, "a.jpg", Evidence{Filename: "a.jpg"}.Caption())
}
