package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMedia(t *testing.T) {
	tests := map[string]MediaKind{
		"a.wav":           MediaAudio,
		"a.MP3":           MediaAudio,
		"dir/b.m4a":       MediaAudio,
		"clip.mp4":        MediaVideo,
		"clip.AVI":        MediaVideo,
		"x/y/z.mkv":       MediaVideo,
		"movie.Mov":       MediaVideo,
		"notes.pdf":       MediaUnsupported,
		"README":          MediaUnsupported,
		"dir.mp4/readme":  MediaUnsupported,
		"archive.mp3.zip": MediaUnsupported,
		".mp3":            MediaAudio,
	}
	for key, want := range tests {
		assert.Equal(t, want, ClassifyMedia(key), key)
	}
}

func TestDerivedKeys(t *testing.T) {
	assert.Equal(t, "clip.json", TranscriptKey("clip.mp4"))
	assert.Equal(t, "clip.txt", SummaryKey("clip.mp4"))
	assert.Equal(t, "a/b/talk.json", TranscriptKey("a/b/talk.mp3"))
	assert.Equal(t, "a/b/talk.txt", SummaryKey("a/b/talk.mp3"))
	assert.Equal(t, "v1.2/rec.json", TranscriptKey("v1.2/rec.wav"))
	assert.Equal(t, "noext.json", TranscriptKey("noext"))
}

func TestDerivedKeysAreStable(t *testing.T) {
	for _, key := range []string{"clip.mp4", "a/b/Talk.MP3", "x.y.z.mov"} {
		assert.Equal(t, TranscriptKey(key), TranscriptKey(key))
		assert.Equal(t, SummaryKey(key), SummaryKey(key))
		assert.NotEqual(t, TranscriptKey(key), SummaryKey(key))
	}
}
