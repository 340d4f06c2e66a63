package entity

import (
	"path"
	"strings"
)

type MediaKind string

const (
	MediaAudio       MediaKind = "audio"
	MediaVideo       MediaKind = "video"
	MediaUnsupported MediaKind = "unsupported"
)

const (
	TranscriptExt = ".json"
	SummaryExt    = ".txt"
)

var (
	audioExtensions = map[string]struct{}{".wav": {}, ".mp3": {}, ".m4a": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}}
)

// ClassifyMedia infers the media kind from the object key's extension,
// ignoring case.
func ClassifyMedia(key string) MediaKind {
	ext := strings.ToLower(path.Ext(key))
	if _, ok := audioExtensions[ext]; ok {
		return MediaAudio
	}
	if _, ok := videoExtensions[ext]; ok {
		return MediaVideo
	}
	return MediaUnsupported
}

// TranscriptKey derives the sibling key the transcript of key is stored under.
func TranscriptKey(key string) string {
	return stem(key) + TranscriptExt
}

// SummaryKey derives the sibling key the summary of key is stored under.
func SummaryKey(key string) string {
	return stem(key) + SummaryExt
}

func stem(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}

// MediaFile is the local working copy of a source object.
type MediaFile struct {
	Path string
	Kind MediaKind
	Size int64
}
