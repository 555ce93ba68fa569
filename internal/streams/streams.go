// Package streams lists and classifies the media stream files stored next to
// an episode's videoInfo.json.
package streams

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Kind tells whether a stream carries audio or video.
type Kind string

const (
	Audio   Kind = "audio"
	Video   Kind = "video"
	Unknown Kind = "unknown"
)

// streamPattern selects the stream files of one episode directory.
const streamPattern = "*.{m4s,mp4,m4a,mp3,flac}"

// Downloaded .m4s segments are prefixed with a run of ASCII zeros that must be
// skipped before the MP4 boxes start.
const paddingLen = 9

// sniffLen bounds how much of an MP4 stream is searched for a codec tag.
const sniffLen = 64 * 1024

// ErrNoStreamDir is returned when the episode directory does not exist.
var ErrNoStreamDir = errors.New("episode directory not found")

var (
	audioCodecs = []string{"mp4a", "ec-3", "ac-3", "fLaC", "Opus"}
	videoCodecs = []string{"avc1", "avc3", "hev1", "hvc1", "av01"}
)

// Stream describes one media file of an episode.
type Stream struct {
	Name            string   `json:"name"`
	Path            string   `json:"path"`
	Size            int64    `json:"size"`
	Kind            Kind     `json:"kind"`
	Container       string   `json:"container,omitempty"`
	Codec           string   `json:"codec,omitempty"`
	Title           *string  `json:"title,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// Find lists the streams stored in root/<cid>, sorted by name.
func Find(root, cid string) ([]Stream, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" || cid != filepath.Base(cid) || cid == "." || cid == ".." {
		return nil, fmt.Errorf("invalid episode id %q", cid)
	}

	dir := filepath.Join(root, cid)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoStreamDir, dir)
	}

	names, err := doublestar.Glob(os.DirFS(dir), streamPattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	streams := make([]Stream, 0, len(names))
	for _, name := range names {
		s, err := Inspect(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		streams = append(streams, s)
	}
	return streams, nil
}

// Inspect classifies a single stream file.
func Inspect(path string) (Stream, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stream{}, err
	}
	if info.IsDir() {
		return Stream{}, fmt.Errorf("%s is a directory", path)
	}

	s := Stream{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
		Kind: Unknown,
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s.Kind = Audio
		s.Container = string(tag.MP3)
		s.Title = readTitle(path)
		if dur, err := computeMP3Duration(path); err == nil && dur > 0 {
			s.DurationSeconds = &dur
		}
	case ".flac":
		s.Kind = Audio
		s.Container = string(tag.FLAC)
		s.Title = readTitle(path)
	default:
		// Unidentifiable containers stay Unknown rather than failing the listing.
		if err := inspectMP4(path, info.Size(), &s); err == nil && strings.EqualFold(filepath.Ext(path), ".m4a") {
			s.Title = readTitle(path)
		}
	}
	return s, nil
}

func inspectMP4(path string, size int64, s *Stream) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	offset := int64(0)
	head := make([]byte, paddingLen)
	if n, _ := io.ReadFull(f, head); n == paddingLen && bytes.Count(head, []byte{'0'}) == paddingLen {
		offset = paddingLen
	}
	section := io.NewSectionReader(f, offset, size-offset)

	format, _, err := tag.Identify(section)
	if err != nil {
		return err
	}
	s.Container = string(format)
	if format != tag.MP4 {
		return nil
	}

	if _, err := section.Seek(0, io.SeekStart); err != nil {
		return err
	}
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(section, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	s.Kind, s.Codec = classify(buf[:n])
	return nil
}

// classify returns the kind of the first codec sample entry found in data,
// looking past the sample description box when there is one.
func classify(data []byte) (Kind, string) {
	if i := bytes.Index(data, []byte("stsd")); i >= 0 {
		data = data[i:]
	}
	best, kind, codec := -1, Unknown, ""
	scan := func(codecs []string, k Kind) {
		for _, c := range codecs {
			if i := bytes.Index(data, []byte(c)); i >= 0 && (best < 0 || i < best) {
				best, kind, codec = i, k, c
			}
		}
	}
	scan(audioCodecs, Audio)
	scan(videoCodecs, Video)
	return kind, codec
}

func readTitle(path string) *string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}
	return optionalString(meta.Title())
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func computeMP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped, frames int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			// A download cut mid-frame still has a usable duration.
			if errors.Is(err, io.EOF) || (errors.Is(err, io.ErrUnexpectedEOF) && frames > 0) {
				break
			}
			return 0, err
		}
		frames++
		total += frame.Duration().Seconds()
	}

	if frames == 0 {
		return 0, errors.New("no mp3 frames found")
	}
	return total, nil
}
