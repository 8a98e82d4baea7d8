package player

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Track identifies the currently loaded song.
type Track struct {
	ID         string
	Title      string
	Artist     string
	Album      string
	DurationMs int64
}

// Sample is one playback position reading.
type Sample struct {
	PositionMs int64
	Playing    bool
}

// Source reads playback state from a media player.
type Source interface {
	CurrentTrack() (*Track, error)
	Sample() (Sample, error)
	Name() string
}

// New builds the playback source named by backend.
func New(backend string) (Source, error) {
	switch backend {
	case "mpris", "":
		return NewMprisSource("")
	case "playerctl":
		return NewPlayerctlSource(), nil
	default:
		return nil, fmt.Errorf("unknown player backend: %s", backend)
	}
}

// PlayerctlSource shells out to the playerctl binary.
type PlayerctlSource struct{}

func NewPlayerctlSource() *PlayerctlSource {
	return &PlayerctlSource{}
}

func (s *PlayerctlSource) Name() string {
	return "playerctl"
}

func (s *PlayerctlSource) CurrentTrack() (*Track, error) {
	cmd := exec.Command("playerctl", "metadata", "--format", `{{artist}}|{{title}}|{{album}}|{{mpris:length}}|{{mpris:trackid}}`)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("playerctl metadata failed: %w", err)
	}

	fields := strings.SplitN(strings.TrimSpace(string(output)), "|", 5)
	if len(fields) < 2 {
		return nil, fmt.Errorf("unexpected playerctl output: %q", string(output))
	}

	track := &Track{
		Artist: strings.TrimSpace(fields[0]),
		Title:  strings.TrimSpace(fields[1]),
	}
	if len(fields) > 2 {
		track.Album = strings.TrimSpace(fields[2])
	}
	if len(fields) > 3 {
		if lengthMicros, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64); err == nil {
			track.DurationMs = lengthMicros / 1000
		}
	}
	if len(fields) > 4 && strings.TrimSpace(fields[4]) != "" {
		track.ID = strings.TrimSpace(fields[4])
	} else {
		track.ID = track.Artist + " - " + track.Title
	}

	if track.Title == "" {
		return nil, fmt.Errorf("no track title in playerctl metadata")
	}
	return track, nil
}

func (s *PlayerctlSource) Sample() (Sample, error) {
	statusOut, err := exec.Command("playerctl", "status").Output()
	if err != nil {
		return Sample{}, fmt.Errorf("playerctl status failed: %w", err)
	}
	playing := strings.TrimSpace(string(statusOut)) == "Playing"

	posOut, err := exec.Command("playerctl", "position").Output()
	if err != nil {
		return Sample{}, fmt.Errorf("playerctl position failed: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(posOut)), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("unexpected playerctl position: %w", err)
	}

	return Sample{PositionMs: int64(seconds * 1000), Playing: playing}, nil
}
