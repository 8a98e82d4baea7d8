package player

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// MprisSource reads playback state over the MPRIS D-Bus interface.
type MprisSource struct {
	bus     *dbus.Conn
	service string
}

// NewMprisSource connects to the session bus. An empty service discovers the
// first MPRIS-capable player on the bus per call.
func NewMprisSource(service string) (*MprisSource, error) {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if service != "" && !strings.HasPrefix(service, mprisPrefix) {
		service = mprisPrefix + service
	}
	return &MprisSource{bus: bus, service: service}, nil
}

func (s *MprisSource) Name() string {
	return "mpris"
}

func (s *MprisSource) Close() error {
	return s.bus.Close()
}

// resolveService returns the configured service, or the first
// org.mpris.MediaPlayer2.* name currently on the bus.
func (s *MprisSource) resolveService() (string, error) {
	if s.service != "" {
		return s.service, nil
	}

	var names []string
	err := s.bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return "", fmt.Errorf("failed to list bus names: %w", err)
	}
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			return name, nil
		}
	}
	return "", errors.New("no mpris player found on session bus")
}

func (s *MprisSource) CurrentTrack() (*Track, error) {
	service, err := s.resolveService()
	if err != nil {
		return nil, err
	}

	obj := s.bus.Object(service, mprisPath)
	prop, err := obj.GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	track := &Track{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		DurationMs: extractLengthMs(metadata, "mpris:length"),
	}
	track.ID = extractString(metadata, "mpris:trackid")
	if track.ID == "" {
		track.ID = track.Artist + " - " + track.Title
	}

	if track.Title == "" {
		return nil, errors.New("missing title in mpris metadata")
	}
	return track, nil
}

func (s *MprisSource) Sample() (Sample, error) {
	service, err := s.resolveService()
	if err != nil {
		return Sample{}, err
	}

	obj := s.bus.Object(service, mprisPath)

	statusProp, err := obj.GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return Sample{}, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, _ := statusProp.Value().(string)

	posProp, err := obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return Sample{}, fmt.Errorf("failed to get position property: %w", err)
	}
	positionMicros, ok := posProp.Value().(int64)
	if !ok {
		return Sample{}, fmt.Errorf("unexpected position type %T", posProp.Value())
	}
	if positionMicros < 0 {
		positionMicros = 0
	}

	return Sample{
		PositionMs: positionMicros / 1000,
		Playing:    status == "Playing",
	}, nil
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}
	if text, ok := variant.Value().(string); ok {
		return text
	}
	return ""
}

// extractArtist handles both the standard string list and the bare string
// some players emit.
func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}
	switch typed := variant.Value().(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
		return ""
	case string:
		return typed
	default:
		return ""
	}
}

func extractLengthMs(metadata map[string]dbus.Variant, key string) int64 {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}
	switch typed := variant.Value().(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return typed / 1000
	case uint64:
		return int64(typed / 1000)
	default:
		return 0
	}
}
