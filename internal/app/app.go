package app

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SebastianCl/letra-cancion/internal/config"
	"github.com/SebastianCl/letra-cancion/internal/i3block"
	"github.com/SebastianCl/letra-cancion/internal/ipc"
	"github.com/SebastianCl/letra-cancion/internal/lyrics"
	"github.com/SebastianCl/letra-cancion/internal/player"
	"github.com/SebastianCl/letra-cancion/internal/syncer"
	"github.com/SebastianCl/letra-cancion/internal/translate"
	"github.com/SebastianCl/letra-cancion/pkg/fileutil"
	"github.com/SebastianCl/letra-cancion/pkg/music"
	goredis "github.com/SebastianCl/letra-cancion/pkg/redis"
)

// statusFilePath is where the current line is mirrored for i3blocks.
const statusFilePath = "/tmp/letra_cancion_line"

// Track statuses broadcast to clients.
const (
	StatusIdle      = "idle"
	StatusSearching = "searching"
	StatusSynced    = "synced"
	StatusEstimated = "estimated"
	StatusNone      = "none"
)

// Payload is the state snapshot broadcast over IPC after every change.
type Payload struct {
	Status      string  `json:"status"`
	Track       string  `json:"track,omitempty"`
	Index       int     `json:"index"`
	Progress    float64 `json:"progress"`
	Text        string  `json:"text,omitempty"`
	Translation string  `json:"translation,omitempty"`
	Mode        string  `json:"mode"`
	OffsetMs    int64   `json:"offset_ms"`
	LineCount   int     `json:"line_count"`
}

type App struct {
	cfg         *config.Config
	ipcServer   *ipc.Server
	i3          *i3block.Controller
	source      player.Source
	engine      *syncer.Engine
	manager     *music.Manager
	lyricStore  translate.Store
	translator  *translate.Cache
	redisClient *goredis.Client

	mu             sync.Mutex
	currentTrackID string
	currentToken   string
	fetchCancel    context.CancelFunc
	track          *player.Track
	timeline       *lyrics.Timeline
	status         string
	translations   map[int]string
	translateOn    bool
}

func New(cfg *config.Config) *App {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	source, err := player.New(cfg.Player.Backend)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Player.Backend).Msg("Failed to create player source")
	}

	manager, err := music.CreateDefaultManager()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create lyrics provider chain")
	}

	a := &App{
		cfg:          cfg,
		i3:           i3block.NewController(),
		source:       source,
		manager:      manager,
		status:       StatusIdle,
		translations: make(map[int]string),
		translateOn:  cfg.Translation.Enabled,
		engine: syncer.New(syncer.Config{
			ManualTimeout:     cfg.Sync.ManualTimeout,
			TickInterval:      cfg.Sync.TickInterval,
			OffsetStepMs:      cfg.Sync.OffsetStepMs,
			MinLineDurationMs: cfg.Sync.MinLineDurationMs,
			DefaultDurationMs: cfg.Sync.DefaultDurationMs,
		}),
	}
	a.ipcServer = ipc.NewServer(cfg.App.SocketPath, a.handleIntent)

	if cfg.Redis.Enabled {
		client, err := goredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, falling back to file cache")
		} else {
			a.redisClient = client
		}
	}

	a.lyricStore = a.openStore("lyrics.cache")

	if cfg.Translation.Enabled {
		backend, err := translate.NewBackend(cfg.Translation)
		if err != nil {
			log.Warn().Err(err).Str("backend", cfg.Translation.Backend).Msg("Translation disabled")
			a.translateOn = false
		} else {
			a.translator = translate.NewCache(backend, a.openStore("translations.cache"))
		}
	}

	return a
}

// openStore picks redis when available, a disk-backed store otherwise.
func (a *App) openStore(filename string) translate.Store {
	if a.redisClient != nil {
		return translate.NewRedisStore(a.redisClient)
	}
	store, err := translate.NewFileStore(filepath.Join(a.cfg.App.CacheDir, filename))
	if err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Failed to open file cache, running without persistence")
		return nil
	}
	return store
}

func (a *App) Run() {
	if err := os.MkdirAll(a.cfg.App.CacheDir, 0755); err != nil {
		log.Fatal().Err(err).Str("cache_dir", a.cfg.App.CacheDir).Msg("Failed to create cache directory")
	}
	log.Info().Str("cache_dir", a.cfg.App.CacheDir).Msg("Cache directory")

	if err := a.ipcServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start IPC server")
	}
	defer a.ipcServer.Close()

	if err := a.i3.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start i3block controller")
	}
	defer a.i3.Stop()

	a.engine.Start()
	defer a.engine.Stop()

	if a.redisClient != nil {
		defer a.redisClient.Close()
	}

	go a.consumeUpdates()

	trackTicker := time.NewTicker(a.cfg.App.CheckInterval)
	defer trackTicker.Stop()
	sampleTicker := time.NewTicker(a.cfg.Player.PollInterval)
	defer sampleTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Str("player", a.source.Name()).Msg("Starting player check loop")
	a.checkTrack()
	for {
		select {
		case <-trackTicker.C:
			a.checkTrack()
		case <-sampleTicker.C:
			a.pollSample()
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
			return
		}
	}
}

// checkTrack detects track changes and kicks off a lyric fetch for new songs.
func (a *App) checkTrack() {
	track, err := a.source.CurrentTrack()
	if err != nil {
		a.mu.Lock()
		wasIdle := a.status == StatusIdle
		if a.fetchCancel != nil {
			a.fetchCancel()
			a.fetchCancel = nil
		}
		a.currentTrackID = ""
		a.currentToken = ""
		a.track = nil
		a.timeline = nil
		a.status = StatusIdle
		a.mu.Unlock()
		if !wasIdle {
			a.engine.SetTrack(nil, 0)
			a.broadcast(a.engine.ActiveLine())
		}
		return
	}

	a.mu.Lock()
	if track.ID == a.currentTrackID {
		// Players often report mpris:length late; pass the hint along so
		// an estimated timeline gets re-synthesized.
		durationChanged := a.track != nil && track.DurationMs != a.track.DurationMs
		if durationChanged {
			a.track = track
		}
		a.mu.Unlock()
		if durationChanged {
			a.engine.SetDuration(track.DurationMs)
		}
		return
	}

	log.Info().Str("title", track.Title).Str("artist", track.Artist).Msg("New track detected")
	a.currentTrackID = track.ID
	a.track = track
	a.timeline = nil
	a.translations = make(map[int]string)
	a.status = StatusSearching

	// Token-stamp the fetch so a late result for a previous track is dropped.
	token := uuid.NewString()
	a.currentToken = token
	if a.fetchCancel != nil {
		a.fetchCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a.fetchCancel = cancel
	a.mu.Unlock()

	a.engine.SetTrack(nil, track.DurationMs)
	a.broadcast(a.engine.ActiveLine())

	go a.fetchLyrics(ctx, token, track)
}

func (a *App) fetchLyrics(ctx context.Context, token string, track *player.Track) {
	text, err := a.lookupLyrics(ctx, track)

	a.mu.Lock()
	if a.currentToken != token {
		a.mu.Unlock()
		log.Debug().Str("title", track.Title).Msg("Discarding stale lyric result")
		return
	}

	if err != nil {
		log.Error().Err(err).Str("title", track.Title).Msg("Failed to get lyrics")
		a.status = StatusNone
		a.timeline = nil
		a.mu.Unlock()
		a.engine.SetTrack(nil, track.DurationMs)
		a.broadcast(a.engine.ActiveLine())
		return
	}

	timeline := lyrics.Parse(text, track.DurationMs)
	a.timeline = timeline
	if timeline.Empty() {
		a.status = StatusNone
	} else if timeline.HasRealTimestamps {
		a.status = StatusSynced
	} else {
		a.status = StatusEstimated
	}
	translateOn := a.translateOn
	a.mu.Unlock()

	log.Info().
		Str("title", track.Title).
		Int("lines", len(timeline.Lines)).
		Bool("synced", timeline.HasRealTimestamps).
		Msg("Lyrics loaded")

	a.engine.SetTrack(timeline, track.DurationMs)
	a.broadcast(a.engine.ActiveLine())

	if translateOn && a.translator != nil && !timeline.Empty() {
		go a.translateTrack(token, timeline)
	}
}

// lookupLyrics serves from the lyric cache before going to the providers.
func (a *App) lookupLyrics(ctx context.Context, track *player.Track) (string, error) {
	cacheKey := "lyrics:" + track.Artist + "|" + track.Title
	if a.lyricStore != nil {
		if text, ok := a.lyricStore.Get(ctx, cacheKey); ok {
			log.Info().Str("title", track.Title).Msg("Lyrics served from cache")
			return text, nil
		}
	}

	result, err := a.manager.FetchLyrics(ctx, music.Query{
		Title:       track.Title,
		Artist:      track.Artist,
		DurationSec: int(track.DurationMs / 1000),
	})
	if err != nil {
		return "", err
	}

	if a.lyricStore != nil {
		a.lyricStore.Put(ctx, cacheKey, result.Text)
	}
	return result.Text, nil
}

// translateTrack translates every line of the current track in order,
// rebroadcasting as results arrive. Results for a superseded track are
// dropped.
func (a *App) translateTrack(token string, timeline *lyrics.Timeline) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for i, line := range timeline.Lines {
		if translate.IsInstrumental(line.Text) {
			continue
		}

		translated, err := a.translator.Translate(ctx, line.Text, a.cfg.Translation.SourceLang, a.cfg.Translation.TargetLang)
		if err != nil {
			log.Warn().Err(err).Int("line", i).Msg("Translation failed")
			continue
		}

		a.mu.Lock()
		if a.currentToken != token {
			a.mu.Unlock()
			return
		}
		a.translations[i] = translated
		a.mu.Unlock()
	}

	a.mu.Lock()
	stale := a.currentToken != token
	a.mu.Unlock()
	if !stale {
		a.broadcast(a.engine.ActiveLine())
	}
}

func (a *App) pollSample() {
	sample, err := a.source.Sample()
	if err != nil {
		return
	}
	a.engine.PlaybackSample(sample.PositionMs, sample.Playing)
}

func (a *App) consumeUpdates() {
	for decision := range a.engine.Updates() {
		a.broadcast(decision)
	}
}

// broadcast renders the decision into a payload and pushes it to clients.
func (a *App) broadcast(decision syncer.Decision) {
	a.mu.Lock()
	payload := Payload{
		Status:    a.status,
		Index:     decision.Index,
		Progress:  decision.Progress,
		Mode:      string(decision.Mode),
		OffsetMs:  decision.OffsetMs,
		LineCount: decision.LineCount,
	}
	if a.track != nil {
		payload.Track = a.track.Artist + " - " + a.track.Title
	}
	if a.timeline != nil && decision.Index >= 0 && decision.Index < len(a.timeline.Lines) {
		payload.Text = a.timeline.Lines[decision.Index].Text
		if a.translateOn {
			payload.Translation = a.translations[decision.Index]
		}
	}
	a.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal payload")
		return
	}

	a.ipcServer.Broadcast(string(data))

	// The i3blocks script reads the plain line from this file after SIGUSR1.
	if payload.Text != "" {
		if err := fileutil.WriteFileOverwrite(statusFilePath, []byte(payload.Text+"\n"), 0644); err != nil {
			log.Debug().Err(err).Msg("Failed to write status file")
		}
	}
	if err := a.i3.Notify(); err != nil {
		log.Debug().Err(err).Msg("i3blocks refresh skipped")
	}
}

// handleIntent dispatches one client command to the engine.
func (a *App) handleIntent(intent ipc.Intent) {
	log.Debug().Str("kind", string(intent.Kind)).Int64("arg", intent.Arg).Msg("Client command")

	switch intent.Kind {
	case ipc.IntentOffsetUp:
		a.engine.AdjustOffset(a.cfg.Sync.OffsetStepMs)
	case ipc.IntentOffsetDown:
		a.engine.AdjustOffset(-a.cfg.Sync.OffsetStepMs)
	case ipc.IntentOffsetReset:
		a.engine.ResetOffset()
	case ipc.IntentSeek:
		a.engine.ManualSeek(intent.Arg)
	case ipc.IntentScroll:
		a.engine.ManualScrollBy(int(intent.Arg))
	case ipc.IntentLine:
		a.engine.ManualSeekLine(int(intent.Arg))
	case ipc.IntentTranslate:
		a.toggleTranslation()
	}
}

func (a *App) toggleTranslation() {
	if a.translator == nil {
		log.Warn().Msg("Translation requested but no backend is configured")
		return
	}

	a.mu.Lock()
	a.translateOn = !a.translateOn
	enabled := a.translateOn
	token := a.currentToken
	timeline := a.timeline
	needsWork := enabled && timeline != nil && len(a.translations) == 0
	a.mu.Unlock()

	log.Info().Bool("enabled", enabled).Msg("Translation toggled")
	if needsWork && !timeline.Empty() {
		go a.translateTrack(token, timeline)
	}
	a.broadcast(a.engine.ActiveLine())
}
