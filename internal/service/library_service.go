package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

// trackNamespace derives stable track IDs from file paths and URLs, so the
// same media always maps to the same ID.
var trackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tunequeue:track"))

// supportedExts are the local formats handed to the remote player.
var supportedExts = []string{
	".mp3", ".mp2",
	".ogg", ".oga", ".opus",
	".wav", ".aif", ".aiff",
	".flac", ".fla",
	".aac", ".m4a", ".m4b", ".mp4",
	".wma", ".wv", ".ape", ".mpc",
	".mka", ".webm",
}

// LibraryService turns local files, folders and URLs into tracks.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus

	// State
	scanning   bool
	cancelScan context.CancelFunc

	mu sync.RWMutex
}

// NewLibraryService creates a new library service.
func NewLibraryService(logger *slog.Logger, bus ports.EventBus) *LibraryService {
	return &LibraryService{
		logger: logger.With(slog.String("service", "library")),
		bus:    bus,
	}
}

// beginScan marks a scan running and returns its context.
func (s *LibraryService) beginScan(ctx context.Context, op string) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning {
		return nil, nil, domain.NewServiceError("LibraryService", op, "scan already in progress", nil)
	}
	s.scanning = true

	scanCtx, cancel := context.WithCancel(ctx)
	s.cancelScan = cancel

	end := func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}
	return scanCtx, end, nil
}

// ScanFolder scans a folder recursively for audio files and reads their tags.
// Publishes progress events during scanning. Files whose tags cannot be
// read still produce a track named after the file.
func (s *LibraryService) ScanFolder(ctx context.Context, folderPath string) ([]domain.Track, error) {
	ctx, end, err := s.beginScan(ctx, "ScanFolder")
	if err != nil {
		return nil, err
	}
	defer end()

	s.bus.Publish(domain.NewScanStartedEvent(folderPath))
	s.logger.Debug("scanning folder", slog.String("path", folderPath))

	files, err := s.collectAudioFiles(ctx, folderPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.bus.Publish(domain.NewScanCancelledEvent("cancelled"))
			return nil, domain.ErrScanCancelled
		}
		return nil, domain.NewServiceError("LibraryService", "ScanFolder", "walk folder", err)
	}

	tracks, err := s.readTracks(ctx, files)
	if err != nil {
		return tracks, err
	}

	s.bus.Publish(domain.NewScanCompletedEvent(tracks))
	s.logger.Info("scan completed", slog.String("path", folderPath), slog.Int("tracks", len(tracks)))
	return tracks, nil
}

// ScanFiles reads tags for specific files, skipping unsupported formats.
func (s *LibraryService) ScanFiles(ctx context.Context, filePaths []string) ([]domain.Track, error) {
	ctx, end, err := s.beginScan(ctx, "ScanFiles")
	if err != nil {
		return nil, err
	}
	defer end()

	return s.readTracks(ctx, lo.Filter(filePaths, func(p string, _ int) bool {
		return s.IsFormatSupported(p)
	}))
}

func (s *LibraryService) readTracks(ctx context.Context, files []string) ([]domain.Track, error) {
	tracks := make([]domain.Track, 0, len(files))
	total := len(files)

	for i, filePath := range files {
		select {
		case <-ctx.Done():
			s.bus.Publish(domain.NewScanCancelledEvent("cancelled"))
			return tracks, domain.ErrScanCancelled
		default:
		}

		track, err := s.TrackFromFile(filePath)
		if err != nil {
			s.logger.Debug("skipping file", slog.String("path", filePath), slog.Any("error", err))
			continue
		}
		tracks = append(tracks, track)

		s.bus.Publish(domain.NewScanProgressEvent(domain.ScanProgress{
			CurrentFile: filePath,
			Processed:   i + 1,
			Total:       total,
		}))
	}

	return tracks, nil
}

// Resolve expands command line inputs into a queue: URLs become remote
// tracks, folders are scanned and files are read. Duplicates are dropped,
// keeping the first occurrence.
func (s *LibraryService) Resolve(ctx context.Context, inputs []string) ([]domain.Track, error) {
	var tracks []domain.Track

	for _, input := range inputs {
		if IsRemoteRef(input) {
			track, err := TrackFromURL(input)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, track)
			continue
		}

		info, err := os.Stat(input)
		if err != nil {
			return nil, domain.NewServiceError("LibraryService", "Resolve", input, domain.ErrFileNotFound)
		}

		if info.IsDir() {
			found, err := s.ScanFolder(ctx, input)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, found...)
			continue
		}

		track, err := s.TrackFromFile(input)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	return lo.UniqBy(tracks, func(t domain.Track) string { return t.ID }), nil
}

// TrackFromFile builds a track for a local audio file.
func (s *LibraryService) TrackFromFile(filePath string) (domain.Track, error) {
	if strings.TrimSpace(filePath) == "" {
		return domain.Track{}, domain.ErrInvalidFilePath
	}
	if !s.IsFormatSupported(filePath) {
		return domain.Track{}, domain.NewValidationError("path", filePath, "unsupported format")
	}

	abs, err := filepath.Abs(filePath)
	if err != nil {
		return domain.Track{}, domain.ErrInvalidFilePath
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return domain.Track{}, domain.ErrFileNotFound
	}

	track := domain.Track{
		ID:       uuid.NewSHA1(trackNamespace, []byte(abs)).String(),
		Title:    strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		MediaRef: abs,
	}
	readTags(abs, &track)
	return track, nil
}

// readTags fills title and artist from embedded tags when present.
func readTags(filePath string, track *domain.Track) {
	file, err := os.Open(filePath)
	if err != nil {
		return
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil || metadata == nil {
		return
	}

	if title := strings.TrimSpace(metadata.Title()); title != "" {
		track.Title = title
	}
	if artist := strings.TrimSpace(metadata.Artist()); artist != "" {
		track.Artist = artist
	}
}

// IsRemoteRef reports whether ref is a URL rather than a local path.
func IsRemoteRef(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && u.Host != "" && len(u.Scheme) > 1
}

// TrackFromURL builds a track for a remote stream. The title is the last
// path segment, or the host when there is none.
func TrackFromURL(ref string) (domain.Track, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return domain.Track{}, domain.NewValidationError("url", ref, "not a valid URL")
	}

	title := path.Base(u.Path)
	if title == "." || title == "/" {
		title = u.Host
	}

	return domain.Track{
		ID:       uuid.NewSHA1(trackNamespace, []byte(ref)).String(),
		Title:    title,
		Artist:   u.Host,
		MediaRef: ref,
	}, nil
}

// CancelScan cancels the currently running scan operation.
func (s *LibraryService) CancelScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return domain.NewServiceError("LibraryService", "CancelScan", "no scan in progress", nil)
	}
	if s.cancelScan != nil {
		s.cancelScan()
	}
	return nil
}

// IsScanning returns true if a scan is currently in progress.
func (s *LibraryService) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// IsFormatSupported checks if a file format is supported.
func (s *LibraryService) IsFormatSupported(filePath string) bool {
	return lo.Contains(supportedExts, strings.ToLower(filepath.Ext(filePath)))
}

// SupportedFormats returns the list of supported file extensions.
func (s *LibraryService) SupportedFormats() []string {
	return append([]string(nil), supportedExts...)
}

// collectAudioFiles recursively collects all audio files in a directory.
func (s *LibraryService) collectAudioFiles(ctx context.Context, folderPath string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(folderPath, func(p string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return context.Canceled
		}
		if err != nil {
			if p == folderPath {
				return err
			}
			// Skip entries we can't access
			return nil
		}
		if !d.IsDir() && s.IsFormatSupported(p) {
			files = append(files, p)
		}
		return nil
	})

	return files, err
}

// Shutdown cancels any running scan.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning && s.cancelScan != nil {
		s.cancelScan()
	}
	return nil
}
