// Package download fetches a source video into a task workspace.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/media"
)

// Kind is the way a locator is fetched
type Kind string

const (
	KindLocal     Kind = "local"
	KindDrive     Kind = "gdrive"
	KindVideoSite Kind = "video_site"
	KindHTTP      Kind = "http"
)

// DefaultFilename is used when the source name carries no video extension
const DefaultFilename = "input.mp4"

var (
	// ErrUnsupportedLocator is returned for locators no fetcher handles
	ErrUnsupportedLocator = errors.New("unsupported source locator")
	// ErrNotAccessible is returned when the remote refuses the file
	ErrNotAccessible = errors.New("source not accessible")
)

// Error describes a failed fetch
type Error struct {
	Locator string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("download %s (%s): %v", e.Locator, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config configures a Downloader
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration // grows with the square of the attempt
	UserAgent      string
	YtDlpPath      string
	VideoSiteHosts []string
	// Browser enables resolving <video> sources on HTML pages
	Browser        bool
	BrowserTimeout time.Duration

	// LocalRoots are the directories local sources may be read from.
	// With none, every local path is refused.
	LocalRoots []string
}

// DefaultVideoSiteHosts are fetched with yt-dlp
var DefaultVideoSiteHosts = []string{
	"youtube.com", "youtu.be", "vimeo.com", "tiktok.com", "instagram.com",
	"twitter.com", "x.com", "facebook.com", "twitch.tv", "dailymotion.com",
}

// Downloader fetches source videos
type Downloader struct {
	cfg      Config
	client   *http.Client
	logger   zerolog.Logger
	resolver func(ctx context.Context, pageURL string) (string, error)
	ytdlp    func(ctx context.Context, pageURL, output string) error
}

// New creates a Downloader
func New(cfg Config, logger zerolog.Logger) *Downloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "video-pipeline/1.0"
	}
	if cfg.YtDlpPath == "" {
		cfg.YtDlpPath = "yt-dlp"
	}
	if len(cfg.VideoSiteHosts) == 0 {
		cfg.VideoSiteHosts = DefaultVideoSiteHosts
	}
	if cfg.BrowserTimeout <= 0 {
		cfg.BrowserTimeout = 60 * time.Second
	}

	d := &Downloader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "download").Logger(),
	}
	d.resolver = d.resolveVideoSource
	d.ytdlp = d.runYtDlp
	return d
}

var driveIDRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{25,40}$`)

// Classify decides how a locator is fetched
func (d *Downloader) Classify(locator string) Kind {
	locator = strings.TrimSpace(locator)
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		if driveIDRE.MatchString(locator) {
			return KindDrive
		}
		return KindLocal
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return KindLocal
	case "http", "https":
	default:
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "drive.google.com" || host == "docs.google.com" {
		return KindDrive
	}
	for _, h := range d.cfg.VideoSiteHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return KindVideoSite
		}
	}
	return KindHTTP
}

// Fetch downloads locator into destDir and returns the local file path
func (d *Downloader) Fetch(ctx context.Context, locator, destDir string) (string, error) {
	kind := d.Classify(locator)
	log := d.logger.With().Str("locator", locator).Str("kind", string(kind)).Logger()
	log.Info().Msg("fetching source")

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", &Error{Locator: locator, Kind: kind, Err: err}
	}

	var (
		path string
		err  error
	)
	switch kind {
	case KindLocal:
		path, err = d.copyLocal(locator, destDir)
	case KindDrive:
		path, err = d.fetchDrive(ctx, locator, destDir)
	case KindVideoSite:
		path = filepath.Join(destDir, DefaultFilename)
		err = d.ytdlp(ctx, locator, path)
	case KindHTTP:
		path, err = d.fetchHTTP(ctx, locator, destDir)
	default:
		err = ErrUnsupportedLocator
	}
	if err != nil {
		return "", &Error{Locator: locator, Kind: kind, Err: err}
	}

	if info, statErr := os.Stat(path); statErr != nil || info.Size() == 0 {
		return "", &Error{Locator: locator, Kind: kind, Err: fmt.Errorf("downloaded file is empty")}
	}

	log.Info().Str("path", path).Msg("source fetched")
	return path, nil
}

func (d *Downloader) copyLocal(locator, destDir string) (string, error) {
	src, err := d.resolveLocal(strings.TrimPrefix(locator, "file://"))
	if err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dest := filepath.Join(destDir, targetName(src))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	return dest, out.Close()
}

// resolveLocal follows symlinks and requires the file to sit under one of
// the configured local roots
func (d *Downloader) resolveLocal(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	for _, root := range d.cfg.LocalRoots {
		if root == "" {
			continue
		}
		base, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if r, err := filepath.EvalSymlinks(base); err == nil {
			base = r
		}
		rel, err := filepath.Rel(base, resolved)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s is outside the allowed local directories", ErrUnsupportedLocator, path)
}

// fetchHTTP downloads a direct link. An HTML page is searched for a <video>
// source when the browser resolver is enabled.
func (d *Downloader) fetchHTTP(ctx context.Context, rawURL, destDir string) (string, error) {
	dest := filepath.Join(destDir, targetName(urlPath(rawURL)))

	contentType, err := d.get(ctx, rawURL, dest)
	if err != nil {
		return "", err
	}
	if !isHTML(contentType) {
		return dest, nil
	}

	if !d.cfg.Browser {
		os.Remove(dest)
		return "", fmt.Errorf("%w: %s is a web page, not a video", ErrNotAccessible, rawURL)
	}
	os.Remove(dest)

	src, err := d.resolver(ctx, rawURL)
	if err != nil {
		return "", err
	}
	d.logger.Info().Str("page", rawURL).Str("video", src).Msg("resolved video source from page")

	dest = filepath.Join(destDir, targetName(urlPath(src)))
	contentType, err = d.get(ctx, src, dest)
	if err != nil {
		return "", err
	}
	if isHTML(contentType) {
		os.Remove(dest)
		return "", fmt.Errorf("%w: resolved source %s is not a video", ErrNotAccessible, src)
	}
	return dest, nil
}

// get streams url into dest, retrying transport failures with backoff
func (d *Downloader) get(ctx context.Context, rawURL, dest string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		contentType, err := d.getOnce(ctx, rawURL, dest)
		if err == nil {
			return contentType, nil
		}
		lastErr = err
		if errors.Is(err, ErrNotAccessible) || ctx.Err() != nil {
			break
		}

		d.logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", d.cfg.MaxAttempts).Msg("download attempt failed")
		if attempt < d.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * d.cfg.RetryDelay):
			}
		}
	}
	return "", lastErr
}

func (d *Downloader) getOnce(ctx context.Context, rawURL, dest string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedLocator, err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("server error status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrNotAccessible, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return resp.Header.Get("Content-Type"), nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "text/html" || mt == "application/xhtml+xml")
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

// targetName keeps a supported video name and falls back to DefaultFilename
func targetName(name string) string {
	base := filepath.Base(name)
	if media.IsSupportedContainer(base) {
		return "input" + strings.ToLower(filepath.Ext(base))
	}
	return DefaultFilename
}
