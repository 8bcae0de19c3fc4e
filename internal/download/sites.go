package download

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// runYtDlp downloads a video site page as a single mp4
func (d *Downloader) runYtDlp(ctx context.Context, pageURL, output string) error {
	d.logger.Info().Str("url", pageURL).Msg("using yt-dlp")

	cmd := exec.CommandContext(ctx, d.cfg.YtDlpPath,
		"-f", "bv*+ba/b",
		"--merge-output-format", "mp4",
		"--no-playlist",
		"-o", output,
		pageURL,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp failed: %w\nOutput: %s", err, string(out))
	}
	return nil
}

// videoSourceJS waits briefly for a <video> element and reports its source
const videoSourceJS = `new Promise((resolve) => {
	const pick = () => {
		const v = document.querySelector('video');
		if (!v) return '';
		if (v.currentSrc) return v.currentSrc;
		if (v.src) return v.src;
		const s = v.querySelector('source[src]');
		return s ? s.src : '';
	};
	const found = pick();
	if (found) { resolve(found); return; }
	setTimeout(() => resolve(pick()), 3000);
})`

// resolveVideoSource loads a page in headless Chrome and returns the URL of
// its first <video>
func (d *Downloader) resolveVideoSource(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancel := context.WithTimeout(browserCtx, d.cfg.BrowserTimeout)
	defer cancel()

	var src string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(videoSourceJS, &src, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to inspect page: %w", err)
	}

	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return "", fmt.Errorf("%w: no <video> element on %s", ErrNotAccessible, pageURL)
	case strings.HasPrefix(src, "blob:"), strings.HasPrefix(src, "data:"):
		return "", fmt.Errorf("%w: video on %s is streamed from %s", ErrNotAccessible, pageURL, src[:5])
	}
	return src, nil
}
