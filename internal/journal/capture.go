package journal

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
	"github.com/pbaille/autojournal/internal/imagehost"
)

// CaptureRequest is one page visit as reported by the browser.
type CaptureRequest struct {
	URL        string
	Title      string
	Text       string
	Favicon    string
	Screenshot string
}

// CaptureResult tells the caller what happened to a visit.
type CaptureResult struct {
	Entry   *domain.Entry
	Created bool
	Skipped bool
	Reason  string
}

// Capture records a visit for owner under the given settings: it creates
// the entry for the URL or merges into the existing one. A failed screenshot
// upload never fails the capture.
func (s *Service) Capture(ctx context.Context, owner string, settings domain.Settings, req CaptureRequest) (CaptureResult, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Title = s.plain(req.Title)

	var missing []string
	if req.URL == "" {
		missing = append(missing, "url")
	}
	if req.Title == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return CaptureResult{}, appErrors.NewMissingField(missing...)
	}

	host, err := ParseHost(req.URL)
	if err != nil {
		return CaptureResult{}, err
	}

	if !settings.LoggingEnabled {
		s.rec.ObserveCapture("skipped")
		return CaptureResult{Skipped: true, Reason: "logging disabled"}, nil
	}
	if blocked, ok := settings.Blacklisted(host); ok {
		s.rec.ObserveCapture("skipped")
		return CaptureResult{Skipped: true, Reason: "domain blacklisted: " + blocked}, nil
	}
	if !settings.ContentCaptureEnabled {
		req.Text = ""
		req.Screenshot = ""
	}

	v := domain.Visit{
		URL:     req.URL,
		Title:   req.Title,
		Domain:  host,
		Text:    s.plain(req.Text),
		Favicon: strings.TrimSpace(req.Favicon),
	}
	if req.Screenshot != "" {
		v.Screenshot = s.uploadScreenshot(ctx, req.URL, req.Screenshot)
	}

	entry, created, err := s.store.UpsertOnVisit(ctx, owner, v)
	if err != nil {
		s.logger.Error("capture failed", zap.String("url", req.URL), zap.Error(err))
		return CaptureResult{}, err
	}

	if created {
		s.rec.ObserveCapture("created")
	} else {
		s.rec.ObserveCapture("updated")
	}
	return CaptureResult{Entry: entry, Created: created}, nil
}

// uploadScreenshot returns the hosted URL, or "" when hosting is off or fails.
func (s *Service) uploadScreenshot(ctx context.Context, pageURL, image string) string {
	if s.uploader == nil {
		return ""
	}
	hosted, err := s.uploader.Upload(ctx, imagehost.StripDataURI(image))
	if err != nil {
		s.logger.Warn("screenshot upload failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	return hosted
}

// ParseHost returns the lower-cased host of raw. URLs without a host are
// rejected.
func ParseHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", appErrors.NewInvalidURL(raw, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", appErrors.NewInvalidURL(raw, nil)
	}
	return host, nil
}
