// Package potd keeps local copies of the images shown on the main page.
// Shared images are uploaded locally and protected so they cannot be
// replaced while they are on display, and removed again afterwards.
package potd

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"tfaprotbot/lib/mwapi"
	"tfaprotbot/lib/protection"
	"tfaprotbot/lib/textutil"
	"tfaprotbot/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrHashMismatch = errors.New("downloaded file does not match the expected hash")

const (
	filePrefix = "File:"

	uploadTextPrefix = "{{Uploaded from Commons}}\n\n"
	uploadComment    = "Bot: Uploading image that will soon be on the Main Page"
	deleteReason     = "Bot: Image is no longer on main page"
	undeleteReason   = "Undeleting previous history"
)

// Wiki is the part of the local wiki's API client the bot uses.
type Wiki interface {
	PageText(ctx context.Context, title string) (string, error)
	ImageLinks(ctx context.Context, title string) ([]string, error)
	ImageInfo(ctx context.Context, title string) (mwapi.ImageInfo, error)
	ProtectionStatus(ctx context.Context, title string) (protection.Status, error)
	Protect(ctx context.Context, title string, req protection.Request, reason string) error
	Upload(ctx context.Context, params mwapi.UploadParams) error
	Watch(ctx context.Context, title string) error
	Unwatch(ctx context.Context, title string) error
	WatchlistRaw(ctx context.Context, namespace int) ([]string, error)
	Revisions(ctx context.Context, title string) ([]mwapi.Revision, error)
	Delete(ctx context.Context, title, reason string) error
	Undelete(ctx context.Context, title, reason string, timestamps []string) error
}

// Commons is the part of the shared repository's API client the bot uses.
type Commons interface {
	PageText(ctx context.Context, title string) (string, error)
	ImageInfo(ctx context.Context, title string) (mwapi.ImageInfo, error)
	Download(ctx context.Context, fileUrl, dest string) error
}

type Options struct {
	// page listing the titles whose images are handled, one per line
	WatchPage string
	// the bot's own account, its revisions are not restored on cleanup
	Username      string
	ProtectReason string
	// where downloads are kept until uploaded, empty for os.TempDir
	TempDir string
	DryRun  bool
	// leave files that left the main page alone
	SkipCleanup bool
}

type Service struct {
	wiki    Wiki
	commons Commons
	opts    Options
}

func NewService(wiki Wiki, commons Commons, opts Options) Service {
	return Service{wiki: wiki, commons: commons, opts: opts}
}

type ImageResult struct {
	Name      string
	Uploaded  bool
	Protected bool
}

type CleanupResult struct {
	Name string
	// revisions by other users that were restored
	Restored int
}

type RunResult struct {
	Images  []ImageResult
	Cleanup []CleanupResult
}

func fileTitle(name string) string {
	return filePrefix + name
}

// fileName strips the namespace from a file title.
func fileName(title string) string {
	name, _ := strings.CutPrefix(title, filePrefix)
	return name
}

// MainPageTitles returns the pages listed on the watch page.
func (s Service) MainPageTitles(ctx context.Context) ([]string, error) {
	text, err := s.wiki.PageText(ctx, s.opts.WatchPage)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.opts.WatchPage, err)
	}
	return textutil.ConfigLines(text), nil
}

// CollectImages returns the names (without namespace) of every file used
// on the given pages, sorted and without duplicates.
func (s Service) CollectImages(ctx context.Context, titles []string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "CollectImages")
	defer span.End()

	var images []string
	for _, title := range titles {
		links, err := s.wiki.ImageLinks(ctx, title)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to list images")
			return nil, err
		}
		for _, link := range links {
			images = append(images, fileName(link))
		}
	}
	slices.Sort(images)
	images = slices.Compact(images)
	span.SetAttributes(attribute.Int("images", len(images)))
	return images, nil
}

// ShouldUpload reports whether the file has no locally stored copy yet.
// Whether an existing local copy matches the shared one is not checked.
func (s Service) ShouldUpload(ctx context.Context, name string) (bool, error) {
	info, err := s.wiki.ImageInfo(ctx, fileTitle(name))
	if err != nil {
		return false, err
	}
	return info.PageMissing || !info.HasLocalFile(), nil
}

func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	_, err = io.Copy(h, f)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s Service) tempDir() string {
	if s.opts.TempDir != "" {
		return s.opts.TempDir
	}
	return os.TempDir()
}

// Reupload copies a file from the shared repository to the local wiki.
// The download is verified against the repository's SHA-1 before it is
// uploaded, a mismatch is returned as ErrHashMismatch.
func (s Service) Reupload(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "Reupload")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	info, err := s.commons.ImageInfo(ctx, fileTitle(name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get shared image info")
		return err
	}
	if info.Url == "" || info.Sha1 == "" {
		err = fmt.Errorf("%s has no file in the shared repository", name)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if s.opts.DryRun {
		slog.InfoContext(ctx, "would upload (dry run)", "name", name, "url", info.Url)
		return nil
	}

	dest := filepath.Join(s.tempDir(), info.Sha1+filepath.Ext(name))
	defer os.Remove(dest)

	slog.InfoContext(ctx, "downloading image", "name", name, "url", info.Url, "bytes", info.Size, "dest", dest)
	err = s.commons.Download(ctx, info.Url, dest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download")
		return err
	}

	sum, err := sha1File(dest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to hash download")
		return err
	}
	if !strings.EqualFold(sum, info.Sha1) {
		err = fmt.Errorf("%w: %s: expected %s, got %s", ErrHashMismatch, name, info.Sha1, sum)
		span.RecordError(err)
		span.SetStatus(codes.Error, "hash mismatch")
		return err
	}

	description, err := s.commons.PageText(ctx, fileTitle(name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get description")
		return err
	}

	err = s.wiki.Upload(ctx, mwapi.UploadParams{
		Filename:       name,
		Path:           dest,
		Text:           uploadTextPrefix + description,
		Comment:        uploadComment,
		IgnoreWarnings: true,
		Watch:          true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload")
		return err
	}
	imagesUploaded.Add(ctx, 1)
	slog.InfoContext(ctx, "uploaded", "name", name)
	return nil
}

// EnsureProtected upload protects a file indefinitely (and watches it)
// unless it already is. It reports whether a protect call was made.
func (s Service) EnsureProtected(ctx context.Context, name string) (bool, error) {
	ctx, span := tracer.Start(ctx, "EnsureProtected")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	title := fileTitle(name)
	status, err := s.wiki.ProtectionStatus(ctx, title)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get protection status")
		return false, err
	}
	plan := protection.ShouldProtectUpload(status)
	if len(plan) == 0 {
		return false, nil
	}

	req := protection.BuildRequest(status, plan)
	if s.opts.DryRun {
		slog.InfoContext(ctx, "would protect (dry run)", "title", title, "protections", req.Protections)
		return false, nil
	}

	err = s.wiki.Protect(ctx, title, req, s.opts.ProtectReason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to protect")
		return false, err
	}
	err = s.wiki.Watch(ctx, title)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to watch")
		return false, err
	}
	imagesProtected.Add(ctx, 1)
	slog.InfoContext(ctx, "protected", "title", title)
	return true, nil
}

// Cleanup removes the local copies of watched files that are no longer in
// current. The page is deleted and any revisions by other users (a local
// description page that existed before the upload) are restored.
func (s Service) Cleanup(ctx context.Context, current []string) ([]CleanupResult, error) {
	ctx, span := tracer.Start(ctx, "Cleanup")
	defer span.End()

	watched, err := s.wiki.WatchlistRaw(ctx, mwapi.NamespaceFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read watchlist")
		return nil, err
	}

	var results []CleanupResult
	for _, title := range watched {
		name := fileName(title)
		if slices.Contains(current, name) {
			continue
		}
		result, err := s.cleanupFile(ctx, title)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to clean up")
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s Service) cleanupFile(ctx context.Context, title string) (CleanupResult, error) {
	result := CleanupResult{Name: fileName(title)}

	revisions, err := s.wiki.Revisions(ctx, title)
	if errors.Is(err, mwapi.ErrPageMissing) {
		slog.InfoContext(ctx, "already gone, unwatching", "title", title)
		if s.opts.DryRun {
			return result, nil
		}
		return result, s.wiki.Unwatch(ctx, title)
	}
	if err != nil {
		return result, err
	}

	var timestamps []string
	for _, rev := range revisions {
		if rev.User == s.opts.Username {
			continue
		}
		timestamps = append(timestamps, timezone.FormatTimestamp(rev.Timestamp))
	}
	result.Restored = len(timestamps)

	if s.opts.DryRun {
		slog.InfoContext(ctx, "would delete (dry run)", "title", title, "restore", len(timestamps))
		return result, nil
	}

	err = s.wiki.Delete(ctx, title, deleteReason)
	if err != nil {
		return result, err
	}
	if len(timestamps) > 0 {
		err = s.wiki.Undelete(ctx, title, undeleteReason, timestamps)
		if err != nil {
			return result, err
		}
	}
	err = s.wiki.Unwatch(ctx, title)
	if err != nil {
		return result, err
	}
	imagesCleanedUp.Add(ctx, 1)
	slog.InfoContext(ctx, "cleaned up", "title", title, "restored", len(timestamps))
	return result, nil
}

func (s Service) Run(ctx context.Context) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	var result RunResult
	titles, err := s.MainPageTitles(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read watch page")
		return result, err
	}
	images, err := s.CollectImages(ctx, titles)
	if err != nil {
		return result, err
	}

	for _, name := range images {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		image := ImageResult{Name: name}
		upload, err := s.ShouldUpload(ctx, name)
		if err != nil {
			return result, fmt.Errorf("%s: %w", name, err)
		}
		if upload {
			err = s.Reupload(ctx, name)
			if err != nil {
				return result, fmt.Errorf("%s: %w", name, err)
			}
			image.Uploaded = !s.opts.DryRun
		}
		image.Protected, err = s.EnsureProtected(ctx, name)
		if err != nil {
			return result, fmt.Errorf("%s: %w", name, err)
		}
		result.Images = append(result.Images, image)
	}

	if s.opts.SkipCleanup {
		return result, nil
	}
	result.Cleanup, err = s.Cleanup(ctx, images)
	if err != nil {
		return result, err
	}
	return result, nil
}
