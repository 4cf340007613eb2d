package mwapi

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const NamespaceFile = 6

// files stored on the wiki itself, as opposed to a shared repository
const RepositoryLocal = "local"

type ImageInfo struct {
	Title       string
	PageMissing bool
	// "local", "shared" or empty when no such file exists anywhere
	Repository string
	Url        string
	Sha1       string
	Size       int64
}

// HasLocalFile reports whether the file is stored on this wiki.
func (i ImageInfo) HasLocalFile() bool {
	return i.Repository == RepositoryLocal
}

func (c *Client) ImageInfo(ctx context.Context, title string) (ImageInfo, error) {
	ctx, span := tracer.Start(ctx, "client:ImageInfo")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	p, _, err := c.queryPage(ctx, title, url.Values{
		"prop":   {"imageinfo"},
		"iiprop": {"url|sha1|size"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query image info")
		return ImageInfo{}, err
	}

	info := ImageInfo{
		Title:       p.Title,
		PageMissing: p.Missing,
		Repository:  p.ImageRepository,
	}
	if len(p.ImageInfo) > 0 {
		info.Url = p.ImageInfo[0].Url
		info.Sha1 = p.ImageInfo[0].Sha1
		info.Size = p.ImageInfo[0].Size
	}
	return info, nil
}

type UploadParams struct {
	Filename string
	// local file to upload
	Path           string
	Text           string
	Comment        string
	IgnoreWarnings bool
	Watch          bool
}

func (c *Client) Upload(ctx context.Context, params UploadParams) error {
	ctx, span := tracer.Start(ctx, "client:Upload")
	defer span.End()
	span.SetAttributes(attribute.String("filename", params.Filename))

	token, err := c.Token(ctx, "csrf")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get token")
		return err
	}

	f, err := os.Open(params.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open file")
		return err
	}
	defer f.Close()

	form := url.Values{
		"action":   {"upload"},
		"filename": {params.Filename},
		"text":     {params.Text},
		"comment":  {params.Comment},
		"token":    {token},
	}
	if params.IgnoreWarnings {
		form.Set("ignorewarnings", "1")
	}
	if params.Watch {
		form.Set("watchlist", "watch")
	}
	form = c.baseParams(form)
	if c.username != "" {
		form.Set("assert", "user")
	}
	apiCalls.Add(ctx, 1)

	res, err := c.Http.R().
		SetContext(ctx).
		SetMultipartFormData(flatten(form)).
		SetFileReader("file", filepath.Base(params.Path), f).
		Post(c.ApiUrl.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload")
		return err
	}

	var result struct {
		Upload struct {
			Result   string         `json:"result"`
			Filename string         `json:"filename"`
			Warnings map[string]any `json:"warnings"`
		} `json:"upload"`
	}
	err = decodeResponse(res, &result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return fmt.Errorf("upload: %w", err)
	}
	if result.Upload.Result != "Success" {
		err = fmt.Errorf("upload of %s did not succeed: %s %v", params.Filename, result.Upload.Result, result.Upload.Warnings)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return err
	}
	return nil
}

func flatten(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = strings.Join(v, "|")
	}
	return out
}

// Download saves the file at fileUrl to dest.
func (c *Client) Download(ctx context.Context, fileUrl, dest string) error {
	ctx, span := tracer.Start(ctx, "client:Download")
	defer span.End()
	span.SetAttributes(attribute.String("url", fileUrl))

	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	res, err := c.downloads.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(fileUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download")
		os.Remove(dest)
		return err
	}
	if res.IsError() {
		os.Remove(dest)
		err = fmt.Errorf("failed to download %s: unexpected status %s", fileUrl, res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download")
		return err
	}
	return nil
}
