package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"officebot/internal/storage"
)

// ErrTooLarge reports an attachment above the configured maximum size.
var ErrTooLarge = errors.New("file exceeds the size limit")

// download streams the file behind fileID into a new temp file. The caller
// must Release the returned file.
func (b *Bot) download(ctx context.Context, fileID, name string) (*storage.TempFile, error) {
	url, err := b.transport.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	if resp.ContentLength > b.opts.MaxFileSize {
		return nil, ErrTooLarge
	}

	tmp, err := b.downloads.Create(name)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, b.opts.MaxFileSize+1))
	if err != nil {
		tmp.Release()
		return nil, fmt.Errorf("write %s: %w", tmp.Path(), err)
	}
	if n > b.opts.MaxFileSize {
		tmp.Release()
		return nil, ErrTooLarge
	}
	return tmp, nil
}
