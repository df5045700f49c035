package browser

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultReleaseBase = "https://github.com/MetaMask/metamask-extension/releases/download"

// ExtensionFetcher caches unpacked MetaMask builds by version.
type ExtensionFetcher struct {
	BaseURL string
	Client  *http.Client
	Log     logrus.FieldLogger
}

func (f ExtensionFetcher) archiveURL(version string) string {
	base := f.BaseURL
	if base == "" {
		base = DefaultReleaseBase
	}
	return fmt.Sprintf("%s/v%s/metamask-chrome-%s.zip", strings.TrimRight(base, "/"), version, version)
}

// Ensure returns cacheDir/metamask-chrome-<version>, downloading and unpacking it on first use.
func (f ExtensionFetcher) Ensure(ctx context.Context, version, cacheDir string) (string, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return "", fmt.Errorf("metamask version is empty")
	}
	dir := filepath.Join(cacheDir, "metamask-chrome-"+version)
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err == nil {
		return dir, nil
	}
	log := f.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("extension cache: %w", err)
	}

	url := f.archiveURL(version)
	log.WithField("url", url).Info("downloading MetaMask")
	tmp, err := os.CreateTemp(cacheDir, "metamask-*.zip")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := f.download(ctx, url, tmp); err != nil {
		return "", err
	}

	// unpack next to the final dir, then rename, so a half-written tree is never picked up
	staging, err := os.MkdirTemp(cacheDir, "metamask-unpack-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(staging)
	if err := unzip(tmp.Name(), staging); err != nil {
		return "", fmt.Errorf("unpack %s: %w", url, err)
	}
	if _, err := os.Stat(filepath.Join(staging, "manifest.json")); err != nil {
		return "", fmt.Errorf("unpack %s: no manifest.json", url)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.Rename(staging, dir); err != nil {
		return "", fmt.Errorf("install extension: %w", err)
	}
	return dir, nil
}

func (f ExtensionFetcher) download(ctx context.Context, url string, w io.Writer) error {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: http %d", url, resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	return nil
}

func unzip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, zf := range zr.File {
		target := filepath.Join(dest, zf.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal path in archive: %s", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
