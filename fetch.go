package wilayah

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// defaultHTTPTimeout bounds a single dump download.
const defaultHTTPTimeout = 5 * time.Minute

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Fetch downloads src and stores the body verbatim at dst, creating the
// parent directory if needed. The body goes to a temp file that replaces dst
// only once the download completes; on error dst is left as it was.
func Fetch(ctx context.Context, client *http.Client, src, dst string) error {
	if client == nil {
		client = newHTTPClient(defaultHTTPTimeout)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating raw directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", src, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP GET %s: status %d", src, resp.StatusCode)
	}

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating file %s: %w", dst, err)
	}
	tmp := out.Name()

	success := false
	defer func() {
		if !success {
			out.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing file %s: %w", dst, err)
	}
	if err := out.Chmod(0644); err != nil {
		return fmt.Errorf("writing file %s: %w", dst, err)
	}
	// Close explicitly so flush errors are not lost.
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("renaming file %s: %w", dst, err)
	}
	success = true
	return nil
}

// dumpName returns the file name a source URL is stored under in the raw
// directory: the last path element, or DefaultDumpName if there is none.
func dumpName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultDumpName
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return DefaultDumpName
	}
	return name
}
