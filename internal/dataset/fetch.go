package dataset

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/halvard/harpqc/internal/metrics"
)

const fetchTimeout = 30 * time.Second

// Fetch retrieves the input table at rawURL and writes it to path, returning
// the byte count. ftp, http and https URLs are supported; JSOC exports are
// usually pulled over anonymous FTP.
func Fetch(rawURL, path string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "ftp":
		return fetchFTP(u, path)
	case "http", "https":
		return fetchHTTP(rawURL, path)
	default:
		return 0, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

func fetchFTP(u *url.URL, path string) (int64, error) {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "21")
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(fetchTimeout))
	if err != nil {
		return 0, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return 0, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return 0, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	return writeFile(path, resp, "ftp")
}

func fetchHTTP(rawURL, path string) (int64, error) {
	client := &http.Client{Timeout: fetchTimeout}

	var body []byte
	operation := func() error {
		resp, err := client.Get(rawURL)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch table: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("transient: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch table: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return 0, err
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	metrics.FetchBytes.WithLabelValues("http").Add(float64(len(body)))
	return int64(len(body)), nil
}

func writeFile(path string, r io.Reader, scheme string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}
	metrics.FetchBytes.WithLabelValues(scheme).Add(float64(n))
	return n, nil
}
