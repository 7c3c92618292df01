package resource

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"warren/internal/dependency"
	"warren/internal/host"
	"warren/pkg/logging"
)

// maxDownloadSize caps the body read for a downloaded helper.
const maxDownloadSize = 16 << 20

// Download fetches a file over HTTP once. An existing file is never
// re-fetched; only its mode is enforced.
type Download struct {
	Meta
	URL      string
	Path     string
	Root     string
	Mode     fs.FileMode
	User     string
	Password string
	Client   *http.Client
	// MaxTries bounds the attempts, the broker's management listener may
	// still be starting when the download runs.
	MaxTries uint
}

func (d *Download) ID() dependency.NodeID     { return dependency.NodeID("download:" + d.Path) }
func (d *Download) Kind() dependency.NodeKind { return dependency.KindDownload }

func (d *Download) Check(_ context.Context) (Status, error) {
	st, err := host.StatFile(host.Rooted(d.Root, d.Path))
	if err != nil {
		return Status{}, fmt.Errorf("stat %s: %w", d.Path, err)
	}
	if !st.Exists {
		return outOfSync("download " + d.URL), nil
	}
	if st.Mode != d.Mode {
		return outOfSync(fmt.Sprintf("mode %04o -> %04o", st.Mode, d.Mode)), nil
	}
	return inSync(), nil
}

func (d *Download) Apply(ctx context.Context) error {
	target := host.Rooted(d.Root, d.Path)
	st, err := host.StatFile(target)
	if err != nil {
		return err
	}
	if st.Exists {
		return host.EnsureAttributes(target, d.Mode, host.NoOwner)
	}

	tries := d.MaxTries
	if tries == 0 {
		tries = 5
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return d.fetch(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
	if err != nil {
		return fmt.Errorf("download %s: %w", d.URL, err)
	}
	return host.WriteFileAtomic(target, body, d.Mode, host.NoOwner)
}

func (d *Download) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if d.User != "" {
		req.SetBasicAuth(d.User, d.Password)
	}

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		logging.Debug("Download", "Fetching %s failed: %v", d.URL, err)
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %s", resp.Status))
	default:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
}
