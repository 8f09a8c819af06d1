// Package netx contains small networking helpers.
package netx

import (
	"context"
	"fmt"
	"net/http"
)

// ProbeURL issues a HEAD request against url and reports whether the remote
// side answered at all. Any HTTP status counts as reachable; only transport
// failures mean offline.
func ProbeURL(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("probe request error: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}
