package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// endpointTimeout bounds the object store reachability probe.
const endpointTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
// A missing directory passes when its nearest existing parent is writable,
// since runs create it on demand.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkCreatable(name, path)
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func checkCreatable(name, path string) Result {
	parent := path
	for {
		next := parentDir(parent)
		if next == parent {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		parent = next
		if info, err := os.Stat(parent); err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, parent)}
			}
			if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
		}
	}
}

func parentDir(path string) string {
	trimmed := strings.TrimRight(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	switch {
	case idx < 0:
		return path
	case idx == 0:
		return "/"
	default:
		return trimmed[:idx]
	}
}

// CheckEndpoint verifies that an S3-compatible endpoint answers HTTP. Any
// response, including 403, counts as reachable; credentials are not tested.
func CheckEndpoint(ctx context.Context, name, endpoint string, useSSL bool) Result {
	url := strings.TrimSpace(endpoint)
	if url == "" {
		return Result{Name: name, Detail: "endpoint not configured"}
	}
	if !strings.Contains(url, "://") {
		if useSSL {
			url = "https://" + url
		} else {
			url = "http://" + url
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid endpoint (%v)", err)}
	}
	client := &http.Client{Timeout: endpointTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeDialError(err)}
	}
	defer resp.Body.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (HTTP %d)", url, resp.StatusCode)}
}

func summarizeDialError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "unreachable (timed out)"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "unreachable (timed out)"
	default:
		return fmt.Sprintf("unreachable (%v)", err)
	}
}
