package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sys/unix"

	"reeldesk/internal/billing"
	"reeldesk/internal/config"
)

// minSecretBytes is the shortest signing secret accepted for HS256.
const minSecretBytes = 16

// CheckDirectoryAccess verifies that path exists, is a directory, and is
// readable, writable, and searchable by the current process.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
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

// CheckSigningSecret verifies the token signing secret is set and long enough.
func CheckSigningSecret(secret string) Result {
	const name = "Token signing secret"
	n := len(strings.TrimSpace(secret))
	switch {
	case n == 0:
		return Result{Name: name, Detail: "missing (set auth.jwt_secret or REELDESK_JWT_SECRET)"}
	case n < minSecretBytes:
		return Result{Name: name, Detail: fmt.Sprintf("too short (%d bytes, need %d)", n, minSecretBytes)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d bytes", n)}
	}
}

// CheckNtfy verifies that the ntfy server behind topic answers HTTP requests.
// The topic itself is not published to.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	u, err := url.Parse(strings.TrimSpace(topic))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Result{Name: name, Detail: "topic is not an absolute URL"}
	}
	health := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/v1/health"}).String()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, health, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err, u.Host)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", u.Host)}
}

// CheckRedis verifies the change feed relay can reach Redis.
func CheckRedis(ctx context.Context, redisURL string) Result {
	const name = "Redis relay"

	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	client := redis.NewClient(opts)
	defer client.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(checkCtx).Err(); err != nil {
		return Result{Name: name, Detail: summarizeNetError(err, opts.Addr)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", opts.Addr)}
}

// CheckBilling verifies the payment provider accepts the configured credentials.
func CheckBilling(cfg config.Billing) Result {
	const name = "PayPal"

	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return Result{Name: name, Detail: "missing client credentials"}
	}
	if err := billing.NewClient(cfg).CheckCredentials(); err != nil {
		return Result{Name: name, Detail: summarizeNetError(err, cfg.BaseURL)}
	}
	if cfg.ProPlanID == "" || cfg.PremiumPlanID == "" {
		return Result{Name: name, Detail: "credentials ok, plan ids missing (run reeldesk billing setup)"}
	}
	return Result{Name: name, Passed: true, Detail: "credentials accepted"}
}

// summarizeNetError produces a human-readable summary for connectivity failures.
func summarizeNetError(err error, target string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s timed out", target)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("%s unreachable (timeout)", target)
	}
	return err.Error()
}
