package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"go-raidguard/internal/models"
)

var ErrRateLimited = errors.New("rate limited")

// RESTModerator talks to the Discord REST API directly through a pool of
// fasthttp clients, bypassing the gateway session's HTTP client.
type RESTModerator struct {
	httpPool    *HTTPPool
	rateLimiter *RateLimitMonitor
	token       string
	baseURL     string
	timeout     time.Duration
}

func NewRESTModerator(httpPool *HTTPPool, rateLimiter *RateLimitMonitor, token, baseURL string, timeout time.Duration) *RESTModerator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RESTModerator{
		httpPool:    httpPool,
		rateLimiter: rateLimiter,
		token:       token,
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     timeout,
	}
}

type banPayload struct {
	DeleteMessageSeconds int `json:"delete_message_seconds"`
}

func (rm *RESTModerator) Ban(ctx context.Context, member models.Member, deleteDays int, reason string) error {
	body, err := json.Marshal(banPayload{DeleteMessageSeconds: deleteDays * 24 * 60 * 60})
	if err != nil {
		return err
	}

	uri := fmt.Sprintf("%s/guilds/%s/bans/%s", rm.baseURL, member.GuildID, member.UserID)
	return rm.do(ctx, "ban", member.GuildID, fasthttp.MethodPut, uri, reason, body)
}

func (rm *RESTModerator) Kick(ctx context.Context, member models.Member, reason string) error {
	uri := fmt.Sprintf("%s/guilds/%s/members/%s", rm.baseURL, member.GuildID, member.UserID)
	return rm.do(ctx, "kick", member.GuildID, fasthttp.MethodDelete, uri, reason, nil)
}

func (rm *RESTModerator) do(ctx context.Context, route, guildID, method, uri, reason string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rm.rateLimiter.CanExecute(route, guildID) {
		return fmt.Errorf("%s in guild %s: %w", route, guildID, ErrRateLimited)
	}

	timeout := rm.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bot "+rm.token)
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(reason))
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := rm.httpPool.GetClient().DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%s request failed: %w", route, err)
	}

	rm.rateLimiter.UpdateFromFastHTTPResponse(resp, route, guildID)

	status := resp.StatusCode()
	if status == fasthttp.StatusTooManyRequests {
		return fmt.Errorf("%s in guild %s: %w", route, guildID, ErrRateLimited)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%s failed: %d %s", route, status, strings.TrimSpace(string(resp.Body())))
	}
	return nil
}
