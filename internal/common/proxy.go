package common

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

const (
	OK                     int = 200
	MOVED_PERMANENTLY      int = 301
	FOUND                  int = 302
	BAD_REQUEST            int = 400
	UNAUTHORIZED           int = 401
	FORBIDDEN              int = 403
	DATA_NOT_FOUND         int = 404
	METHOD_NOT_ALLOWED     int = 405
	UNSUPPORTED_MEDIA_TYPE int = 415
	RATE_LIMIT_EXCEEDED    int = 429
	INTERNAL_SERVER_ERROR  int = 500
	BAD_GATEWAY            int = 502
	SERVICE_UNAVAILABLE    int = 503
	GATEWAY_TIMEOUT        int = 504
)

var messages = map[int]string{
	OK:                     "OK",
	MOVED_PERMANENTLY:      "Moved permanently",
	FOUND:                  "Found",
	BAD_REQUEST:            "Bad request",
	UNAUTHORIZED:           "Unauthorized",
	FORBIDDEN:              "Forbidden",
	DATA_NOT_FOUND:         "Data not found",
	METHOD_NOT_ALLOWED:     "Method not allowed",
	UNSUPPORTED_MEDIA_TYPE: "Unsupported media type",
	RATE_LIMIT_EXCEEDED:    "Rate limit exceeded",
	INTERNAL_SERVER_ERROR:  "Internal server error",
	BAD_GATEWAY:            "Bad gateway",
	SERVICE_UNAVAILABLE:    "Service unavailable",
	GATEWAY_TIMEOUT:        "Gateway timeout",
}

// ErrNotAnImage is returned when a probed url answers with something that is
// not an image.
var ErrNotAnImage = errors.New("url does not point to an image")

// Probe is what the proxy learned about a url.
type Probe struct {
	StatusCode  int
	ContentType string
	// Reachable is false when the request could not be performed or the
	// rate limiter did not allow it. Callers decide whether that is fatal.
	Reachable bool
}

// IsImage reports whether the probe saw an image content type.
func (p Probe) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(p.ContentType), "image/")
}

// Proxy performs HEAD requests against logo urls, never downloading bodies.
type Proxy struct {
	header      map[string]string
	client      *http.Client
	rateLimiter *RateLimiter
}

func NewProxy(header map[string]string, restrictions []Restriction, timeout time.Duration) *Proxy {
	return &Proxy{header: header, client: &http.Client{Timeout: timeout}, rateLimiter: NewRateLimiter(restrictions)}
}

// Probe asks the provided url for its headers.
// Probing is never vital, so a busy rate limiter just yields an unreachable probe.
func (proxy *Proxy) Probe(ctx context.Context, url string) Probe {

	allowed, err := proxy.rateLimiter.Allowed(ctx, false)
	if err != nil || !allowed {
		log.Warn().Str("url", url).Msg("Rate limiter is not allowing the probe")
		return Probe{}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Could not create probe request")
		return Probe{}
	}
	for key, value := range proxy.header {
		request.Header.Set(key, value)
	}

	res, err := proxy.client.Do(request)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Could not perform probe request")
		return Probe{}
	}
	defer res.Body.Close()

	message, ok := messages[res.StatusCode]
	if !ok {
		message = "Unknown status"
	}
	log.Debug().Int("status", res.StatusCode).Str("url", url).Msg(message)

	return Probe{StatusCode: res.StatusCode, ContentType: res.Header.Get("Content-Type"), Reachable: true}
}

// CheckImage probes the url and fails only when the server clearly answers
// with something other than an image. Unreachable hosts and servers refusing
// HEAD requests get the benefit of the doubt.
func (proxy *Proxy) CheckImage(ctx context.Context, url string) error {
	probe := proxy.Probe(ctx, url)
	if !probe.Reachable {
		return nil
	}
	switch probe.StatusCode {
	case OK:
		if probe.ContentType != "" && !probe.IsImage() {
			return errors.Wrapf(ErrNotAnImage, "content type %q", probe.ContentType)
		}
		return nil
	case DATA_NOT_FOUND:
		return errors.Newf("url answered %d %s", probe.StatusCode, messages[probe.StatusCode])
	default:
		return nil
	}
}
