// Package reddit lists image posts of a subreddit or a single post and turns
// them into candidate entries.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kozaktomas/face-finder/internal/acquisition"
	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/logging"
)

const (
	defaultPublicURL  = "https://www.reddit.com"
	defaultOAuthURL   = "https://oauth.reddit.com"
	defaultTokenURL   = "https://www.reddit.com/api/v1/access_token"
	defaultTimeout    = 15 * time.Second
	tokenExpiryMargin = time.Minute

	breakerMaxFailures = 5
	breakerOpenTimeout = 30 * time.Second
)

// ErrCircuitOpen is returned while Reddit requests are suspended after repeated failures.
var ErrCircuitOpen = errors.New("reddit circuit breaker is open")

var (
	namePattern   = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)
	postIDPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)
)

// Client reads Reddit listings, through OAuth when credentials are configured
// and through the public JSON endpoints otherwise.
type Client struct {
	httpClient *http.Client
	publicURL  string
	oauthURL   string
	tokenURL   string
	linkURL    string

	clientID     string
	clientSecret string
	userAgent    string
	listingLimit int

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	now     func() time.Time

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ acquisition.Source = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithEndpoints overrides the public, OAuth and token endpoints.
func WithEndpoints(publicURL, oauthURL, tokenURL string) Option {
	return func(c *Client) {
		c.publicURL = publicURL
		c.oauthURL = oauthURL
		c.tokenURL = tokenURL
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Reddit client from cfg.
func NewClient(cfg config.RedditConfig, logger *zap.Logger, opts ...Option) *Client {
	logger = logging.OrNop(logger)

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}
	limit := cfg.ListingLimit
	if limit <= 0 {
		limit = constants.DefaultListingLimit
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		publicURL:    defaultPublicURL,
		oauthURL:     defaultOAuthURL,
		tokenURL:     defaultTokenURL,
		linkURL:      defaultPublicURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		userAgent:    userAgent,
		listingLimit: min(limit, 100),
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), min(rpm, 10)),
		logger:       logger,
		now:          time.Now,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reddit",
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation and missing posts say nothing about Reddit's health
			return err == nil || errors.Is(err, context.Canceled) || IsNotFoundError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UsesOAuth reports whether listings are read through the OAuth API.
func (c *Client) UsesOAuth() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// target is what a Reddit link points at.
type target struct {
	subreddit string
	postID    string
}

// parseTarget understands /r/<sub>[/...], /r/<sub>/comments/<id>[/...],
// /comments/<id>, /gallery/<id> and redd.it/<id>.
func parseTarget(sourceURL string) (target, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return target{}, fmt.Errorf("%w: %w", acquisition.ErrInvalidSource, err)
	}

	var parts []string
	for p := range strings.SplitSeq(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	host := strings.ToLower(u.Hostname())
	if host == "redd.it" || strings.HasSuffix(host, ".redd.it") {
		if len(parts) == 1 && postIDPattern.MatchString(strings.ToLower(parts[0])) {
			return target{postID: strings.ToLower(parts[0])}, nil
		}
		return target{}, nil
	}

	switch {
	case len(parts) >= 4 && strings.EqualFold(parts[0], "r") && strings.EqualFold(parts[2], "comments"):
		if !namePattern.MatchString(parts[1]) || !postIDPattern.MatchString(strings.ToLower(parts[3])) {
			return target{}, nil
		}
		return target{subreddit: parts[1], postID: strings.ToLower(parts[3])}, nil
	case len(parts) >= 2 && strings.EqualFold(parts[0], "r"):
		if !namePattern.MatchString(parts[1]) {
			return target{}, nil
		}
		return target{subreddit: parts[1]}, nil
	case len(parts) >= 2 && (strings.EqualFold(parts[0], "comments") || strings.EqualFold(parts[0], "gallery")):
		if !postIDPattern.MatchString(strings.ToLower(parts[1])) {
			return target{}, nil
		}
		return target{postID: strings.ToLower(parts[1])}, nil
	}
	return target{}, nil
}

// FetchCandidateEntries lists image entries behind a subreddit or post link.
// Links that point at neither yield an empty result.
func (c *Client) FetchCandidateEntries(ctx context.Context, sourceURL string) ([]acquisition.CandidateEntry, error) {
	if err := acquisition.ValidateSourceURL(sourceURL); err != nil {
		return nil, err
	}
	t, err := parseTarget(sourceURL)
	if err != nil {
		return nil, err
	}

	var posts []post
	switch {
	case t.postID != "":
		p, err := c.fetchPost(ctx, t)
		if err != nil {
			return nil, err
		}
		if p != nil {
			posts = append(posts, *p)
		}
	case t.subreddit != "":
		posts, err = c.fetchNewPosts(ctx, t.subreddit)
		if err != nil {
			return nil, err
		}
	default:
		c.logger.Info("reddit link points at neither a subreddit nor a post",
			zap.String("url", logging.SanitizeForLog(sourceURL)))
		return []acquisition.CandidateEntry{}, nil
	}

	var entries []acquisition.CandidateEntry
	for i := range posts {
		entries = append(entries, entriesFromPost(&posts[i], c.linkURL)...)
	}
	entries = dedupe(entries)

	c.logger.Info("reddit entries fetched",
		zap.Int("posts", len(posts)), zap.Int("entries", len(entries)), zap.Bool("oauth", c.UsesOAuth()))
	return entries, nil
}

func (c *Client) fetchNewPosts(ctx context.Context, subreddit string) ([]post, error) {
	endpoint := "/r/" + url.PathEscape(subreddit) + "/new"
	if !c.UsesOAuth() {
		endpoint += ".json"
	}
	query := url.Values{
		"limit":    {strconv.Itoa(c.listingLimit)},
		"raw_json": {"1"},
	}

	l, err := doGetJSON[listing](ctx, c, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("listing r/%s: %w", subreddit, err)
	}
	return decodePosts(l.Data.Children), nil
}

func (c *Client) fetchPost(ctx context.Context, t target) (*post, error) {
	endpoint := "/comments/" + url.PathEscape(t.postID)
	if t.subreddit != "" {
		endpoint = "/r/" + url.PathEscape(t.subreddit) + endpoint
	}
	if !c.UsesOAuth() {
		endpoint += ".json"
	}
	query := url.Values{"limit": {"1"}, "raw_json": {"1"}}

	// the post endpoint returns [post listing, comment listing]
	ls, err := doGetJSON[[]listing](ctx, c, endpoint, query)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("post %s: %w", t.postID, err)
	}
	if len(*ls) == 0 {
		return nil, nil
	}
	posts := decodePosts((*ls)[0].Data.Children)
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// decodePosts keeps the t3 children that decode cleanly.
func decodePosts(children []thing) []post {
	posts := make([]post, 0, len(children))
	for _, ch := range children {
		if ch.Kind != "t3" {
			continue
		}
		var p post
		if err := json.Unmarshal(ch.Data, &p); err != nil {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}
