// Package dislikes wraps the dislike aggregation service
// (returnyoutubedislike) behind a small typed client. 200 is success, 429 is
// a rate limit retried with exponential backoff, anything else is a soft
// failure that yields zero votes.
package dislikes

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-querystring/query"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/infrastructure/logger"
)

// Votes is the subset of the service response the analysis uses.
type Votes struct {
	Likes    int64    `json:"likes"`
	Dislikes int64    `json:"dislikes"`
	Rating   *float64 `json:"rating,omitempty"`
}

type votesQuery struct {
	VideoID string `url:"videoId"`
}

// Client is one persistent HTTP client per worker process with a small
// keep-alive pool, shared across all dislike lookups of a job.
type Client struct {
	http       *resty.Client
	maxRetries int
	retryDelay time.Duration
}

// New builds the dislike client. baseURL has no trailing slash, e.g.
// https://returnyoutubedislikeapi.com.
func New(baseURL string, maxRetries int, retryDelay time.Duration) *Client {
	transport := &http.Transport{
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTransport(transport).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       httpClient,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// FetchVotes returns the vote counts for one video. Rate limits are retried
// with retryDelay*2^attempt; every other failure degrades to zero votes so a
// missing enrichment never sinks the batch.
func (c *Client) FetchVotes(ctx context.Context, videoID string) (Votes, error) {
	// Small jitter keeps the vote calls from arriving in lockstep with the
	// video detail fetches.
	select {
	case <-time.After(time.Duration(100+rand.Intn(200)) * time.Millisecond):
	case <-ctx.Done():
		return Votes{}, ctx.Err()
	}

	q, err := query.Values(votesQuery{VideoID: videoID})
	if err != nil {
		return Votes{}, fmt.Errorf("encoding votes query: %w", err)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(q).
			Get("/votes")
		if err != nil {
			if ctx.Err() != nil {
				return Votes{}, ctx.Err()
			}
			if attempt < c.maxRetries {
				logger.GetLogger().
					WithField("video_id", videoID).
					WithField("attempt", attempt+1).
					WithField("error", err).
					Warn("Dislike fetch failed, retrying")
				if sleepErr := sleepCtx(ctx, c.retryDelay); sleepErr != nil {
					return Votes{}, sleepErr
				}
				continue
			}
			return Votes{}, fmt.Errorf("dislike fetch failed for %s: %w", videoID, err)
		}

		switch resp.StatusCode() {
		case http.StatusOK:
			var v Votes
			if err := json.Unmarshal(resp.Body(), &v); err != nil {
				return Votes{}, fmt.Errorf("decoding votes for %s: %w", videoID, err)
			}
			return v, nil
		case http.StatusTooManyRequests:
			if attempt < c.maxRetries {
				wait := c.retryDelay * (1 << attempt)
				logger.GetLogger().
					WithField("video_id", videoID).
					WithField("wait", wait.String()).
					Warn("Dislike service rate limited, backing off")
				if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
					return Votes{}, sleepErr
				}
				continue
			}
			return Votes{}, &model.RateLimitError{Err: fmt.Errorf("dislike service 429 for %s after %d retries", videoID, c.maxRetries)}
		default:
			return Votes{}, fmt.Errorf("dislike service returned HTTP %d for %s", resp.StatusCode(), videoID)
		}
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	if t, ok := c.http.GetClient().Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
