package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rpupo63/foodgram-backend/errs"
)

const (
	defaultPageSize = 6
	maxPageSize     = 100
)

type pageRequest struct {
	Page  int
	Limit int
}

func (p pageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// parsePageRequest reads page (1-based) and limit. limit is capped at
// maxPageSize; a page whose offset would not fit in an int is rejected.
func parsePageRequest(q url.Values) (pageRequest, error) {
	p := pageRequest{Page: 1, Limit: defaultPageSize}
	verr := errs.NewValidationErrors()

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			verr.Add("limit", "limit must be a positive integer")
		} else {
			p.Limit = min(n, maxPageSize)
		}
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil || n < 1:
			verr.Add("page", "page must be a positive integer")
		case n >= math.MaxInt/p.Limit:
			verr.Add("page", "page is out of range")
		default:
			p.Page = n
		}
	}
	return p, verr.OrNil()
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func newPage[T any](baseURL string, r *http.Request, p pageRequest, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}
	if int64(p.Page*p.Limit) < count {
		page.Next = pageURL(baseURL, r, p.Page+1)
	}
	if p.Page > 1 {
		page.Previous = pageURL(baseURL, r, p.Page-1)
	}
	return page
}

func pageURL(baseURL string, r *http.Request, page int) *string {
	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := baseURL + r.URL.Path
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return &u
}
