package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/browserutils/kooky"
	// Use all browsers for kooky
	_ "github.com/browserutils/kooky/browser/all"
	"github.com/gocolly/colly"
	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// Page is a fetched and parsed HTML page
type Page struct {
	// URL is the final URL after redirects
	URL string
	Doc *goquery.Document
}

// Fetcher downloads pages for scanning
type Fetcher struct {
	config  *domain.ScannerConfig
	cookies *CookieManager
	logger  *zap.Logger
}

// NewFetcher creates a new page fetcher
func NewFetcher(config *domain.ScannerConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{config: config, logger: logger}
	if config.UseBrowserCookies {
		f.cookies = NewCookieManager(logger)
	}
	return f
}

// Fetch retrieves pageURL and parses it
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	target, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		return nil, fmt.Errorf("invalid page URL: %q", pageURL)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := colly.NewCollector(colly.UserAgent(f.config.UserAgent))
	if f.config.FetchTimeout > 0 {
		collector.SetRequestTimeout(f.config.FetchTimeout)
	}

	if f.cookies != nil {
		if cookies := f.cookies.GetCookies(ctx, target); len(cookies) > 0 {
			if err := collector.SetCookies(target.String(), cookies); err != nil {
				return nil, fmt.Errorf("failed to set cookies: %w", err)
			}
		}
	}

	var (
		page     *Page
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			fetchErr = fmt.Errorf("failed to parse page: %w", err)
			return
		}
		doc.Url = r.Request.URL
		page = &Page{URL: r.Request.URL.String(), Doc: doc}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &domain.HTTPStatusError{StatusCode: r.StatusCode}
			return
		}
		fetchErr = err
	})

	if err := collector.Visit(target.String()); err != nil && fetchErr == nil {
		fetchErr = err
	}
	collector.Wait()

	if fetchErr != nil {
		f.logger.Warn("Page fetch failed",
			zap.String("url", pageURL),
			zap.Error(fetchErr))
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, fetchErr)
	}
	if page == nil {
		return nil, errors.New("page returned no content")
	}

	f.logger.Debug("Fetched page",
		zap.String("url", pageURL),
		zap.String("final_url", page.URL))
	return page, nil
}

// CookieManager caches browser cookies per base domain
type CookieManager struct {
	mu      sync.RWMutex
	cookies map[string][]*http.Cookie
	logger  *zap.Logger
}

// NewCookieManager initializes a new cookie manager instance
func NewCookieManager(logger *zap.Logger) *CookieManager {
	return &CookieManager{
		cookies: make(map[string][]*http.Cookie),
		logger:  logger,
	}
}

// GetCookies returns the browser cookies for the base domain of u
func (cm *CookieManager) GetCookies(ctx context.Context, u *url.URL) []*http.Cookie {
	domainName := baseDomain(u.Hostname())

	cm.mu.RLock()
	if cookies, ok := cm.cookies[domainName]; ok {
		cm.mu.RUnlock()
		return cookies
	}
	cm.mu.RUnlock()

	cookies := cm.load(ctx, domainName)

	cm.mu.Lock()
	cm.cookies[domainName] = cookies
	cm.mu.Unlock()

	return cookies
}

func (cm *CookieManager) load(ctx context.Context, domainName string) []*http.Cookie {
	kookyCookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.Domain(domainName))
	if err != nil {
		cm.logger.Debug("Failed reading browser cookies",
			zap.String("domain", domainName),
			zap.Error(err))
		return nil
	}

	cm.logger.Info("Loaded browser cookies",
		zap.String("domain", domainName),
		zap.Int("count", len(kookyCookies)))
	return convertToHTTPCookies(kookyCookies)
}

func convertToHTTPCookies(kookyCookies []*kooky.Cookie) []*http.Cookie {
	httpCookies := make([]*http.Cookie, len(kookyCookies))
	for i, c := range kookyCookies {
		httpCookies[i] = &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Domain: c.Domain,
			Secure: c.Secure,
		}
	}
	return httpCookies
}

// baseDomain keeps the last two labels of host
func baseDomain(host string) string {
	parts := strings.Split(strings.ToLower(host), ".")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return strings.ToLower(host)
}
