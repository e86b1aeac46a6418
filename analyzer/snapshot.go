package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// SnapshotConfig limits how the target page is fetched
type SnapshotConfig struct {
	Timeout  time.Duration
	MaxBytes int64
	// AllowPrivateNetworks disables the public-address check on dialed IPs
	AllowPrivateNetworks bool
}

// ErrBlockedAddress is returned when a page resolves to a non-public address
var ErrBlockedAddress = errors.New("address is not publicly routable")

// publicOnly is a net.Dialer control hook. It runs after DNS resolution for
// every connection, redirects included.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
	}
	return nil
}

// carrier-grade NAT range, not covered by IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Snapshotter reads the metadata a page currently exposes
type Snapshotter struct {
	client   *http.Client
	maxBytes int64
}

// NewSnapshotter creates a snapshotter with a pooled HTTP client
func NewSnapshotter(config SnapshotConfig) *Snapshotter {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !config.AllowPrivateNetworks {
		dialer.Control = publicOnly
	}

	// no proxy: the dialed address must be the page's own
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Snapshotter{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxBytes: config.MaxBytes,
	}
}

// Snapshot fetches pageURL and extracts Open Graph data, falling back to the
// plain HTML title, meta description and canonical link.
func (s *Snapshotter) Snapshot(ctx context.Context, pageURL string) (*PageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; OGAnalyzer/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, s.maxBytes)); err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	return parseSnapshot(buf.Bytes(), pageURL)
}

func parseSnapshot(body []byte, pageURL string) (*PageSnapshot, error) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("failed to parse OpenGraph: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	snap := &PageSnapshot{
		Title:       strings.TrimSpace(og.Title),
		Description: strings.TrimSpace(og.Description),
		Canonical:   strings.TrimSpace(og.URL),
		SiteName:    strings.TrimSpace(og.SiteName),
		Headings:    extractHeadings(doc),
	}

	if snap.Title == "" {
		snap.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if snap.Description == "" {
		if desc, ok := doc.Find("meta[name='description']").First().Attr("content"); ok {
			snap.Description = strings.TrimSpace(desc)
		}
	}
	if snap.Canonical == "" {
		if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
			snap.Canonical = resolveReference(pageURL, strings.TrimSpace(href))
		}
	}
	if len(og.Images) > 0 && og.Images[0] != nil && og.Images[0].URL != "" {
		snap.Image = resolveReference(pageURL, og.Images[0].URL)
	}

	return snap, nil
}

// extractHeadings lists h1-h3 in document order, prefixed with their level
func extractHeadings(doc *goquery.Document) []string {
	headings := make([]string, 0, 8)
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		headings = append(headings, strings.ToUpper(goquery.NodeName(s))+": "+text)
	})
	return headings
}

func resolveReference(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
