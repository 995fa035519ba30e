package airbnb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"airbnb-ingest/config"
	"airbnb-ingest/models"
	"airbnb-ingest/utils"
)

const (
	searchBase   = "https://www.airbnb.com/s/homes"
	cardsPerPage = 18
	maxGallery   = 10
)

var (
	roomIDRegexp = regexp.MustCompile(`/rooms/(\d+)`)
	priceRegexp  = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	symbolRegexp = regexp.MustCompile(`[$€£¥฿₫]`)
	ratingRegexp = regexp.MustCompile(`([0-5](?:\.\d{1,2})?)`)
	reviewRegexp = regexp.MustCompile(`\(?(\d+)\)?\s*review|\((\d+)\)`)
)

// Scraper runs a map-bounded Airbnb search in a headless browser and
// assembles each result card into the raw listing record shape the ingest
// pipeline consumes.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	seen   *utils.URLSet
	retry  *utils.RetryConfig

	mu    sync.Mutex
	cards []*models.ScrapedCard
}

// New creates a ready-to-use Airbnb Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		seen:   utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Scrape walks the search result pages for the given parameters and returns
// the collected cards, gallery images included.
func (s *Scraper) Scrape(params models.SearchParams) ([]*models.ScrapedCard, error) {
	s.logger.Info("[airbnb] Starting search scrape — bbox (%.4f,%.4f)–(%.4f,%.4f), %d pages",
		params.SWLat, params.SWLong, params.NELat, params.NELong, s.cfg.PagesToScrape)

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[airbnb] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}
	if params.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(params.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	for page := 1; page <= s.cfg.PagesToScrape; page++ {
		pageURL := buildSearchURL(params, page)
		s.logger.Info("[airbnb] Scraping page %d — URL: %s", page, pageURL)

		pageCards, err := s.scrapePage(allocCtx, pageURL, page)
		if err != nil {
			s.logger.Error("[airbnb] Page %d failed: %v", page, err)
			break
		}
		if len(pageCards) == 0 {
			s.logger.Warn("[airbnb] Page %d returned 0 cards — stopping", page)
			break
		}

		s.fetchGalleries(allocCtx, pageCards)

		s.mu.Lock()
		s.cards = append(s.cards, pageCards...)
		s.mu.Unlock()

		s.logger.Info("[airbnb] Page %d done — %d cards so far", page, len(s.cards))
		time.Sleep(time.Duration(s.cfg.RateLimitMs) * time.Millisecond)
	}

	s.logger.Info("[airbnb] Scrape complete — total cards: %d", len(s.cards))
	return s.cards, nil
}

// buildSearchURL assembles the map-search URL for one result page.
func buildSearchURL(p models.SearchParams, page int) string {
	q := url.Values{}
	q.Set("search_by_map", "true")
	q.Set("ne_lat", strconv.FormatFloat(p.NELat, 'f', -1, 64))
	q.Set("ne_lng", strconv.FormatFloat(p.NELong, 'f', -1, 64))
	q.Set("sw_lat", strconv.FormatFloat(p.SWLat, 'f', -1, 64))
	q.Set("sw_lng", strconv.FormatFloat(p.SWLong, 'f', -1, 64))
	if p.ZoomValue > 0 {
		q.Set("zoom", strconv.Itoa(p.ZoomValue))
	}
	if p.CheckIn != "" && p.CheckOut != "" {
		q.Set("checkin", p.CheckIn)
		q.Set("checkout", p.CheckOut)
	}
	if p.PriceMin > 0 {
		q.Set("price_min", strconv.Itoa(p.PriceMin))
	}
	if p.PriceMax > 0 {
		q.Set("price_max", strconv.Itoa(p.PriceMax))
	}
	if p.PlaceType != "" {
		q.Add("room_types[]", p.PlaceType)
	}
	for _, a := range p.Amenities {
		q.Add("amenities[]", strconv.Itoa(a))
	}
	if p.Currency != "" {
		q.Set("currency", p.Currency)
	}
	if p.Language != "" {
		q.Set("locale", p.Language)
	}
	if page > 1 {
		q.Set("items_offset", strconv.Itoa((page-1)*cardsPerPage))
	}
	return searchBase + "?" + q.Encode()
}

// scrapePage loads one search results page and extracts the listing cards.
func (s *Scraper) scrapePage(allocCtx context.Context, pageURL string, pageNum int) ([]*models.ScrapedCard, error) {
	var cards []*models.ScrapedCard

	err := s.retry.Do(fmt.Sprintf("scrape-page-%d", pageNum), func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		type cardData struct {
			Title  string `json:"title"`
			Name   string `json:"name"`
			Price  string `json:"price"`
			Rating string `json:"rating"`
			Badge  string `json:"badge"`
			Image  string `json:"image"`
			URL    string `json:"url"`
		}

		var raw []cardData

		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(6*time.Second),

			// Scroll so lazy cards render
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];
					var seen = {};
					var cards = document.querySelectorAll('[data-testid="card-container"], [itemprop="itemListElement"]');

					for (var i = 0; i < cards.length; i++) {
						var card = cards[i];
						var linkEl = card.querySelector('a[href*="/rooms/"]');
						var href = linkEl ? linkEl.href : '';
						if (!href || seen[href]) continue;
						seen[href] = true;

						var titleEl = card.querySelector('[data-testid="listing-card-title"]');
						var nameEl = card.querySelector('[data-testid="listing-card-subtitle"]') ||
						             card.querySelector('span[class*="t6mzqp7"]');

						var price = '';
						var priceEl = card.querySelector('[data-testid="price-availability-row"]') ||
						              card.querySelector('span[class*="price"]');
						if (priceEl) price = priceEl.innerText.replace(/\n/g, ' ').trim();

						var rating = '';
						var ratingEl = card.querySelector('[aria-label*="rating"]') ||
						               card.querySelector('span[class*="r4a59j5"]');
						if (ratingEl) rating = (ratingEl.innerText || ratingEl.getAttribute('aria-label') || '').trim();

						var badge = '';
						var badgeEl = card.querySelector('[data-testid="listing-card-badge"]') ||
						              card.querySelector('div[class*="badge"]');
						if (badgeEl) badge = badgeEl.innerText.trim();

						var image = '';
						var imgEl = card.querySelector('img[data-original-uri]') || card.querySelector('img');
						if (imgEl) image = imgEl.getAttribute('data-original-uri') || imgEl.src || '';

						results.push({
							title:  titleEl ? titleEl.innerText.trim() : '',
							name:   nameEl ? nameEl.innerText.trim() : '',
							price:  price,
							rating: rating,
							badge:  badge,
							image:  image,
							url:    href
						});
					}
					return results;
				})()
			`, &raw),
		)
		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		s.logger.Debug("[airbnb] Page %d — found %d cards", pageNum, len(raw))

		cards = cards[:0]
		for _, c := range raw {
			roomID := roomIDFromURL(c.URL)
			if roomID == 0 {
				continue
			}
			if !s.seen.Add(c.URL) {
				s.logger.Debug("[airbnb] Skipping duplicate: %s", c.URL)
				continue
			}
			card := &models.ScrapedCard{
				RoomID:    roomID,
				Title:     c.Title,
				Name:      c.Name,
				RawPrice:  c.Price,
				RawRating: c.Rating,
				Badge:     c.Badge,
				URL:       c.URL,
				ScrapedAt: time.Now(),
			}
			if c.Image != "" {
				card.ImageURLs = append(card.ImageURLs, c.Image)
			}
			cards = append(cards, card)
		}
		return nil
	})

	return cards, err
}

// fetchGalleries visits each card's detail page and collects its photo
// gallery, throttled through the worker pool.
func (s *Scraper) fetchGalleries(allocCtx context.Context, cards []*models.ScrapedCard) {
	for _, card := range cards {
		c := card
		s.pool.Submit(func() {
			urls, err := s.scrapeGallery(allocCtx, c.URL)
			if err != nil {
				s.logger.Warn("[airbnb] Gallery fetch failed for room %d: %v", c.RoomID, err)
				return
			}
			for _, u := range urls {
				if len(c.ImageURLs) >= maxGallery {
					break
				}
				if !containsStr(c.ImageURLs, u) {
					c.ImageURLs = append(c.ImageURLs, u)
				}
			}
			s.logger.Debug("[airbnb] Room %d — %d gallery images", c.RoomID, len(c.ImageURLs))
		})
	}
	s.pool.Wait()
}

func (s *Scraper) scrapeGallery(allocCtx context.Context, pageURL string) ([]string, error) {
	var urls []string

	err := s.retry.Do("detail-gallery", func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(4*time.Second),

			chromedp.Evaluate(`
				(function() {
					var out = [];
					var seen = {};
					var imgs = document.querySelectorAll(
						'[data-testid="photo-viewer-section"] img, [data-section-id="HERO_DEFAULT"] img, img[data-original-uri]');
					if (imgs.length === 0) imgs = document.querySelectorAll('main img[src*="muscache"]');
					for (var i = 0; i < imgs.length && out.length < `+strconv.Itoa(maxGallery)+`; i++) {
						var src = imgs[i].getAttribute('data-original-uri') || imgs[i].src || '';
						if (!src || seen[src]) continue;
						seen[src] = true;
						out.push(src);
					}
					return out;
				})()
			`, &urls),
		)
	})

	return urls, err
}

// BuildRecords converts scraped cards into the raw listing objects the ingest
// pipeline expects: nested rating / price.unit blocks, badges, images.
func BuildRecords(cards []*models.ScrapedCard) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(cards))
	for _, c := range cards {
		rec := map[string]interface{}{
			"room_id": c.RoomID,
			"name":    c.Name,
			"title":   c.Title,
		}

		badges := []string{}
		if c.Badge != "" {
			badges = append(badges, c.Badge)
		}
		rec["badges"] = badges

		if value, reviews, ok := parseRating(c.RawRating); ok {
			rating := map[string]interface{}{"value": value}
			if reviews > 0 {
				rating["reviewCount"] = reviews
			}
			rec["rating"] = rating
		}

		if amount, symbol, qualifier, ok := parsePrice(c.RawPrice); ok {
			rec["price"] = map[string]interface{}{
				"unit": map[string]interface{}{
					"amount":          amount,
					"qualifier":       qualifier,
					"currency_symbol": symbol,
				},
			}
		}

		images := make([]map[string]interface{}, 0, len(c.ImageURLs))
		for _, u := range c.ImageURLs {
			images = append(images, map[string]interface{}{"url": u})
		}
		rec["images"] = images

		records = append(records, rec)
	}
	return records
}

// SaveResults writes the records as a timestamped JSON array into dir — the
// same file naming and layout the ingest folder expects.
func SaveResults(dir string, records []map[string]interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("airbnb: create results dir: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return "", fmt.Errorf("airbnb: marshal results: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("search_results_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("airbnb: write results file: %w", err)
	}
	return path, nil
}

func roomIDFromURL(u string) int64 {
	m := roomIDRegexp.FindStringSubmatch(u)
	if len(m) < 2 {
		return 0
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// parsePrice extracts an amount, currency symbol and qualifier from a card's
// price text, e.g. "$120 per night" or "€450 total before taxes".
func parsePrice(raw string) (float64, string, string, bool) {
	if raw == "" {
		return 0, "", "", false
	}

	match := priceRegexp.FindString(strings.ReplaceAll(raw, ",", ""))
	if match == "" {
		return 0, "", "", false
	}
	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, "", "", false
	}

	symbol := symbolRegexp.FindString(raw)

	qualifier := ""
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "night"):
		qualifier = "per night"
	case strings.Contains(lower, "total"):
		qualifier = "total"
	}

	return amount, symbol, qualifier, true
}

// parseRating extracts the rating value and review count from a card's rating
// text, e.g. "4.85 (132)" or "4.85 out of 5 average rating, 132 reviews".
func parseRating(raw string) (float64, int64, bool) {
	m := ratingRegexp.FindStringSubmatch(raw)
	if len(m) < 2 {
		return 0, 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value > 5 {
		return 0, 0, false
	}

	var reviews int64
	if rm := reviewRegexp.FindStringSubmatch(raw); rm != nil {
		for _, g := range rm[1:] {
			if g != "" {
				reviews, _ = strconv.ParseInt(g, 10, 64)
				break
			}
		}
	}
	return value, reviews, true
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
