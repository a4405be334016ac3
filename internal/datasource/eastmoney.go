// Package datasource fetches live snapshots and daily history from the
// Eastmoney quote API, with request throttling and an error taxonomy
// that separates retryable from terminal failures.
package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

const (
	listURL  = "https://82.push2.eastmoney.com/api/qt/clist/get"
	klineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

	// f2 price, f3 pct change, f5 volume, f8 turnover rate, f9 PE,
	// f10 volume ratio, f12 code, f14 name, f15 high, f16 low,
	// f17 open, f18 prev close, f20 market cap, f23 PB,
	// f62 main net inflow, f100 industry.
	listFields = "f2,f3,f5,f8,f9,f10,f12,f14,f15,f16,f17,f18,f20,f23,f62,f100"

	// Shanghai and Shenzhen main boards plus ChiNext.
	listMarkets = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23"

	// f51 date, f52 open, f53 close, f54 high, f55 low, f56 volume,
	// f57 amount, f58 amplitude, f59 pct change, f60 change, f61
	// turnover rate.
	klineFields = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"

	pageSize    = 200
	maxKlineLmt = 1000

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer   = "https://quote.eastmoney.com/"
)

// Client is a throttled Eastmoney API client. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient builds a Client capped at requestsPerSec outbound requests.
func NewClient(requestsPerSec float64, timeout time.Duration, log *logger.Logger) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		log:        log,
	}
}

// SecID converts a bare symbol code into the market-prefixed secid the
// kline endpoint expects: Shanghai codes (6xx) get prefix 1, the rest
// get prefix 0.
func SecID(code string) string {
	if strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transient(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, permanent(op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transient(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, transient(op, fmt.Errorf("http %d", resp.StatusCode))
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, permanent(op, fmt.Errorf("http %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transient(op, err)
	}
	return body, nil
}

// FetchSnapshot pulls the whole-universe quote list, paging until the
// server-reported total is reached.
func (c *Client) FetchSnapshot(ctx context.Context) (*contracts.MarketSnapshot, error) {
	return c.fetchSnapshotFrom(ctx, listURL)
}

func (c *Client) fetchSnapshotFrom(ctx context.Context, baseURL string) (*contracts.MarketSnapshot, error) {
	snap := &contracts.MarketSnapshot{FetchedAt: time.Now()}
	page := 1
	for {
		url := fmt.Sprintf("%s?pn=%d&pz=%d&po=1&fid=f3&fs=%s&fields=%s",
			baseURL, page, pageSize, listMarkets, listFields)
		body, err := c.get(ctx, "snapshot", url)
		if err != nil {
			return nil, err
		}
		total, count, err := parseSnapshotPage(body, snap)
		if err != nil {
			return nil, err
		}
		if count == 0 || len(snap.Rows) >= total || count < pageSize {
			break
		}
		page++
	}
	if len(snap.Rows) == 0 {
		return nil, permanent("snapshot", fmt.Errorf("empty universe"))
	}
	c.log.WithFields(map[string]interface{}{
		"rows":  len(snap.Rows),
		"pages": page,
	}).Debug("market snapshot fetched")
	return snap, nil
}

func parseSnapshotPage(body []byte, snap *contracts.MarketSnapshot) (total, count int, err error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return 0, 0, permanent("snapshot", fmt.Errorf("missing data object"))
	}
	total = int(data.Get("total").Int())
	diff := data.Get("diff")
	if !diff.Exists() {
		return total, 0, nil
	}
	diff.ForEach(func(_, item gjson.Result) bool {
		code := item.Get("f12").String()
		if code == "" {
			return true
		}
		snap.Rows = append(snap.Rows, contracts.SnapshotRow{
			Symbol: code,
			Name:   item.Get("f14").String(),
			Sector: item.Get("f100").String(),
			Price:  item.Get("f2").Float(),
			// f3 is a percentage; convert to a fraction.
			PctChange:     item.Get("f3").Float() / 100,
			High:          item.Get("f15").Float(),
			Low:           item.Get("f16").Float(),
			Open:          item.Get("f17").Float(),
			PrevClose:     item.Get("f18").Float(),
			TurnoverRate:  item.Get("f8").Float(),
			VolumeRatio:   item.Get("f10").Float(),
			PE:            item.Get("f9").Float(),
			PB:            item.Get("f23").Float(),
			MarketCap:     item.Get("f20").Float(),
			MainNetInflow: item.Get("f62").Float(),
		})
		count++
		return true
	})
	return total, count, nil
}

// FetchHistory pulls up to limit forward-adjusted daily bars for one
// symbol, oldest first.
func (c *Client) FetchHistory(ctx context.Context, symbol string, limit int) ([]contracts.PriceBar, error) {
	if symbol == "" {
		return nil, permanent("history", fmt.Errorf("empty symbol"))
	}
	if limit <= 0 || limit > maxKlineLmt {
		limit = maxKlineLmt
	}
	url := fmt.Sprintf("%s?secid=%s&fields1=f1,f2,f3&fields2=%s&klt=101&fqt=1&lmt=%d",
		klineURL, SecID(symbol), klineFields, limit)
	body, err := c.get(ctx, "history "+symbol, url)
	if err != nil {
		return nil, err
	}
	return parseKlines(body, symbol)
}

func parseKlines(body []byte, symbol string) ([]contracts.PriceBar, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return nil, permanent("history "+symbol, fmt.Errorf("no klines in response"))
	}
	arr := klines.Array()
	bars := make([]contracts.PriceBar, 0, len(arr))
	for _, v := range arr {
		bar, ok := parseKlineRow(symbol, v.String())
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, permanent("history "+symbol, fmt.Errorf("empty kline series"))
	}
	return bars, nil
}

func parseKlineRow(symbol, row string) (contracts.PriceBar, bool) {
	parts := strings.Split(strings.TrimSpace(row), ",")
	if len(parts) < 6 {
		return contracts.PriceBar{}, false
	}
	date, err := time.Parse(contracts.DateFormat, parts[0])
	if err != nil {
		return contracts.PriceBar{}, false
	}
	open, _ := strconv.ParseFloat(parts[1], 64)
	closePx, _ := strconv.ParseFloat(parts[2], 64)
	high, _ := strconv.ParseFloat(parts[3], 64)
	low, _ := strconv.ParseFloat(parts[4], 64)
	volume, _ := strconv.ParseInt(parts[5], 10, 64)
	var turnover float64
	if len(parts) >= 11 {
		turnover, _ = strconv.ParseFloat(parts[10], 64)
	}
	if closePx <= 0 {
		return contracts.PriceBar{}, false
	}
	return contracts.PriceBar{
		Symbol:       symbol,
		Date:         date,
		Open:         open,
		High:         high,
		Low:          low,
		Close:        closePx,
		Volume:       volume,
		TurnoverRate: turnover,
	}, true
}
