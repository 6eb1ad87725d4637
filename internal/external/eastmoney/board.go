package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var stockCodeRe = regexp.MustCompile(`^(\d{6})$`)

// FetchBoardMembers scrapes the member stock codes of an industry board page
// and returns them with the exchange suffix attached.
// ⭐ SSOT: 行业板块成分抓取只在这里
func (c *Client) FetchBoardMembers(ctx context.Context, board string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/center/boardlist.html#boards-%s", c.cfg.BoardURL, board)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("board request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("board request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	codes, err := parseBoardHTML(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"board": board,
		"count": len(codes),
	}).Debug("Fetched board members")

	return codes, nil
}

// parseBoardHTML extracts member codes from the board list table. The first
// cell of each data row holds the six-digit code.
func parseBoardHTML(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse board page: %w", err)
	}

	seen := make(map[string]bool)
	codes := make([]string, 0)

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cell := strings.TrimSpace(row.Find("td").First().Text())
		m := stockCodeRe.FindStringSubmatch(cell)
		if m == nil {
			return
		}

		code := withExchangeSuffix(m[1])
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	})

	return codes, nil
}

// withExchangeSuffix attaches the exchange by code prefix: 6xxxxx trades in
// Shanghai, everything else in Shenzhen.
func withExchangeSuffix(code string) string {
	if strings.HasPrefix(code, "6") {
		return code + ".XSHG"
	}
	return code + ".XSHE"
}
