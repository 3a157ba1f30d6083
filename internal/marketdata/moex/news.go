package moex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	newsPath     = "/iss/sitenews.json"
	newsPageSize = 50
	newsPages    = 4
	newsWindow   = 24 * time.Hour
)

// tickerToNames maps tickers to Russian company names for news matching.
var tickerToNames = map[string][]string{
	"SBER": {"Сбербанк", "Сбер"},
	"GAZP": {"Газпром"},
	"LKOH": {"Лукойл", "ЛУКОЙЛ"},
	"GMKN": {"Норникель", "Норильский никель"},
	"NVTK": {"Новатэк", "НОВАТЭК"},
	"ROSN": {"Роснефть"},
	"YDEX": {"Яндекс"},
	"T":    {"Т-Банк", "Т-Технологии"},
	"MTSS": {"МТС"},
	"MGNT": {"Магнит"},
	"PLZL": {"Полюс"},
	"CHMF": {"Северсталь"},
	"ALRS": {"Алроса", "АЛРОСА"},
	"SNGS": {"Сургутнефтегаз"},
	"VTBR": {"ВТБ"},
	"MOEX": {"Мосбиржа", "Московская биржа"},
	"TATN": {"Татнефть"},
	"NLMK": {"НЛМК"},
	"PHOR": {"ФосАгро"},
	"IRAO": {"Интер РАО"},
}

type newsResponse struct {
	SiteNews table `json:"sitenews"`
}

// Headlines returns titles from the last day of exchange news that mention
// each symbol or its company name.
func (c *Client) Headlines(ctx context.Context, symbols []string) (map[string][]string, error) {
	news, err := c.recentNews(ctx)
	if err != nil {
		return nil, err
	}
	return FilterNewsForTickers(news, symbols), nil
}

func (c *Client) recentNews(ctx context.Context) ([]NewsItem, error) {
	var all []NewsItem
	cutoff := c.now().Add(-newsWindow)

	for page := 0; page < newsPages; page++ {
		var resp newsResponse
		err := c.get(ctx, newsPath, map[string]string{
			"lang":  "ru",
			"start": strconv.Itoa(page * newsPageSize),
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("news page %d: %w", page, err)
		}

		idx := resp.SiteNews.index()
		idIdx, okID := idx["id"]
		titleIdx, okTitle := idx["title"]
		pubIdx, okPub := idx["published_at"]
		if !okID || !okTitle || !okPub {
			return nil, fmt.Errorf("unexpected news columns: %v", resp.SiteNews.Columns)
		}

		stoppedEarly := false
		for _, row := range resp.SiteNews.Data {
			if len(row) != len(resp.SiteNews.Columns) {
				continue
			}
			pubStr, _ := row[pubIdx].(string)
			published, err := time.ParseInLocation(time.DateTime, pubStr, moscow)
			if err != nil {
				continue
			}
			if published.Before(cutoff) {
				stoppedEarly = true
				break
			}
			title, _ := row[titleIdx].(string)
			all = append(all, NewsItem{
				ID:        int64(toFloat64(row[idIdx])),
				Title:     title,
				Published: published,
			})
		}

		if stoppedEarly || len(resp.SiteNews.Data) < newsPageSize {
			break
		}
	}
	return all, nil
}

// FilterNewsForTickers groups titles by ticker, matching the ticker itself or
// a known company name.
func FilterNewsForTickers(news []NewsItem, tickers []string) map[string][]string {
	result := make(map[string][]string)

	for _, ticker := range tickers {
		searchTerms := []string{strings.ToUpper(ticker)}
		searchTerms = append(searchTerms, tickerToNames[ticker]...)

		for _, item := range news {
			titleUpper := strings.ToUpper(item.Title)
			for _, term := range searchTerms {
				if len([]rune(term)) < 2 {
					continue
				}
				if strings.Contains(titleUpper, strings.ToUpper(term)) {
					result[ticker] = append(result[ticker], item.Title)
					break
				}
			}
		}
	}
	return result
}
