package jquants

import (
	"context"
	"strconv"
	"time"

	"github.com/seenimoa/kabuai/internal/provider"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

const (
	endpointInfo         = "/v1/listed/info"
	endpointStatements   = "/v1/fins/statements"
	endpointQuotes       = "/v1/prices/daily_quotes"
	endpointAnnouncement = "/v1/fins/announcement"
	endpointCalendar     = "/v1/markets/trading_calendar"
)

// maxPages bounds pagination so a misbehaving cursor cannot loop forever.
const maxPages = 50

// GetCompanyInfo returns the listing information for a company.
func (c *Client) GetCompanyInfo(ctx context.Context, code models.CompanyCode) (*models.CompanyInfo, error) {
	code, err := models.ParseCompanyCode(string(code))
	if err != nil {
		return nil, err
	}

	params := provider.QueryParams{provider.ParamCode: utils.ToProviderCode(string(code))}
	key := provider.CacheKey(endpointInfo, params)
	if v, ok := c.infoCache.Get(key); ok {
		c.logger.Debug().Str("code", string(code)).Msg("company info cache hit")
		info := v.(models.CompanyInfo)
		return &info, nil
	}

	payload, err := c.Fetch(ctx, endpointInfo, params)
	if err != nil {
		return nil, err
	}
	rows := payload.Rows("info")
	if len(rows) == 0 {
		return nil, &DataUnavailable{Code: code, What: "company info"}
	}

	info := decodeInfo(rows[0])
	if info.Code == "" {
		info.Code = code
	}
	c.infoCache.Set(key, info)
	return &info, nil
}

// GetFinancialStatements returns every disclosed statement for a company,
// filtered by fiscal year and period type when given. The unfiltered list
// is cached per code.
func (c *Client) GetFinancialStatements(ctx context.Context, code models.CompanyCode, year *int, period *models.PeriodType) ([]models.StatementRecord, error) {
	code, err := models.ParseCompanyCode(string(code))
	if err != nil {
		return nil, err
	}

	all, err := c.statements(ctx, code)
	if err != nil {
		return nil, err
	}

	out := make([]models.StatementRecord, 0, len(all))
	for _, rec := range all {
		if year != nil && rec.Period.Year != *year {
			continue
		}
		if period != nil && rec.Period.Type != *period {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, &DataUnavailable{Code: code, What: "financial statements" + filterLabel(year, period)}
	}
	return out, nil
}

func (c *Client) statements(ctx context.Context, code models.CompanyCode) ([]models.StatementRecord, error) {
	params := provider.QueryParams{provider.ParamCode: utils.ToProviderCode(string(code))}
	key := provider.CacheKey(endpointStatements, params)
	if v, ok := c.stmtCache.Get(key); ok {
		c.logger.Debug().Str("code", string(code)).Msg("statements cache hit")
		return v.([]models.StatementRecord), nil
	}

	var records []models.StatementRecord
	skipped := 0
	err := c.paginate(ctx, endpointStatements, params, "statements", func(p RawPayload) {
		for _, row := range p.Rows("statements") {
			rec, ok := decodeStatement(row)
			if !ok {
				skipped++
				continue
			}
			if rec.Code == "" {
				rec.Code = code
			}
			records = append(records, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.Debug().Str("code", string(code)).Int("skipped", skipped).Msg("skipped statements with unknown period")
	}
	if len(records) == 0 {
		return nil, &DataUnavailable{Code: code, What: "financial statements"}
	}

	c.stmtCache.Set(key, records)
	return records, nil
}

// GetPriceSeries returns daily quotes in [from, to], ordered by date.
func (c *Client) GetPriceSeries(ctx context.Context, code models.CompanyCode, from, to time.Time) ([]models.PriceQuote, error) {
	code, err := models.ParseCompanyCode(string(code))
	if err != nil {
		return nil, err
	}

	params := provider.QueryParams{
		provider.ParamCode: utils.ToProviderCode(string(code)),
		provider.ParamFrom: utils.FormatDateJST(from),
		provider.ParamTo:   utils.FormatDateJST(to),
	}
	var quotes []models.PriceQuote
	err = c.paginate(ctx, endpointQuotes, params, "daily_quotes", func(p RawPayload) {
		quotes = append(quotes, decodeQuotes(p.Rows("daily_quotes"))...)
	})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, &DataUnavailable{Code: code, What: "daily quotes"}
	}
	sortQuotes(quotes)
	return quotes, nil
}

// GetAnnouncements returns the scheduled earnings disclosures for the
// coming business day. An empty schedule is not an error.
func (c *Client) GetAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	var out []models.Announcement
	err := c.paginate(ctx, endpointAnnouncement, provider.QueryParams{}, "announcement", func(p RawPayload) {
		for _, row := range p.Rows("announcement") {
			out = append(out, decodeAnnouncement(row))
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTradingCalendar returns the exchange calendar in [from, to].
func (c *Client) GetTradingCalendar(ctx context.Context, from, to time.Time) ([]models.TradingDay, error) {
	params := provider.QueryParams{
		provider.ParamFrom: utils.FormatDateJST(from),
		provider.ParamTo:   utils.FormatDateJST(to),
	}
	payload, err := c.Fetch(ctx, endpointCalendar, params)
	if err != nil {
		return nil, err
	}
	rows := payload.Rows("trading_calendar")
	if len(rows) == 0 {
		return nil, &DataUnavailable{What: "trading calendar"}
	}
	days := make([]models.TradingDay, len(rows))
	for i, row := range rows {
		days[i] = decodeTradingDay(row)
	}
	return days, nil
}

// Ping verifies the refresh token by forcing a token exchange.
func (c *Client) Ping(ctx context.Context) error {
	c.tokenMu.Lock()
	stale := c.idToken
	c.tokenMu.Unlock()
	c.invalidate(stale)

	_, err := c.token(ctx)
	return err
}

// paginate fetches every page of an endpoint, following pagination_key.
func (c *Client) paginate(ctx context.Context, endpoint string, params provider.QueryParams, key string, each func(RawPayload)) error {
	page := make(provider.QueryParams, len(params)+1)
	for k, v := range params {
		page[k] = v
	}

	for i := 0; i < maxPages; i++ {
		payload, err := c.Fetch(ctx, endpoint, page)
		if err != nil {
			return err
		}
		each(payload)

		next := payload.PaginationKey()
		if next == "" {
			return nil
		}
		page["pagination_key"] = next
	}
	c.logger.Warn().Str("endpoint", endpoint).Str("rows", key).Int("pages", maxPages).Msg("pagination truncated")
	return nil
}

func filterLabel(year *int, period *models.PeriodType) string {
	switch {
	case year != nil && period != nil:
		return " for " + models.FiscalPeriod{Type: *period, Year: *year}.String()
	case year != nil:
		return " for FY" + strconv.Itoa(*year)
	case period != nil:
		return " for " + string(*period)
	}
	return ""
}
