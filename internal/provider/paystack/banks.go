package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"payments-service/internal/domain"

	"go.uber.org/zap"
)

// Bank is a selectable destination for withdrawals.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

const bankCacheTTL = 24 * time.Hour

// bankCache holds the last fetched bank list. Stale reads are harmless: a
// stale list only delays new banks appearing in the selection UI.
type bankCache struct {
	mu        sync.Mutex
	banks     []Bank
	fetchedAt time.Time
}

// fallbackBanks keeps bank selection working when the gateway is down.
var fallbackBanks = []Bank{
	{Name: "Absa Bank", Code: "632005"},
	{Name: "African Bank", Code: "430000"},
	{Name: "Bidvest Bank", Code: "462005"},
	{Name: "Capitec Bank", Code: "470010"},
	{Name: "Discovery Bank", Code: "679000"},
	{Name: "First National Bank", Code: "250655"},
	{Name: "Investec Bank", Code: "580105"},
	{Name: "Nedbank", Code: "198765"},
	{Name: "Standard Bank", Code: "051001"},
	{Name: "TymeBank", Code: "678910"},
}

// GetBankList returns the ZAR bank list, cached process-wide for 24 hours.
// On gateway failure it serves the previous cache if any, then the
// hardcoded fallback, so the endpoint degrades instead of erroring.
// The fetch runs outside the cache lock; concurrent refreshes may hit the
// gateway more than once, which is harmless for a daily read.
func (c *Client) GetBankList(ctx context.Context) []Bank {
	c.banks.mu.Lock()
	if len(c.banks.banks) > 0 && time.Since(c.banks.fetchedAt) < bankCacheTTL {
		banks := c.banks.banks
		c.banks.mu.Unlock()
		return banks
	}
	c.banks.mu.Unlock()

	banks, err := c.fetchBanks(ctx)

	c.banks.mu.Lock()
	defer c.banks.mu.Unlock()
	if err != nil {
		c.logger.Warn("bank list fetch failed, serving cached or fallback list", zap.Error(err))
		if len(c.banks.banks) > 0 {
			return c.banks.banks
		}
		return fallbackBanks
	}

	c.banks.banks = banks
	c.banks.fetchedAt = time.Now()
	return banks
}

func (c *Client) fetchBanks(ctx context.Context) ([]Bank, error) {
	data, err := c.call(ctx, http.MethodGet, "/bank?currency=ZAR", nil)
	if err != nil {
		return nil, err
	}

	var banks []Bank
	if err := json.Unmarshal(data, &banks); err != nil {
		return nil, &domain.GatewayError{Op: "bank_list", Err: fmt.Errorf("malformed response: %w", err)}
	}
	if len(banks) == 0 {
		return nil, &domain.GatewayError{Op: "bank_list", Err: fmt.Errorf("empty bank list")}
	}
	return banks, nil
}
