package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/walletkit/walletd/internal/core/ports"
	"github.com/walletkit/walletd/pkg/circuitbreaker"
	"github.com/walletkit/walletd/pkg/util"
)

// requestsPerSecond caps how hard a synchronization pass can hit a public
// esplora instance.
const requestsPerSecond = 10

type esplora struct {
	apiURL  string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewService returns a chain-query service backed by an esplora HTTP API as
// a ports.ChainService interface.
func NewService(apiURL string) (ports.ChainService, error) {
	service := &esplora{
		apiURL:  apiURL,
		breaker: circuitbreaker.NewCircuitBreaker("esplora"),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}

	if err := service.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	return service, nil
}

func (e *esplora) healthCheck() error {
	url := fmt.Sprintf("%s/blocks/tip/height", e.apiURL)
	status, resp, err := e.get(url)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf(resp)
	}
	return nil
}

// BroadcastTransaction submits a raw transaction in hex. A transaction the
// chain rejects is reported as not accepted without an error; only transport
// failures are errors.
func (e *esplora) BroadcastTransaction(txHex string) (bool, error) {
	url := fmt.Sprintf("%s/tx", e.apiURL)
	headers := map[string]string{
		"Content-Type": "text/plain",
	}

	status, resp, err := e.post(url, txHex, headers)
	if err != nil {
		return false, err
	}
	if status == http.StatusOK {
		return true, nil
	}
	if status >= 400 && status < 500 {
		return false, nil
	}
	return false, fmt.Errorf(resp)
}

// FetchAddressesState queries the stats of every address and aggregates
// them. An address counts as used as soon as it has any transaction,
// confirmed or not.
func (e *esplora) FetchAddressesState(
	addresses []string, includeHistory bool,
) (*ports.AddressesState, error) {
	state := &ports.AddressesState{}
	for _, address := range addresses {
		stats, err := e.getAddressStats(address)
		if err != nil {
			return nil, err
		}

		funded := stats.ChainStats.FundedTxoSum
		spent := stats.ChainStats.SpentTxoSum
		if funded >= spent {
			state.ConfirmedBalance += funded - spent
		}

		mempoolFunded := stats.MempoolStats.FundedTxoSum
		mempoolSpent := stats.MempoolStats.SpentTxoSum
		if mempoolFunded >= mempoolSpent {
			state.UnconfirmedBalance += mempoolFunded - mempoolSpent
		}

		txCount := stats.ChainStats.TxCount + stats.MempoolStats.TxCount
		if includeHistory {
			state.TxCount += txCount
		}
		if txCount > 0 {
			state.UsedAddresses = append(state.UsedAddresses, address)
		}
	}
	return state, nil
}

type txoStats struct {
	FundedTxoSum uint64 `json:"funded_txo_sum"`
	SpentTxoSum  uint64 `json:"spent_txo_sum"`
	TxCount      int    `json:"tx_count"`
}

type addressStats struct {
	Address      string   `json:"address"`
	ChainStats   txoStats `json:"chain_stats"`
	MempoolStats txoStats `json:"mempool_stats"`
}

func (e *esplora) getAddressStats(address string) (*addressStats, error) {
	url := fmt.Sprintf("%s/address/%s", e.apiURL, address)
	status, resp, err := e.get(url)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf(resp)
	}

	stats := &addressStats{}
	if err := json.Unmarshal([]byte(resp), stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (e *esplora) get(url string) (int, string, error) {
	return e.request("GET", url, "", nil)
}

func (e *esplora) post(
	url, body string, headers map[string]string,
) (int, string, error) {
	return e.request("POST", url, body, headers)
}

// request runs the http call through the rate limiter and the circuit
// breaker, so a flapping esplora instance fails fast instead of hanging
// every synchronization pass.
func (e *esplora) request(
	method, url, body string, headers map[string]string,
) (int, string, error) {
	if err := e.limiter.Wait(context.Background()); err != nil {
		return 0, "", err
	}

	type response struct {
		status int
		body   string
	}
	res, err := e.breaker.Execute(func() (interface{}, error) {
		status, resp, err := util.NewHTTPRequest(method, url, body, headers)
		if err != nil {
			return nil, err
		}
		if status >= 500 {
			return nil, fmt.Errorf(resp)
		}
		return response{status, resp}, nil
	})
	if err != nil {
		return 0, "", err
	}

	r := res.(response)
	return r.status, r.body, nil
}
