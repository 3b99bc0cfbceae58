package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

const (
	defaultWSBaseURL = "wss://stream.binance.com:9443"

	// Streamed prices older than this fall back to a REST lookup.
	priceStaleness = 10 * time.Second
)

// BinanceExchange implements Exchange against Binance spot. Tickers come
// from a streaming aggTrade feed when one is running for the symbol, with
// REST as the fallback; everything else goes through the official client.
type BinanceExchange struct {
	client    *binance.Client
	wsBaseURL string
	logger    *zap.SugaredLogger

	mu         sync.RWMutex
	lastPrices map[string]streamedPrice

	stopCh chan struct{}
	wg     sync.WaitGroup
}

type streamedPrice struct {
	price float64
	at    time.Time
}

// NewBinanceExchange builds a Binance-backed exchange. apiKey/secretKey may
// be empty for read-only use (tickers and candles only).
func NewBinanceExchange(apiKey, secretKey string, logger *zap.SugaredLogger) *BinanceExchange {
	return &BinanceExchange{
		client:     binance.NewClient(apiKey, secretKey),
		wsBaseURL:  defaultWSBaseURL,
		logger:     logger,
		lastPrices: make(map[string]streamedPrice),
		stopCh:     make(chan struct{}),
	}
}

func (e *BinanceExchange) Name() string { return "binance" }

// StartPriceStreams launches one aggTrade websocket per symbol. Each stream
// reconnects on failure until Close is called.
func (e *BinanceExchange) StartPriceStreams(symbols []string) {
	for _, symbol := range symbols {
		e.wg.Add(1)
		go func(s string) {
			defer e.wg.Done()
			e.streamLoop(s)
		}(symbol)
	}
}

// Close stops all price streams and waits for them to exit.
func (e *BinanceExchange) Close() {
	close(e.stopCh)
	e.wg.Wait()
}

func (e *BinanceExchange) streamLoop(symbol string) {
	url := fmt.Sprintf("%s/ws/%s@aggTrade", e.wsBaseURL, strings.ToLower(symbol))
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			e.logger.Warnf("price stream dial failed for %s: %v, retrying in 5s", symbol, err)
			select {
			case <-e.stopCh:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if err := e.readStream(conn, symbol); err != nil {
			e.logger.Warnf("price stream for %s dropped: %v, reconnecting", symbol, err)
		}
		conn.Close()
	}
}

// readStream consumes one established connection, keeping it alive with
// ping/pong, until it errors or the exchange is closed.
func (e *BinanceExchange) readStream(conn *websocket.Conn, symbol string) error {
	const (
		pongWait   = 60 * time.Second
		pingPeriod = pongWait * 9 / 10
	)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-pingTicker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			case <-e.stopCh:
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}()

	for {
		select {
		case <-e.stopCh:
			return nil
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var trade struct {
			Price json.Number `json:"p"`
		}
		if err := json.Unmarshal(message, &trade); err != nil {
			continue
		}
		price, err := trade.Price.Float64()
		if err != nil || price <= 0 {
			continue
		}

		e.mu.Lock()
		e.lastPrices[symbol] = streamedPrice{price: price, at: time.Now()}
		e.mu.Unlock()
	}
}

// GetTicker returns the latest trade price for a symbol, preferring the
// streamed price when it is fresh.
func (e *BinanceExchange) GetTicker(ctx context.Context, symbol string) (float64, error) {
	e.mu.RLock()
	cached, ok := e.lastPrices[symbol]
	e.mu.RUnlock()
	if ok && time.Since(cached.at) < priceStaleness {
		return cached.price, nil
	}

	prices, err := e.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, mapBinanceError(err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no ticker returned for %s", symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", prices[0].Price, err)
	}
	return price, nil
}

// GetCandles fetches OHLCV bars. Timeframe uses Binance interval notation
// ("1h", "5m", ...).
func (e *BinanceExchange) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	klines, err := e.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, mapBinanceError(err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		open, err1 := strconv.ParseFloat(k.Open, 64)
		high, err2 := strconv.ParseFloat(k.High, 64)
		low, err3 := strconv.ParseFloat(k.Low, 64)
		closePrice, err4 := strconv.ParseFloat(k.Close, 64)
		volume, err5 := strconv.ParseFloat(k.Volume, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			return nil, fmt.Errorf("malformed kline for %s at %d", symbol, k.OpenTime)
		}
		candles = append(candles, models.Candle{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return candles, nil
}

// PlaceOrder submits a limit or market order and returns the exchange
// order id.
func (e *BinanceExchange) PlaceOrder(ctx context.Context, symbol string, side models.OrderSide, orderType string, quantity, price float64) (string, error) {
	svc := e.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Quantity(formatFloat(quantity))

	switch orderType {
	case TypeMarket:
		svc = svc.Type(binance.OrderTypeMarket)
	default:
		svc = svc.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(formatFloat(price))
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return "", mapBinanceError(err)
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}

// CancelOrder cancels a previously placed order by exchange order id.
func (e *BinanceExchange) CancelOrder(ctx context.Context, orderID, symbol string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad order id %q", ErrInvalidOrder, orderID)
	}
	_, err = e.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return mapBinanceError(err)
	}
	return nil
}

// GetBalances returns every non-zero asset balance on the spot account.
func (e *BinanceExchange) GetBalances(ctx context.Context) (map[string]models.Balance, error) {
	account, err := e.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, mapBinanceError(err)
	}

	balances := make(map[string]models.Balance, len(account.Balances))
	for _, b := range account.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		if free == 0 && locked == 0 {
			continue
		}
		balances[b.Asset] = models.Balance{
			Asset: b.Asset,
			Free:  free,
			Used:  locked,
			Total: free + locked,
		}
	}
	return balances, nil
}

// mapBinanceError translates Binance API error codes into the package's
// permanent-failure sentinels so the retry policy can classify them.
func mapBinanceError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if !common.IsAPIError(err) {
		return err
	}
	apiErr, _ = err.(*common.APIError)
	if apiErr == nil {
		return err
	}

	switch apiErr.Code {
	case -2010, -2018: // NEW_ORDER_REJECTED / balance not sufficient
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, apiErr.Message)
	case -1013, -1111, -1121: // filter failure, bad precision, bad symbol
		return fmt.Errorf("%w: %s", ErrInvalidOrder, apiErr.Message)
	case -2011, -2013: // unknown order on cancel / order does not exist
		return fmt.Errorf("%w: %s", ErrOrderNotFound, apiErr.Message)
	}
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
