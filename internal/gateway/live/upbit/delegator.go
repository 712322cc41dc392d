package upbit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/yanun0323/errors"

	"main/internal/gateway/live"
	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

const _upbitBaseUrl = "https://api.upbit.com"

// Config carries the venue credentials. BaseURL is overridable for tests.
type Config struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	BaseURL   string `json:"baseUrl"`
}

// Delegator signs and sends venue requests. It holds no order state; the
// reconciliation engine above it does.
type Delegator struct {
	client *http.Client
	cfg    Config
}

func NewDelegator(client *http.Client, cfg Config) (*Delegator, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("upbit: missing credentials")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = _upbitBaseUrl
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Delegator{client: client, cfg: cfg}, nil
}

func upbitSide(kind enum.RequestKind) string {
	switch kind {
	case enum.RequestKindSell:
		return "ask"
	default:
		return "bid"
	}
}

func upbitState(order responseOrder) (enum.ResultState, string) {
	switch order.State {
	case "done":
		return enum.ResultStateDone, ""
	case "cancel":
		return enum.ResultStateDone, "canceled"
	default:
		return enum.ResultStateRequested, ""
	}
}

// PlaceOrder submits one limit order and returns the venue order uuid.
func (d *Delegator) PlaceOrder(ctx context.Context, req model.TradeRequest) (string, error) {
	body := map[string]string{
		"market":     req.Market,
		"side":       upbitSide(req.Kind),
		"volume":     req.Amount.String(),
		"price":      req.Price.String(),
		"ord_type":   "limit",
		"identifier": req.ID,
	}

	var order responseOrder
	if err := d.send(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return "", errors.Wrap(err, "place order").With("request", req.ID)
	}
	if order.UUID == "" {
		return "", exception.ErrOrderEmptyResponseID
	}
	return order.UUID, nil
}

// QueryOrders fetches each order individually; the per-order endpoint is the
// only one that includes the trade list needed for fill figures.
func (d *Delegator) QueryOrders(ctx context.Context, venueIDs []string) ([]live.OrderStatus, error) {
	statuses := make([]live.OrderStatus, 0, len(venueIDs))
	for _, id := range venueIDs {
		var order responseOrder
		if err := d.send(ctx, http.MethodGet, "/v1/order", map[string]string{"uuid": id}, &order); err != nil {
			return nil, errors.Wrap(err, "query order").With("uuid", id)
		}
		statuses = append(statuses, d.toStatus(order))
	}
	return statuses, nil
}

// CancelOrder asks the venue to cancel. The response reflects the order as of
// the cancel, so fills that raced the cancel are still reported.
func (d *Delegator) CancelOrder(ctx context.Context, venueID string) (live.OrderStatus, error) {
	var order responseOrder
	if err := d.send(ctx, http.MethodDelete, "/v1/order", map[string]string{"uuid": venueID}, &order); err != nil {
		return live.OrderStatus{}, errors.Wrap(err, "cancel order").With("uuid", venueID)
	}
	return d.toStatus(order), nil
}

// QueryAccount maps the venue balance list onto one account snapshot. The
// quote-currency balance becomes cash; every other currency becomes a holding
// keyed by its market code.
func (d *Delegator) QueryAccount(ctx context.Context) (model.AccountSnapshot, error) {
	var accounts []responseAccount
	if err := d.send(ctx, http.MethodGet, "/v1/accounts", nil, &accounts); err != nil {
		return model.AccountSnapshot{}, errors.Wrap(err, "query account")
	}

	snapshot := model.AccountSnapshot{
		Holdings: make(map[string]model.Holding, len(accounts)),
		Quotes:   make(map[string]model.Price),
		AsOf:     time.Now(),
	}
	for _, account := range accounts {
		if account.Currency == account.UnitCurrency || account.Currency == "KRW" {
			cash, err := model.ParsePrice(account.Balance.String())
			if err != nil {
				return model.AccountSnapshot{}, errors.Wrap(err, "parse balance").With("currency", account.Currency)
			}
			snapshot.Cash += cash
			continue
		}

		amount, err := model.ParseAmount(account.Balance.String())
		if err != nil {
			return model.AccountSnapshot{}, errors.Wrap(err, "parse balance").With("currency", account.Currency)
		}
		avgPrice, err := model.ParsePrice(account.AvgBuyPrice.String())
		if err != nil {
			return model.AccountSnapshot{}, errors.Wrap(err, "parse avg price").With("currency", account.Currency)
		}
		unit := account.UnitCurrency
		if unit == "" {
			unit = "KRW"
		}
		snapshot.Holdings[unit+"-"+account.Currency] = model.Holding{
			AvgPrice: avgPrice,
			Amount:   amount,
		}
	}
	return snapshot, nil
}

func (d *Delegator) toStatus(order responseOrder) live.OrderStatus {
	state, message := upbitState(order)
	status := live.OrderStatus{
		VenueID: order.UUID,
		State:   state,
		Message: message,
	}
	if !state.IsTerminal() {
		return status
	}

	if amount, err := model.ParseAmount(order.ExecutedVolume.String()); err == nil {
		status.Amount = amount
	}
	status.Price = fillPrice(order)
	return status
}

// fillPrice derives the average execution price from the trade list, falling
// back to the limit price when the venue omitted trades.
func fillPrice(order responseOrder) model.Price {
	var funds, volume int64
	for _, trade := range order.Trades {
		f, err := model.ParsePrice(trade.Funds.String())
		if err != nil {
			continue
		}
		v, err := model.ParseAmount(trade.Volume.String())
		if err != nil {
			continue
		}
		funds += int64(f)
		volume += int64(v)
	}
	if funds > 0 && volume > 0 && funds <= int64(^uint64(0)>>1)/model.AmountScale {
		return model.Price(model.RoundDiv(funds*model.AmountScale, volume))
	}

	price, err := model.ParsePrice(order.Price.String())
	if err != nil {
		return 0
	}
	return price
}

func (d *Delegator) send(ctx context.Context, method, path string, params map[string]string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	query := encodeQuery(params)
	target := d.cfg.BaseURL + path

	var body *bytes.Reader
	switch method {
	case http.MethodPost:
		payload, err := sonic.ConfigFastest.Marshal(params)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	default:
		if query != "" {
			target += "?" + query
		}
		body = bytes.NewReader(nil)
	}

	r, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+d.sign(query))

	resp, err := d.client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure responseError
		if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error.Message != "" {
			return errors.Wrap(exception.ErrOrderVenueRejected, failure.Error.Message).
				With("name", failure.Error.Name).
				With("status", resp.StatusCode)
		}
		return errors.Wrap(exception.ErrOrderVenueRejected, "http failure").With("status", resp.StatusCode)
	}

	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(exception.ErrOrderDecodeResponseBody, err.Error())
	}
	return nil
}

// sign builds the venue's JWT: HS256 over a payload that carries the SHA512
// hash of the canonical query string when there are parameters.
func (d *Delegator) sign(query string) string {
	payload := map[string]string{
		"access_key": d.cfg.AccessKey,
		"nonce":      uuid.NewString(),
	}
	if query != "" {
		hash := sha512.Sum512([]byte(query))
		payload["query_hash"] = hex.EncodeToString(hash[:])
		payload["query_hash_alg"] = "SHA512"
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims, _ := sonic.ConfigFastest.Marshal(payload)
	signing := header + "." + base64.RawURLEncoding.EncodeToString(claims)

	mac := hmac.New(sha256.New, []byte(d.cfg.SecretKey))
	mac.Write([]byte(signing))
	return signing + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// encodeQuery renders params as a deterministic query string; the same bytes
// are hashed for the signature and sent on the wire.
func encodeQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", url.QueryEscape(k), url.QueryEscape(params[k])))
	}
	return strings.Join(pairs, "&")
}
