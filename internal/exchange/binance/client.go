package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Client Binance USDT-M 合约 REST 客户端。
//
// 启动时构造一次，按引用传入各 service —— 不用包级单例，
// 测试时可以指向 httptest server。
type Client struct {
	rc         *resty.Client
	apiKey     string
	apiSecret  string
	recvWindow int64
}

// Options 客户端构造参数
type Options struct {
	BaseURL      string
	APIKey       string
	APISecret    string
	RecvWindowMs int64
}

// NewClient 创建合约 REST 客户端。
// resty 会自动读取 HTTP_PROXY / HTTPS_PROXY 环境变量。
func NewClient(opt Options) *Client {
	rc := resty.New().
		SetBaseURL(opt.BaseURL).
		SetTimeout(15 * time.Second).
		SetHeader("User-Agent", "gohedge/1.0")

	rw := opt.RecvWindowMs
	if rw <= 0 {
		rw = 5000
	}
	return &Client{
		rc:         rc,
		apiKey:     opt.APIKey,
		apiSecret:  opt.APISecret,
		recvWindow: rw,
	}
}

// sign 对 query string 做 HMAC-SHA256 签名（Binance 签名规则）
func (c *Client) sign(encoded string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	_, _ = io.WriteString(mac, encoded)
	return hex.EncodeToString(mac.Sum(nil))
}

// do 发起一次请求。signed=true 时追加 timestamp/recvWindow 并签名。
// 签名必须覆盖实际发送的 query string，所以这里自己拼 URL，
// 不走 resty 的 SetQueryParam（避免编码顺序不一致）。
func (c *Client) do(ctx context.Context, method, path string, q url.Values, signed bool, out any) error {
	if q == nil {
		q = url.Values{}
	}
	if signed {
		q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		q.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
	}
	encoded := q.Encode()
	if signed {
		encoded += "&signature=" + c.sign(encoded)
	}
	u := path
	if encoded != "" {
		u += "?" + encoded
	}

	req := c.rc.R().SetContext(ctx)
	if c.apiKey != "" {
		req.SetHeader("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := req.Execute(method, u)
	if err != nil {
		return errors.Wrapf(err, "binance %s %s", method, path)
	}
	if resp.StatusCode()/100 != 2 {
		apiErr := &APIError{}
		if jsonErr := json.Unmarshal(resp.Body(), apiErr); jsonErr == nil && apiErr.Code != 0 {
			return apiErr
		}
		return errors.Errorf("binance %s %s: http %d: %s", method, path, resp.StatusCode(), resp.Body())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return errors.Wrapf(err, "binance %s %s: decode response", method, path)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, signed bool, out any) error {
	return c.do(ctx, http.MethodGet, path, q, signed, out)
}

func (c *Client) post(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, q, true, out)
}

func (c *Client) delete(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodDelete, path, q, true, out)
}
