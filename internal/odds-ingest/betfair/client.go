// Package betfair é o cliente da Betting API (JSON-RPC) da exchange Betfair
// com login não interativo por certificado.
package betfair

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const soccerEventTypeID = "1"

var (
	ErrLoginFailed    = errors.New("betfair: login failed")
	ErrInvalidSession = errors.New("betfair: invalid session")
)

// Config reúne credenciais e endpoints; nada é lido do ambiente aqui
type Config struct {
	AppKey   string
	Username string
	Password string
	CertFile string // par cert/key do login por certificado
	KeyFile  string
	APIURL   string
	LoginURL string
	Timeout  time.Duration
}

// Client guarda o token de sessão; Login renova quando necessário
type Client struct {
	cfg  Config
	http *http.Client

	mu    sync.Mutex
	token string
}

func New(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("betfair: load client certificate: %w", err)
		}
		transport.TLSClientConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout, Transport: transport}}, nil
}

type loginResponse struct {
	SessionToken string `json:"sessionToken"`
	LoginStatus  string `json:"loginStatus"`
}

// Login faz o certlogin e guarda o token de sessão
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Application", c.cfg.AppKey)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%w: http %d: %s", ErrLoginFailed, res.StatusCode, strings.TrimSpace(string(body)))
	}
	var out loginResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrLoginFailed, err)
	}
	if out.SessionToken == "" || (out.LoginStatus != "" && out.LoginStatus != "SUCCESS") {
		return fmt.Errorf("%w: status %s", ErrLoginFailed, out.LoginStatus)
	}

	c.mu.Lock()
	c.token = out.SessionToken
	c.mu.Unlock()
	return nil
}

func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call executa um método SportsAPING; sem sessão (ou com sessão expirada) faz login e repete uma vez
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if c.sessionToken() == "" {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}
	err := c.do(ctx, method, params, out)
	if errors.Is(err, ErrInvalidSession) {
		if err := c.Login(ctx); err != nil {
			return err
		}
		err = c.do(ctx, method, params, out)
	}
	return err
}

func (c *Client) do(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: "SportsAPING/v1.0/" + method, Params: params, ID: 1})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Application", c.cfg.AppKey)
	req.Header.Set("X-Authentication", c.sessionToken())

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("betfair %s: %w", method, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("betfair %s: read body: %w", method, err)
	}
	if bytes.Contains(raw, []byte("INVALID_SESSION_INFORMATION")) || bytes.Contains(raw, []byte("NO_SESSION")) {
		return fmt.Errorf("%w (%s)", ErrInvalidSession, method)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("betfair %s: http %d: %s", method, res.StatusCode, truncate(raw, 256))
	}

	var rpc rpcResponse
	if err := json.Unmarshal(raw, &rpc); err != nil {
		return fmt.Errorf("betfair %s: decode: %w", method, err)
	}
	if rpc.Error != nil {
		return fmt.Errorf("betfair %s: api error %d: %s", method, rpc.Error.Code, rpc.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpc.Result, out); err != nil {
		return fmt.Errorf("betfair %s: decode result: %w", method, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}
