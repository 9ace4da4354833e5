package agent

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/profefe/jsprof/pkg/jsprof"
	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/retry"
	"golang.org/x/xerrors"
)

const (
	DefaultServerAddr = "http://localhost:10100"

	defaultMinDelay    = 500 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
	defaultMaxAttempts = 5
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type client interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client uploads profiles to a jsprof server.
type Client struct {
	serverAddr string
	labels     map[string]string

	rawClient client
	retry     *retry.Retry
	logger    *log.Logger
}

func NewClient(serverAddr string, opts ...Option) *Client {
	c := &Client{
		serverAddr: strings.TrimSuffix(serverAddr, "/"),
		labels:     make(map[string]string),
		rawClient:  http.DefaultClient,
		retry:      retry.New(defaultMinDelay, defaultMaxDelay, defaultMaxAttempts),
		logger:     log.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServerError is a non-2xx reply of the server.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server replied %d: %s", e.Code, e.Message)
}

type pushResponse struct {
	Code  int            `json:"code"`
	Body  jsprof.Profile `json:"body"`
	Error string         `json:"error"`
}

// Push uploads the payload of a profile. Network failures and 5xx replies are
// retried; other replies are returned as *ServerError right away.
func (c *Client) Push(ctx context.Context, service string, ptyp profile.ProfileType, data []byte) (jsprof.Profile, error) {
	q := url.Values{}
	q.Set("service", service)
	q.Set("type", ptyp.String())
	if labels := c.labelsString(); labels != "" {
		q.Set("labels", labels)
	}
	surl := c.serverAddr + "/api/0/profiles?" + q.Encode()

	var resp pushResponse
	err := c.retry.DoContext(ctx, func() error {
		err := c.push(ctx, surl, data, &resp)
		if err != nil {
			c.logger.Debugw("push failed", "service", service, "type", ptyp, "error", err)
		}
		return err
	})
	if err != nil {
		return jsprof.Profile{}, err
	}
	return resp.Body, nil
}

func (c *Client) push(ctx context.Context, surl string, data []byte, v *pushResponse) error {
	req, err := http.NewRequest(http.MethodPost, surl, bytes.NewReader(data))
	if err != nil {
		return retry.Cancel(err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.rawClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Cancel(err)
		}
		return xerrors.Errorf("could not send profile: %w", err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return xerrors.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp pushResponse
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		serr := &ServerError{Code: resp.StatusCode, Message: msg}
		if resp.StatusCode >= http.StatusInternalServerError {
			return serr
		}
		return retry.Cancel(serr)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return retry.Cancel(xerrors.Errorf("could not decode response: %w", err))
	}
	return nil
}

func (c *Client) labelsString() string {
	labels := make(profile.Labels, 0, len(c.labels))
	for k, v := range c.labels {
		labels = append(labels, profile.Label{Key: k, Value: v})
	}
	sort.Sort(labels)
	return labels.String()
}
