// Package cbr reads the Central Bank of Russia key rate over its SOAP
// DailyInfo service. Analysts use it as a market reference next to the
// computed interest rates; it never feeds the risk evaluator.
package cbr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

const lookbackDays = 30

// ErrNoRate is returned when the response carries no key rate rows
var ErrNoRate = errors.New("no key rate data found in XML")

// KeyRate is one published key rate
type KeyRate struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// Client handles integration with Central Bank of Russia
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
	now    func() time.Time
}

// NewClient initializes a new CBR client for the given endpoint
func NewClient(url string, log *logrus.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

// buildSOAPRequest creates a SOAP request for the last lookbackDays of key rates
func (c *Client) buildSOAPRequest() string {
	to := c.now()
	from := to.AddDate(0, 0, -lookbackDays)
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func (c *Client) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("CBR XML response: %s", string(body))
	return body, nil
}

// parseKeyRate extracts the most recent row; the service lists newest first
func parseKeyRate(rawBody []byte) (KeyRate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return KeyRate{}, fmt.Errorf("failed to parse XML: %w", err)
	}

	rows := doc.FindElements("//diffgram/KeyRate/KR")
	if len(rows) == 0 {
		return KeyRate{}, ErrNoRate
	}
	latest := rows[0]

	rateElement := latest.FindElement("./Rate")
	if rateElement == nil {
		return KeyRate{}, fmt.Errorf("rate element not found in XML")
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(rateElement.Text()), 64)
	if err != nil {
		return KeyRate{}, fmt.Errorf("failed to parse rate: %w", err)
	}

	kr := KeyRate{Rate: rate}
	if dt := latest.FindElement("./DT"); dt != nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dt.Text())); err == nil {
			kr.Date = t
		}
	}
	return kr, nil
}

// KeyRate retrieves the latest published key rate
func (c *Client) KeyRate(ctx context.Context) (KeyRate, error) {
	body, err := c.sendRequest(ctx, c.buildSOAPRequest())
	if err != nil {
		return KeyRate{}, err
	}

	kr, err := parseKeyRate(body)
	if err != nil {
		return KeyRate{}, err
	}

	c.log.Infof("Retrieved key rate: %.2f%%", kr.Rate)
	return kr, nil
}
