package notify

import (
	"context"
	"fmt"
	"tarjomic-watch/lib/restyutil"
	"time"

	"github.com/go-resty/resty/v2"
)

// MelipayamakSMS posts messages to a Melipayamak style REST gateway, the api key is
// part of the url.
type MelipayamakSMS struct {
	client *resty.Client
	url    string
}

func NewMelipayamakSMS(url string, timeout time.Duration) MelipayamakSMS {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
	return MelipayamakSMS{client: client, url: url}
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s MelipayamakSMS) SendSMS(ctx context.Context, from, to, text string) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetBody(smsRequest{From: from, To: to, Text: text}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		return fmt.Errorf("sms gateway returned %d: %s", res.StatusCode(), res.String())
	}
	return nil
}
