package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"tarjomic-watch/internal/components/telemetry"
	"tarjomic-watch/internal/orderstore"
	"tarjomic-watch/lib/restyutil"
	"tarjomic-watch/lib/retry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// ErrMalformedResponse means the orders endpoint answered with something that is not
// the json object we expect.
var ErrMalformedResponse = errors.New("malformed orders response")

// StatusError is returned for responses outside of the 2xx range.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("orders endpoint returned %d: %s", e.Code, e.Body)
}

type FetcherOptions struct {
	Site   Site
	Policy retry.Policy
	// Timeout bounds every single request, defaults to 10 seconds.
	Timeout time.Duration
	// Limiter is shared between every client the fetcher creates, nil means 1 request
	// per second.
	Limiter *rate.Limiter
}

// OrderFetcher lists the orders waiting for the logged in translator.
type OrderFetcher struct {
	site    Site
	policy  retry.Policy
	timeout time.Duration
	limiter *rate.Limiter
	tel     telemetry.API
}

func NewOrderFetcher(opts FetcherOptions, tel telemetry.API) OrderFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(1, 1)
	}
	return OrderFetcher{
		site:    opts.Site,
		policy:  opts.Policy,
		timeout: timeout,
		limiter: limiter,
		tel:     telemetry.NewScopedAPI("fetcher", tel),
	}
}

// client builds an HTTP client that presents itself as the browser the session was
// taken from.
func (f OrderFetcher) client(session Session) (*resty.Client, error) {
	baseUrl, err := url.Parse(f.site.BaseUrl)
	if err != nil {
		return nil, err
	}
	referer, err := f.site.URL(f.site.LandingPath)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(f.site.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(baseUrl, session.HttpCookies())
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeaders(map[string]string{
		"Content-Type": "application/json",
		"Referer":      referer,
		"User-Agent":   session.UserAgent,
	})
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(f.timeout)

	limiter := f.limiter
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
	return client, nil
}

func (f OrderFetcher) fetchOnce(ctx context.Context, client *resty.Client) ([]Order, error) {
	res, err := client.R().
		SetContext(ctx).
		SetBody(map[string]string{"type": f.site.OrderFilter}).
		Post(f.site.OrdersPath)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		body := res.String()
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		return nil, &StatusError{Code: res.StatusCode(), Body: body}
	}
	return parseOrders(res.Body())
}

// FetchOrders lists the pending orders visible to `session`.
func (f OrderFetcher) FetchOrders(ctx context.Context, session Session) ([]Order, error) {
	ctx, span := tracer.Start(ctx, "fetcher:FetchOrders")
	defer span.End()

	client, err := f.client(session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create client")
		return nil, fmt.Errorf("create orders client: %w", err)
	}

	orders, err := retry.Do(
		ctx,
		f.policy,
		func(ctx context.Context) ([]Order, error) {
			return f.fetchOnce(ctx, client)
		},
		func(attempt int, err error, wait time.Duration) {
			f.tel.ReportWarning(
				report_fetcher_fetch_orders,
				fmt.Errorf("attempt %d: %w", attempt, err),
				fmt.Sprintf("retrying in %s", wait),
			)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch orders")
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	span.SetAttributes(attribute.Int("orders", len(orders)))
	span.AddEvent("fetched", trace.WithAttributes(attribute.Int("orders", len(orders))))
	return orders, nil
}

type ordersEnvelope struct {
	Orders []json.RawMessage `json:"orders"`
}

// parseOrders reads the `orders` list of a response, a response without orders is an
// empty list. Orders without a usable id are kept with a zero ID.
func parseOrders(body []byte) ([]Order, error) {
	var envelope ordersEnvelope
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	orders := make([]Order, 0, len(envelope.Orders))
	for _, raw := range envelope.Orders {
		order := Order{Raw: raw}

		var fields struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(raw, &fields) == nil && len(fields.ID) > 0 {
			id, err := orderstore.ParseOrderID(fields.ID)
			if err == nil {
				order.ID = id
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}
