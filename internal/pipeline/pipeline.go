// Package pipeline runs the log in, fetch, diff and notify cycle over every account.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"tarjomic-watch/internal/components/telemetry"
	"tarjomic-watch/internal/marketplace"
	"tarjomic-watch/internal/orderstore"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type OrderSource interface {
	FetchOrders(ctx context.Context, session marketplace.Session) ([]marketplace.Order, error)
}

// Notifier delivers one message over each transport, failures are only reported.
type Notifier interface {
	SendSMS(ctx context.Context, text string) error
	SendEmail(ctx context.Context, subject, body string) error
}

// Result is the outcome of one account in a run.
type Result struct {
	Account string
	Stage   Stage
	// FailedAt is the stage the account was in when it failed, it is only set when Stage
	// is StageFailed.
	FailedAt Stage
	Err      error
	Fetched  int
	New      []orderstore.OrderID
}

type Pipeline struct {
	accounts []marketplace.Account
	bridge   marketplace.Bridge
	orders   OrderSource
	store    *orderstore.Store
	notifier Notifier
	tel      telemetry.API
}

func New(
	accounts []marketplace.Account,
	bridge marketplace.Bridge,
	orders OrderSource,
	store *orderstore.Store,
	notifier Notifier,
	tel telemetry.API,
) Pipeline {
	return Pipeline{
		accounts: accounts,
		bridge:   bridge,
		orders:   orders,
		store:    store,
		notifier: notifier,
		tel:      tel,
	}
}

// Run checks every account in order and then saves the store once. A failing account
// never stops the accounts after it, the returned error is only about the store.
//
// Nothing is checked when the store has not been loaded, since every order would look new.
func (p Pipeline) Run(ctx context.Context) ([]Result, error) {
	if !p.store.Loaded() {
		p.tel.ReportBroken(report_pipeline_persist, orderstore.ErrNotLoaded)
		return nil, orderstore.ErrNotLoaded
	}
	p.tel.ReportInfo("checking accounts", len(p.accounts))

	results := make([]Result, 0, len(p.accounts))
	for _, account := range p.accounts {
		results = append(results, p.CheckAccount(ctx, account))
	}

	err := p.store.Save(context.WithoutCancel(ctx))
	if err != nil {
		p.tel.ReportBroken(report_pipeline_persist, err)
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Stage == StageFailed {
			failed++
		}
	}
	p.tel.ReportInfo("done", len(results), failed)
	return results, nil
}

type accountCheck struct {
	result *Result
	span   trace.Span
}

func (c accountCheck) enter(stage Stage) {
	c.result.Stage = stage
	c.span.AddEvent(string(stage))
}

// CheckAccount runs one account through the cycle. It does not save the store.
func (p Pipeline) CheckAccount(ctx context.Context, account marketplace.Account) (result Result) {
	ctx, span := tracer.Start(ctx, "pipeline:CheckAccount", trace.WithAttributes(
		attribute.String("account", account.Name),
	))
	defer span.End()

	result = Result{Account: account.Name, Stage: StageIdle}
	check := accountCheck{result: &result, span: span}

	fail := func(err error) {
		result.FailedAt = result.Stage
		result.Stage = StageFailed
		result.Err = err

		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed while %s", result.FailedAt))
		failedAccountsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("account", account.Name)))
		p.tel.ReportBroken(
			report_pipeline_check_account,
			fmt.Errorf("%s: %w", result.FailedAt, err),
			account.Name,
		)
	}
	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("panic: %v", r))
		}
	}()

	check.enter(StageAcquiringSession)
	session, err := p.bridge.Acquire(ctx, account)
	if err != nil {
		fail(err)
		return result
	}
	check.enter(StageAuthenticated)

	check.enter(StageFetchingOrders)
	orders, err := p.orders.FetchOrders(ctx, session)
	if err != nil {
		fail(err)
		return result
	}
	result.Fetched = len(orders)

	check.enter(StageDiffing)
	ids := make([]orderstore.OrderID, 0, len(orders))
	for i, order := range orders {
		if order.ID.IsZero() {
			p.tel.ReportWarning(
				report_pipeline_order_id,
				fmt.Errorf("order %d has no usable id, skipping it", i),
				account.Name,
				string(order.Raw),
			)
			continue
		}
		p.tel.ReportInfo("order", account.Name, order.ID.String())
		ids = append(ids, order.ID)
	}
	if len(orders) == 0 {
		p.tel.ReportInfo("no orders", account.Name)
	}

	result.New = p.store.DiffAndRecord(account.Name, ids)
	if len(result.New) == 0 {
		check.enter(StageNoNewOrders)
		check.enter(StageDone)
		return result
	}

	check.enter(StageNotifying)
	newOrdersCounter.Add(ctx, int64(len(result.New)), metric.WithAttributes(attribute.String("account", account.Name)))
	p.tel.ReportInfo("new orders", account.Name, len(result.New))
	p.notify(ctx, account, result.New)

	check.enter(StageDone)
	return result
}

// notify sends the message once over each transport. Ids stay recorded when delivery
// fails, so a failed notification is not repeated on the next run.
func (p Pipeline) notify(ctx context.Context, account marketplace.Account, fresh []orderstore.OrderID) {
	text := ComposeMessage(account.Name, fresh)

	err := p.notifier.SendSMS(ctx, text)
	if err != nil {
		p.tel.ReportWarning(report_pipeline_notify_sms, err, account.Name)
	}
	err = p.notifier.SendEmail(ctx, ComposeSubject(account.Name), text)
	if err != nil {
		p.tel.ReportWarning(report_pipeline_notify_email, err, account.Name)
	}
}

func ComposeSubject(account string) string {
	return fmt.Sprintf("New orders for %s", account)
}

// ComposeMessage lists the new ids of an account in the order they were fetched.
func ComposeMessage(account string, fresh []orderstore.OrderID) string {
	ids := make([]string, len(fresh))
	for i, id := range fresh {
		ids[i] = id.String()
	}
	return fmt.Sprintf("New orders for %s!\nOrder IDs: %s", account, strings.Join(ids, ", "))
}
