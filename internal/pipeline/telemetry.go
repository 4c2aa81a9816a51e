package pipeline

import (
	"tarjomic-watch/lib/telemetry"

	"go.opentelemetry.io/otel"
)

const (
	report_pipeline_check_account = "pipeline.check-account"
	report_pipeline_notify_sms    = "pipeline.notify-sms"
	report_pipeline_notify_email  = "pipeline.notify-email"
	report_pipeline_order_id      = "pipeline.order-id"
	report_pipeline_persist       = "pipeline.persist"
)

var tracer = telemetry.Tracer("tarjomic-watch.internal.pipeline")
var meter = otel.Meter("tarjomic-watch.internal.pipeline")

var newOrdersCounter, _ = meter.Int64Counter(
	"tarjomic.orders.new",
)
var failedAccountsCounter, _ = meter.Int64Counter(
	"tarjomic.accounts.failed",
)
