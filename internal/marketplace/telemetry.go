package marketplace

import (
	"tarjomic-watch/lib/restyutil"
	"tarjomic-watch/lib/telemetry"
)

const (
	report_bridge_acquire       = "bridge.acquire"
	report_bridge_release       = "bridge.release"
	report_fetcher_fetch_orders = "fetcher.fetch-orders"
)

var tracer = telemetry.Tracer("tarjomic-watch.internal.marketplace")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes fetchers created afterwards dump their HTTP exchanges
// to `out` while debug logging is enabled.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
