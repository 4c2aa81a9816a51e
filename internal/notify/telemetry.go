package notify

import (
	"tarjomic-watch/lib/restyutil"
	"tarjomic-watch/lib/telemetry"
)

var tracer = telemetry.Tracer("tarjomic-watch.internal.notify")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes SMS senders created afterwards dump their HTTP
// exchanges to `out` while debug logging is enabled.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
