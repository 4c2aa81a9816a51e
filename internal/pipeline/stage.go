package pipeline

// Stage is the position of one account in a run. Failed is terminal for that account
// only.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageAcquiringSession Stage = "acquiring_session"
	StageAuthenticated    Stage = "authenticated"
	StageFetchingOrders   Stage = "fetching_orders"
	StageDiffing          Stage = "diffing"
	StageNoNewOrders      Stage = "no_new_orders"
	StageNotifying        Stage = "notifying"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)
