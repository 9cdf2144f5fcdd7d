package conversation

// Mode selects which turn type a session creates, which reconciler
// interprets its envelopes, and which store receives its turns.
type Mode int

const (
	// ModeAgent is the multi-step agent conversation.
	ModeAgent Mode = iota

	// ModeData is the data-analysis conversation with embedded charts.
	ModeData
)

func (m Mode) String() string {
	switch m {
	case ModeData:
		return "data"
	default:
		return "agent"
	}
}

// Product identifies which agent product the session talks to.
type Product string

const (
	ProductAgent     Product = "agent"
	ProductDataAgent Product = "dataAgent"
)

// Route decides the conversation mode for a query dispatch. Data-analysis
// mode applies only to the data agent product without deep-think; every
// other combination uses the multi-step agent mode.
//
// The decision is re-derived identically for every in-session submission:
// deepThink is fixed when the session starts, so a session never changes
// modes mid-flight.
func Route(product Product, deepThink bool) Mode {
	if product == ProductDataAgent && !deepThink {
		return ModeData
	}
	return ModeAgent
}
