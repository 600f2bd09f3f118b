package domain

// MaxSubstitutes is the number of substitute slots per iteration.
const MaxSubstitutes = 5

// Substitute is one confirmed replacement product occupying a ledger slot.
type Substitute struct {
	Code  string `json:"codProduto"`
	Name  string `json:"nome"`
	Price string `json:"precoLojaProgramada"`
}

// Empty reports whether the slot is unfilled.
func (s Substitute) Empty() bool {
	return s.Code == ""
}

// SelectionRecord holds the confirmed substitutes for one iteration.
// Slots are ordered; an iteration is considered completed when slot 0 is
// filled.
type SelectionRecord struct {
	Iteration int                        `json:"nIteracao"`
	Slots     [MaxSubstitutes]Substitute `json:"slots"`
}

// Substitutes returns the filled slots in order.
func (r SelectionRecord) Substitutes() []Substitute {
	subs := make([]Substitute, 0, MaxSubstitutes)
	for _, s := range r.Slots {
		if !s.Empty() {
			subs = append(subs, s)
		}
	}
	return subs
}

// Completed reports whether at least one substitute was confirmed.
func (r SelectionRecord) Completed() bool {
	return !r.Slots[0].Empty()
}

// WorkItem is one row of the upstream work list: an original product
// awaiting substitute selection, identified by a positive iteration number.
type WorkItem struct {
	Iteration int    `json:"nIteracao"`
	Code      string `json:"codProduto"`
	Name      string `json:"nome"`
}
