package listing

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// ChangesTopic is the change-feed topic carrying Change messages.
const ChangesTopic = "listings"

type ChangeOp string

const (
	OpUpsert   ChangeOp = "upsert"
	OpDelete   ChangeOp = "delete"
	OpCounters ChangeOp = "counters"
	OpLike     ChangeOp = "like"
	OpReview   ChangeOp = "review"
)

// Change is a patch against a local listing projection. Upsert, delete and
// counters carry server truth; like and review are optimistic.
type Change struct {
	Op        ChangeOp  `json:"op"`
	ID        string    `json:"id"`
	Listing   *Listing  `json:"listing,omitempty"`
	Counters  *Counters `json:"counters,omitempty"`
	LikeDelta int       `json:"like_delta,omitempty"`
	Rating    int       `json:"rating,omitempty"`
}

type Publisher interface {
	Broadcast(topic string, payload []byte)
}

// Publish sends ch on the change feed. A nil publisher is a no-op.
func Publish(p Publisher, ch Change) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		log.WithError(err).WithField("listing_id", ch.ID).Error("encode listing change")
		return
	}
	p.Broadcast(ChangesTopic, payload)
}
