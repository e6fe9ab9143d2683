package engagement

import (
	"time"

	"github.com/AydinDzaki/NusaGo/internal/listing"
)

type Review struct {
	ID           string    `json:"id"`
	ListingID    string    `json:"destination_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type LikeResult struct {
	Liked    bool             `json:"liked"`
	Counters listing.Counters `json:"counters"`
}

type HelpfulResult struct {
	Helpful      bool `json:"helpful"`
	HelpfulCount int  `json:"helpful_count"`
}
