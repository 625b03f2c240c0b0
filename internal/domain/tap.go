package domain

import "time"

type TapStatus string

const (
	TapActive      TapStatus = "active"
	TapInactive    TapStatus = "inactive"
	TapMaintenance TapStatus = "maintenance"
)

// MaxServingTempF is the warmest line temperature at which a tap is
// still allowed to serve. Above this the pour quality is off and the
// tap is closed for new orders until the reading recovers.
const MaxServingTempF = 44.0

type Tap struct {
	ID             string    `json:"tapId"`
	VenueID        string    `json:"venueId"`
	BeerID         string    `json:"beerId"`
	Status         TapStatus `json:"status"`
	OzRemaining    float64   `json:"ozRemaining"`
	LowThresholdOz float64   `json:"lowThresholdOz"`
	TempF          float64   `json:"tempF"`
	PourSizeOz     float64   `json:"pourSizeOz"`
	PriceCents     int       `json:"priceCents"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TempOK reports whether the last temperature reading allows serving.
// A zero reading means the sensor never reported and the tap stays closed.
func (t *Tap) TempOK() bool {
	return t.TempF > 0 && t.TempF <= MaxServingTempF
}

func (t *Tap) HasPricing() bool {
	return t.PriceCents > 0 && t.Currency != ""
}

type Venue struct {
	ID                    string    `json:"venueId"`
	Name                  string    `json:"name"`
	Active                bool      `json:"active"`
	MobileOrderingEnabled bool      `json:"mobileOrderingEnabled"`
	CreatedAt             time.Time `json:"createdAt"`
}

// Buyer carries only what the engine needs from the identity side:
// the age-verification signal. The verification flow itself lives with
// the external provider.
type Buyer struct {
	ID            string    `json:"buyerId"`
	AgeVerified   bool      `json:"ageVerified"`
	AgeVerifiedAt time.Time `json:"ageVerifiedAt"`
	CreatedAt     time.Time `json:"createdAt"`
}
