package domain

import "time"

// ExtractionMethod identifies how product fields were extracted
type ExtractionMethod string

const (
	MethodAI     ExtractionMethod = "ai"
	MethodManual ExtractionMethod = "manual"
)

// ProductPrice represents product pricing information
type ProductPrice struct {
	CurrentPrice *float64
	OldPrice     *float64
}

// IsValid checks if price data is valid
func (p *ProductPrice) IsValid() bool {
	return p.CurrentPrice != nil && *p.CurrentPrice > 0
}

// PriceFromPair builds a price from up to two detected values.
// Policy: when two values are present the lower one is the current price
// and the higher one the old price, reflecting the discount-listing
// convention of the source channels. This is a heuristic, not a universal
// rule; it can misread listings where two unrelated prices appear.
func PriceFromPair(low, high *float64) ProductPrice {
	if low != nil && high != nil && *high < *low {
		low, high = high, low
	}
	return ProductPrice{CurrentPrice: low, OldPrice: high}
}

// Product represents the catalog entry reconstructed from one or more
// channel messages
type Product struct {
	UniqueID         string
	ChannelID        int64
	MessageID        int64
	Timestamp        time.Time
	ChannelName      string
	Name             string
	ShortDescription string
	Description      string
	Images           []string // local media paths, in chronological order
	Prices           ProductPrice
	Method           ExtractionMethod
}

// IsValid validates the product: it must have a name, at least one image
// and a valid current price
func (p *Product) IsValid() bool {
	return p.Name != "" && len(p.Images) > 0 && p.Prices.IsValid()
}
