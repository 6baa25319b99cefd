package asset

// Pair is an ordered (base, quote) pair of assets. The canonical direction
// is base/quote: "BTC/USD" is the price of BTC expressed in USD. Value-like,
// constructed fresh per request; only the Asset pointers are shared.
type Pair struct {
	Base  *Asset
	Quote *Asset
	Name  string
}

// NewPair builds a pair. Self-pairs are valid and represent an identity
// price of 1.
func NewPair(base, quote *Asset) Pair {
	return Pair{Base: base, Quote: quote, Name: base.Name + "/" + quote.Name}
}
