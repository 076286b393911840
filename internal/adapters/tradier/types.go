package tradier

import (
	"bytes"
	"encoding/json"
)

// oneOrMany decodifica campos que Tradier devuelve como objeto cuando hay un
// solo elemento, como array cuando hay varios y como null cuando no hay ninguno.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*o = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = oneOrMany[T]{one}
	return nil
}

// --- /markets/quotes ---

type quotesResponse struct {
	Quotes *struct {
		Quote oneOrMany[quote] `json:"quote"`
	} `json:"quotes"`
}

type quote struct {
	Symbol    string   `json:"symbol"`
	Last      *float64 `json:"last"`
	Bid       *float64 `json:"bid"`
	Ask       *float64 `json:"ask"`
	PrevClose *float64 `json:"prevclose"`
}

// --- /markets/options/expirations ---

type expirationsResponse struct {
	Expirations *struct {
		Date oneOrMany[string] `json:"date"`
	} `json:"expirations"`
}

// --- /markets/options/chains ---

type chainResponse struct {
	Options *struct {
		Option oneOrMany[option] `json:"option"`
	} `json:"options"`
}

type option struct {
	Symbol         string   `json:"symbol"`
	Underlying     string   `json:"underlying"`
	Strike         float64  `json:"strike"`
	OptionType     string   `json:"option_type"` // call | put
	ExpirationDate string   `json:"expiration_date"`
	Bid            *float64 `json:"bid"`
	Ask            *float64 `json:"ask"`
	Last           *float64 `json:"last"`
	Volume         int64    `json:"volume"`
	OpenInterest   int64    `json:"open_interest"`
	Greeks         *greeks  `json:"greeks"`
}

type greeks struct {
	Delta *float64 `json:"delta"`
	Gamma *float64 `json:"gamma"`
	Theta *float64 `json:"theta"`
	Vega  *float64 `json:"vega"`
	MidIV *float64 `json:"mid_iv"`
	SmvIV *float64 `json:"smv_vol"`
}

// --- /markets/history ---

type historyResponse struct {
	History *struct {
		Day oneOrMany[historyDay] `json:"day"`
	} `json:"history"`
}

type historyDay struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
