package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	pmxt "github.com/pmxt/pmxt-go"
)

// flexFloat tolerates the gamma API's habit of returning numeric fields as
// either JSON numbers or decimal strings. Unparseable values decode to 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*f = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if n, err := strconv.ParseFloat(str, 64); err == nil {
			*f = flexFloat(n)
		}
	}
	return nil
}

// stringArray tolerates the gamma API returning array fields either as a
// JSON array or as a string containing serialized JSON. A value that is
// neither marks the field invalid instead of failing the whole event.
type stringArray struct {
	values  []string
	invalid bool
}

func (s *stringArray) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		s.values = direct
		return nil
	}
	var wrapped string
	if err := json.Unmarshal(data, &wrapped); err == nil {
		var inner []string
		if err := json.Unmarshal([]byte(wrapped), &inner); err == nil {
			s.values = inner
			return nil
		}
	}
	s.invalid = true
	return nil
}

// Tag is a gamma taxonomy label.
type Tag struct {
	Label string `json:"label"`
}

// Event is the gamma container entity. Its nested markets are the
// tradeable questions.
type Event struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Tags        []Tag    `json:"tags"`
	Markets     []Market `json:"markets"`
}

// Market is a gamma market nested inside an event.
type Market struct {
	ID                string      `json:"id"`
	Question          string      `json:"question"`
	GroupItemTitle    string      `json:"groupItemTitle"`
	Description       string      `json:"description"`
	Outcomes          stringArray `json:"outcomes"`
	OutcomePrices     stringArray `json:"outcomePrices"`
	ClobTokenIDs      stringArray `json:"clobTokenIds"`
	OneDayPriceChange float64     `json:"oneDayPriceChange"`
	Volume24h         flexFloat   `json:"volume24hr"`
	Volume24hAlt      flexFloat   `json:"volume_24h"`
	Volume            flexFloat   `json:"volume"`
	Liquidity         flexFloat   `json:"liquidity"`
	OpenInterest      flexFloat   `json:"openInterest"`
	EndDate           string      `json:"endDate"`
	Image             string      `json:"image"`
	Rewards           struct {
		Liquidity flexFloat `json:"liquidity"`
	} `json:"rewards"`
}

// outcomesValid reports whether both outcome arrays decoded cleanly.
func (m Market) outcomesValid() bool {
	return !m.Outcomes.invalid && !m.OutcomePrices.invalid
}

// MapMarket normalizes one gamma market. Binary yes/no labels are replaced
// with the market's candidate name when one exists: "Yes" becomes the
// candidate, "No" becomes "Not <candidate>". The 24h price delta applies to
// the yes/first outcome only. When the outcome arrays failed to decode the
// market is kept with an empty outcome list.
//
// questionFallback lets the market question stand in as the candidate name;
// slug lookups enable it because deeply nested events often carry the
// candidate there.
func MapMarket(event Event, m Market, questionFallback bool) *pmxt.Market {
	candidate := m.GroupItemTitle
	if candidate == "" && questionFallback {
		candidate = m.Question
	}

	var outcomes []pmxt.Outcome
	if m.outcomesValid() {
		labels := m.Outcomes.values
		prices := m.OutcomePrices.values
		tokens := m.ClobTokenIDs.values

		outcomes = make([]pmxt.Outcome, 0, len(labels))
		for i, label := range labels {
			var price float64
			if i < len(prices) {
				price, _ = strconv.ParseFloat(prices[i], 64)
			}

			id := strconv.Itoa(i)
			meta := map[string]string{}
			if i < len(tokens) && tokens[i] != "" {
				id = tokens[i]
				meta["clobTokenId"] = tokens[i]
			}

			display := label
			if candidate != "" {
				switch strings.ToLower(label) {
				case "yes":
					display = candidate
				case "no":
					display = "Not " + candidate
				}
			}

			var delta float64
			if i == 0 || strings.EqualFold(label, "yes") || (candidate != "" && label == candidate) {
				delta = m.OneDayPriceChange
			}

			outcomes = append(outcomes, pmxt.Outcome{
				ID:             id,
				Label:          display,
				Price:          price,
				PriceChange24h: delta,
				Metadata:       meta,
			})
		}
	}

	title := event.Title
	if m.Question != "" {
		title = event.Title + " - " + m.Question
	}
	description := m.Description
	if description == "" {
		description = event.Description
	}

	resolution := time.Time{}
	if m.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
			resolution = t
		}
	}

	volume24h := float64(m.Volume24h)
	if volume24h == 0 {
		volume24h = float64(m.Volume24hAlt)
	}
	liquidity := float64(m.Liquidity)
	if liquidity == 0 {
		liquidity = float64(m.Rewards.Liquidity)
	}

	image := event.Image
	if image == "" {
		image = m.Image
	}
	if image == "" {
		image = "https://polymarket.com/api/og?slug=" + event.Slug
	}

	category := event.Category
	if category == "" && len(event.Tags) > 0 {
		category = event.Tags[0].Label
	}
	tags := make([]string, 0, len(event.Tags))
	for _, t := range event.Tags {
		tags = append(tags, t.Label)
	}

	return &pmxt.Market{
		ID:             m.ID,
		Title:          title,
		Description:    description,
		Outcomes:       outcomes,
		ResolutionDate: resolution,
		Volume24h:      volume24h,
		Volume:         float64(m.Volume),
		Liquidity:      liquidity,
		OpenInterest:   float64(m.OpenInterest),
		URL:            "https://polymarket.com/event/" + event.Slug,
		Image:          image,
		Category:       category,
		Tags:           tags,
	}
}

// isMarketID reports whether an id is a short all-digit gamma market id
// rather than a CLOB token id. Token ids are long uint256 decimal strings;
// gamma market ids are short integers, and passing one to the CLOB returns
// confusing empty data instead of an error.
func isMarketID(id string) bool {
	if len(id) >= 10 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(id) > 0
}
