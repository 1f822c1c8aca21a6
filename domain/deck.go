package domain

type PromptCard struct {
	Id   string `json:"id"`
	Text string `json:"text"`
	Pick int    `json:"pick"`
}

type ResponseCard struct {
	Id   string `json:"id"`
	Text string `json:"text"`
}

type Deck struct {
	Id    string         `json:"id"`
	Name  string         `json:"name"`
	Slug  string         `json:"slug"`
	Black []PromptCard   `json:"black"`
	White []ResponseCard `json:"white"`
}

// DeckSummary is what deck listings return: counts instead of card bodies.
type DeckSummary struct {
	Id         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	BlackCount int    `json:"blackCount"`
	WhiteCount int    `json:"whiteCount"`
}

// DeckPage follows the pagination shape the web client already consumes.
type DeckPage struct {
	Docs        []DeckSummary `json:"docs"`
	TotalDocs   int           `json:"totalDocs"`
	Limit       int           `json:"limit"`
	Page        int           `json:"page"`
	TotalPages  int           `json:"totalPages"`
	HasNextPage bool          `json:"hasNextPage"`
	HasPrevPage bool          `json:"hasPrevPage"`
}

// RequiredPick is the number of response cards a play must contain.
func (c PromptCard) RequiredPick() int {
	if c.Pick < 1 {
		return 1
	}
	return c.Pick
}
