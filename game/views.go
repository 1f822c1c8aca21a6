package game

import (
	"czar/domain"

	"github.com/samber/lo"
)

const HiddenCardText = "?"

type ClientView struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	GameId string `json:"gameId,omitempty"`
}

type SettingsView struct {
	Name     string `json:"name"`
	MaxScore int    `json:"maxScore"`
	HandSize int    `json:"whiteCards"`
}

type CardView struct {
	Id   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type PlayView struct {
	Id    string     `json:"id"`
	White []CardView `json:"white"`
}

type ParticipantView struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Host     bool   `json:"host"`
	CardCzar bool   `json:"cardCzar"`
	Played   bool   `json:"played"`
	Winner   bool   `json:"winner"`
}

// SelfView is a participant as they see themselves, hand included.
type SelfView struct {
	ParticipantView
	Hand []domain.ResponseCard `json:"hand"`
}

type GameView struct {
	Id              string             `json:"id"`
	Host            string             `json:"host"`
	Black           *domain.PromptCard `json:"black"`
	Table           []PlayView         `json:"table"`
	Status          Status             `json:"status"`
	LastRoundWinner string             `json:"lastRoundWinner,omitempty"`
	Settings        SettingsView       `json:"settings"`
	Clients         []ParticipantView  `json:"clients"`
	Client          *SelfView          `json:"client"`
}

type ListedParticipant struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Host  bool   `json:"host"`
}

type GameSummary struct {
	Id       string              `json:"id"`
	Status   Status              `json:"status"`
	Settings Settings            `json:"settings"`
	Clients  []ListedParticipant `json:"clients"`
}

func clientView(c *Client) ClientView {
	return ClientView{Id: c.Id, Name: c.Name, GameId: c.GameId}
}

func (g *Game) isWinner(p *Participant) bool {
	if g.LastRoundWinner == "" {
		return false
	}
	return lo.ContainsBy(g.Table, func(t *Play) bool {
		return t.Id == g.LastRoundWinner && t.ParticipantId == p.Id
	})
}

func (g *Game) participantView(p *Participant) ParticipantView {
	return ParticipantView{
		Id:       p.Id,
		Name:     p.Name,
		Score:    p.Score,
		Host:     p.Host,
		CardCzar: p.Czar,
		Played:   p.Played,
		Winner:   g.isWinner(p),
	}
}

func (g *Game) selfView(p *Participant) *SelfView {
	if p == nil {
		return nil
	}
	return &SelfView{ParticipantView: g.participantView(p), Hand: p.Hand}
}

// View is the game as recipient sees it: submissions stay hidden while the
// round is being played and only the recipient's own hand is included.
// recipient may be nil for someone outside the game.
func (g *Game) View(recipient *Participant) GameView {
	hidden := g.Status == StatusPlaying
	table := lo.Map(g.Table, func(t *Play, _ int) PlayView {
		cards := lo.Map(t.Cards, func(c domain.ResponseCard, _ int) CardView {
			if hidden {
				return CardView{Text: HiddenCardText}
			}
			return CardView{Id: c.Id, Text: c.Text}
		})
		return PlayView{Id: t.Id, White: cards}
	})

	return GameView{
		Id:              g.Id,
		Host:            g.Host,
		Black:           g.Prompt,
		Table:           table,
		Status:          g.Status,
		LastRoundWinner: g.LastRoundWinner,
		Settings: SettingsView{
			Name:     g.Settings.Name,
			MaxScore: g.Settings.MaxScore,
			HandSize: g.Settings.HandSize,
		},
		Clients: lo.Map(g.Participants, func(p *Participant, _ int) ParticipantView { return g.participantView(p) }),
		Client:  g.selfView(recipient),
	}
}

func (g *Game) Summary() GameSummary {
	return GameSummary{
		Id:       g.Id,
		Status:   g.Status,
		Settings: g.Settings,
		Clients: lo.Map(g.Participants, func(p *Participant, _ int) ListedParticipant {
			return ListedParticipant{Id: p.Id, Name: p.Name, Score: p.Score, Host: p.Host}
		}),
	}
}

func gamesListView(games []*Game) []GameSummary {
	return lo.Map(games, func(g *Game, _ int) GameSummary { return g.Summary() })
}
