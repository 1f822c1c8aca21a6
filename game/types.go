package game

import (
	"czar/domain"
)

type Status string

const (
	StatusWaiting     Status = "waiting"
	StatusPlaying     Status = "playing"
	StatusCzarPicking Status = "czar_picking"
	StatusPostRound   Status = "post_round"
	StatusFinished    Status = "finished"
)

const (
	MinParticipants = 3
	DefaultMaxScore = 8
	DefaultHandSize = 10
	MaxHandSize     = 30
	MaxNameLength   = 64
)

type Settings struct {
	Name     string   `json:"name"`
	MaxScore int      `json:"maxScore"`
	HandSize int      `json:"whiteCards"`
	Decks    []string `json:"decks"`
}

// SettingsPatch carries only the fields a request wants to change.
type SettingsPatch struct {
	Name     *string  `json:"name"`
	MaxScore *int     `json:"maxScore"`
	HandSize *int     `json:"whiteCards"`
	Decks    []string `json:"decks"`
}

func DefaultSettings() Settings {
	return Settings{MaxScore: DefaultMaxScore, HandSize: DefaultHandSize, Decks: []string{}}
}

type Client struct {
	Id     string
	Name   string
	GameId string

	conn       Conn
	evictTimer Timer
	evictGen   uint64
}

type Participant struct {
	Id     string
	Name   string
	Host   bool
	Score  int
	Czar   bool
	Played bool
	Hand   []domain.ResponseCard
}

type Play struct {
	Id            string
	ParticipantId string
	Cards         []domain.ResponseCard
}

type Game struct {
	Id              string
	Host            string
	Status          Status
	Settings        Settings
	Prompt          *domain.PromptCard
	Table           []*Play
	LastRoundWinner string
	Participants    []*Participant

	prompts      pool[domain.PromptCard]
	responses    pool[domain.ResponseCard]
	round        uint64
	advanceTimer Timer
}
