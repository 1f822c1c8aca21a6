package game

import (
	"math/rand/v2"
	"slices"

	"czar/domain"

	"github.com/samber/lo"
)

func NewGame(id string, host *Client, settings Settings) *Game {
	return &Game{
		Id:           id,
		Host:         host.Id,
		Status:       StatusWaiting,
		Settings:     settings,
		Table:        []*Play{},
		Participants: []*Participant{newParticipant(host, true)},
	}
}

func newParticipant(c *Client, host bool) *Participant {
	return &Participant{
		Id:   c.Id,
		Name: c.Name,
		Host: host,
		Hand: []domain.ResponseCard{},
	}
}

func (g *Game) participant(id string) (*Participant, int) {
	p, idx, ok := lo.FindIndexOf(g.Participants, func(p *Participant) bool { return p.Id == id })
	if !ok {
		return nil, -1
	}
	return p, idx
}

func (g *Game) czar() *Participant {
	p, _ := lo.Find(g.Participants, func(p *Participant) bool { return p.Czar })
	return p
}

// addParticipant is idempotent and never changes the game status.
func (g *Game) addParticipant(c *Client) *Participant {
	if p, _ := g.participant(c.Id); p != nil {
		return p
	}
	p := newParticipant(c, false)
	g.Participants = append(g.Participants, p)
	return p
}

// removeParticipant reports whether the game has to be destroyed because the
// leaver was its only participant.
func (g *Game) removeParticipant(id string) bool {
	p, idx := g.participant(id)
	if p == nil {
		return false
	}
	if len(g.Participants) == 1 {
		return true
	}

	g.takePlay(p.Id)
	if p.Czar {
		g.nextCzar()
		// the new czar cannot judge their own submission
		if czar := g.czar(); czar != nil && czar != p {
			if play := g.takePlay(czar.Id); play != nil {
				czar.Hand = append(czar.Hand, play.Cards...)
				czar.Played = false
			}
		}
	}
	g.Participants = slices.Delete(g.Participants, idx, idx+1)

	if p.Host {
		g.Participants[0].Host = true
		g.Host = g.Participants[0].Id
	}

	switch {
	case len(g.Participants) < MinParticipants && g.Status != StatusWaiting:
		g.Status = StatusFinished
	case g.Status == StatusPlaying, g.Status == StatusCzarPicking:
		g.closePlays()
	}
	return false
}

// takePlay removes the participant's play from the table, if any.
func (g *Game) takePlay(participantId string) *Play {
	idx := slices.IndexFunc(g.Table, func(t *Play) bool { return t.ParticipantId == participantId })
	if idx < 0 {
		return nil
	}
	play := g.Table[idx]
	g.Table = slices.Delete(g.Table, idx, idx+1)
	return play
}

// nextCzar hands the czar role to the participant after the current czar,
// wrapping around. With no czar the first participant gets it.
func (g *Game) nextCzar() {
	if len(g.Participants) == 0 {
		return
	}
	idx := slices.IndexFunc(g.Participants, func(p *Participant) bool { return p.Czar })
	if idx >= 0 {
		g.Participants[idx].Czar = false
	}
	idx++
	if idx >= len(g.Participants) {
		idx = 0
	}
	g.Participants[idx].Czar = true
}

// start resets every participant and fills the pools from the selected decks
// in deck order, then plays the first round.
func (g *Game) start(decks []domain.Deck) {
	for _, p := range g.Participants {
		p.Score = 0
		p.Hand = []domain.ResponseCard{}
		p.Played = false
		p.Czar = false
	}

	var prompts []domain.PromptCard
	var responses []domain.ResponseCard
	for _, d := range decks {
		prompts = append(prompts, d.Black...)
		responses = append(responses, d.White...)
	}
	g.prompts = newPool(prompts)
	g.responses = newPool(responses)

	g.advanceRound()
}

func (g *Game) deal(p *Participant) {
	p.Played = false
	for len(p.Hand) < g.Settings.HandSize {
		card, ok := g.responses.drawRandom()
		if !ok {
			return
		}
		p.Hand = append(p.Hand, card)
	}
}

func (g *Game) advanceRound() {
	for _, p := range g.Participants {
		g.deal(p)
	}

	someoneEmptyHanded := lo.SomeBy(g.Participants, func(p *Participant) bool { return len(p.Hand) == 0 })
	if g.prompts.Len() == 0 || (g.responses.Len() == 0 && someoneEmptyHanded) {
		g.Status = StatusFinished
		return
	}

	g.Table = []*Play{}
	g.LastRoundWinner = ""
	g.nextCzar()

	// prompts nobody can answer with the cards in hand are discarded
	for {
		prompt, ok := g.prompts.drawRandom()
		if !ok {
			g.Status = StatusFinished
			return
		}
		if g.playable(prompt) {
			g.Prompt = &prompt
			break
		}
	}
	g.Status = StatusPlaying
	g.round++
}

func (g *Game) playable(prompt domain.PromptCard) bool {
	return lo.SomeBy(g.Participants, func(p *Participant) bool {
		return !p.Czar && len(p.Hand) >= prompt.RequiredPick()
	})
}

// canPlay is false for the czar and for anyone holding fewer cards than the
// prompt asks for.
func (g *Game) canPlay(p *Participant) bool {
	if p.Czar {
		return false
	}
	if g.Prompt == nil {
		return len(p.Hand) > 0
	}
	return len(p.Hand) >= g.Prompt.RequiredPick()
}

// allPlayed is true once every participant able to play has played.
func (g *Game) allPlayed() bool {
	return !lo.SomeBy(g.Participants, func(p *Participant) bool {
		return !p.Played && g.canPlay(p)
	})
}

// closePlays moves to czar picking once nobody is left to play. A round that
// ends with nothing on the table is skipped.
func (g *Game) closePlays() {
	if !g.allPlayed() {
		return
	}
	if len(g.Table) == 0 {
		g.advanceRound()
		return
	}
	g.Status = StatusCzarPicking
}

func (g *Game) validatePlay(p *Participant, cardIds []string) error {
	if g.Status != StatusPlaying {
		return ErrWrongStatus
	}
	if p == nil {
		return ErrNotParticipant
	}
	if p.Czar {
		return ErrCzarCannotPlay
	}
	if p.Played {
		return ErrAlreadyPlayed
	}
	if !g.canPlay(p) {
		return ErrNotEnoughCards
	}
	if g.Prompt != nil && len(cardIds) != g.Prompt.RequiredPick() {
		return ErrWrongCardCount
	}
	if len(lo.Uniq(cardIds)) != len(cardIds) {
		return ErrDuplicateCard
	}
	for _, id := range cardIds {
		if !lo.ContainsBy(p.Hand, func(c domain.ResponseCard) bool { return c.Id == id }) {
			return ErrCardNotOwned
		}
	}
	return nil
}

// applyPlay assumes validatePlay passed.
func (g *Game) applyPlay(p *Participant, cardIds []string, playId string) *Play {
	play := &Play{Id: playId, ParticipantId: p.Id, Cards: make([]domain.ResponseCard, 0, len(cardIds))}
	for _, id := range cardIds {
		idx := slices.IndexFunc(p.Hand, func(c domain.ResponseCard) bool { return c.Id == id })
		play.Cards = append(play.Cards, p.Hand[idx])
		p.Hand = slices.Delete(p.Hand, idx, idx+1)
	}
	p.Played = true

	g.Table = append(g.Table, play)
	rand.Shuffle(len(g.Table), func(i, j int) { g.Table[i], g.Table[j] = g.Table[j], g.Table[i] })

	g.closePlays()
	return play
}

func (g *Game) validatePick(p *Participant, playId string) error {
	if g.Status != StatusCzarPicking {
		return ErrWrongStatus
	}
	if p == nil {
		return ErrNotParticipant
	}
	if !p.Czar {
		return ErrNotCzar
	}
	play, ok := lo.Find(g.Table, func(t *Play) bool { return t.Id == playId })
	if !ok {
		return ErrPlayNotOnTable
	}
	if winner, _ := g.participant(play.ParticipantId); winner == nil {
		return ErrWinnerLeft
	}
	return nil
}

// applyPick assumes validatePick passed and returns the round winner.
func (g *Game) applyPick(playId string) *Participant {
	play, _ := lo.Find(g.Table, func(t *Play) bool { return t.Id == playId })
	winner, _ := g.participant(play.ParticipantId)

	winner.Score++
	g.LastRoundWinner = play.Id
	if winner.Score >= g.Settings.MaxScore {
		g.Status = StatusFinished
	} else {
		g.Status = StatusPostRound
	}
	return winner
}

func (s Settings) merge(patch SettingsPatch) Settings {
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.MaxScore != nil {
		s.MaxScore = *patch.MaxScore
	}
	if patch.HandSize != nil {
		s.HandSize = *patch.HandSize
	}
	if patch.Decks != nil {
		s.Decks = slices.Clone(patch.Decks)
	}
	return s
}

func (patch SettingsPatch) validate() error {
	if patch.MaxScore != nil && *patch.MaxScore < 1 {
		return ErrInvalidMaxScore
	}
	if patch.HandSize != nil && (*patch.HandSize < 1 || *patch.HandSize > MaxHandSize) {
		return ErrInvalidHandSize
	}
	if patch.Name != nil && len([]rune(*patch.Name)) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
