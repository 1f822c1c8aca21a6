package game

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"
)

type actionContext struct {
	conn        Conn
	req         *Request
	client      *Client
	game        *Game
	participant *Participant
	changes     *changes
}

// action is one inbound command. validate must not mutate anything; apply
// runs only after validate passed and may still fail before mutating.
type action interface {
	validate(s *Server, ac *actionContext) error
	apply(s *Server, ac *actionContext) (any, error)
}

var actions = map[string]action{
	ActionEstablishConnection: establishConnection{},
	ActionUpdateClient:        updateClient{},
	ActionCreateGame:          createGame{},
	ActionJoinGame:            joinGame{},
	ActionUpdateGameSettings:  updateGameSettings{},
	ActionStartGame:           startGame{},
	ActionPlayCard:            playCard{},
	ActionPickCard:            pickCard{},
}

type payload map[string]any

func requireGame(ac *actionContext) error {
	if ac.game != nil {
		return nil
	}
	if ac.req.GameId == "" {
		return ErrMissingGameId
	}
	return ErrGameNotFound
}

func validateName(name *string) error {
	if name != nil && len([]rune(*name)) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

type establishConnection struct{}

func (establishConnection) validate(s *Server, ac *actionContext) error {
	return validateName(ac.req.Name)
}

func (establishConnection) apply(s *Server, ac *actionContext) (any, error) {
	c := ac.client
	if c != nil {
		if c.evictTimer != nil {
			c.evictTimer.Stop()
			c.evictTimer = nil
		}
		c.evictGen++
		s.attach(c, ac.conn)
		if c.GameId != "" {
			ac.changes.stateTo = append(ac.changes.stateTo, c)
		}
		log.Info().Str("client", c.Id).Msg("client reconnected")
	} else {
		c = &Client{Id: s.ids.Generate()}
		if ac.req.Name != nil {
			c.Name = *ac.req.Name
		}
		s.clients.Add(c)
		s.attach(c, ac.conn)
		log.Info().Str("client", c.Id).Msg("client connected")
	}

	ac.changes.listTo = append(ac.changes.listTo, c)
	return payload{"client": clientView(c)}, nil
}

type updateClient struct{}

func (updateClient) validate(s *Server, ac *actionContext) error {
	if ac.req.Name == nil {
		return ErrMissingName
	}
	return validateName(ac.req.Name)
}

func (updateClient) apply(s *Server, ac *actionContext) (any, error) {
	c := ac.client
	c.Name = *ac.req.Name

	if g, ok := s.games.Get(c.GameId); ok {
		if p, _ := g.participant(c.Id); p != nil {
			p.Name = c.Name
			ac.changes.touch(g)
			ac.changes.list = true
		}
	}
	return payload{"client": clientView(c)}, nil
}

type createGame struct{}

func (createGame) validate(s *Server, ac *actionContext) error {
	if ac.req.Settings == nil {
		return nil
	}
	return ac.req.Settings.validate()
}

func (createGame) apply(s *Server, ac *actionContext) (any, error) {
	c := ac.client
	if c.GameId != "" {
		s.leave(c, ac.changes)
	}

	settings := DefaultSettings()
	if ac.req.Settings != nil {
		settings = settings.merge(*ac.req.Settings)
	}

	g := NewGame(s.ids.Generate(), c, settings)
	s.games.Add(g)
	c.GameId = g.Id
	ac.changes.list = true

	log.Info().Str("game", g.Id).Str("client", c.Id).Msg("game created")
	return payload{"game": g.View(g.Participants[0])}, nil
}

type joinGame struct{}

func (joinGame) validate(s *Server, ac *actionContext) error {
	return requireGame(ac)
}

func (joinGame) apply(s *Server, ac *actionContext) (any, error) {
	c, g := ac.client, ac.game
	if c.GameId != g.Id {
		s.leave(c, ac.changes)
	}

	p := g.addParticipant(c)
	c.GameId = g.Id
	ac.changes.touch(g)
	ac.changes.list = true

	log.Info().Str("game", g.Id).Str("client", c.Id).Int("participants", len(g.Participants)).Msg("client joined game")
	return payload{"game": g.View(p)}, nil
}

type updateGameSettings struct{}

func (updateGameSettings) validate(s *Server, ac *actionContext) error {
	if err := requireGame(ac); err != nil {
		return err
	}
	if ac.req.Settings == nil {
		return ErrMissingSettings
	}
	if err := ac.req.Settings.validate(); err != nil {
		return err
	}
	if ac.game.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	if ac.client.Id != ac.game.Host {
		return ErrNotHost
	}
	return nil
}

func (updateGameSettings) apply(s *Server, ac *actionContext) (any, error) {
	g := ac.game
	g.Settings = g.Settings.merge(*ac.req.Settings)
	ac.changes.touch(g)
	ac.changes.list = true
	return payload{"game": g.View(ac.participant)}, nil
}

type startGame struct{}

func (startGame) validate(s *Server, ac *actionContext) error {
	if err := requireGame(ac); err != nil {
		return err
	}
	if ac.game.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	if ac.client.Id != ac.game.Host {
		return ErrNotHost
	}
	if len(ac.game.Participants) < MinParticipants {
		return ErrTooFewParticipants
	}
	return nil
}

func (startGame) apply(s *Server, ac *actionContext) (any, error) {
	g := ac.game

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.DeckLookupTimeout)
	defer cancel()
	decks, err := s.decks.GetDecksByIds(ctx, slices.Clone(g.Settings.Decks))
	if err != nil {
		log.Error().Err(err).Str("game", g.Id).Strs("decks", g.Settings.Decks).Msg("deck lookup failed")
		return nil, ErrDecksUnavailable
	}

	g.start(decks)
	ac.changes.touch(g)
	ac.changes.list = true

	log.Info().Str("game", g.Id).Int("decks", len(decks)).Str("status", string(g.Status)).Msg("game started")
	return payload{"game": g.View(ac.participant)}, nil
}

type playCard struct{}

func (playCard) validate(s *Server, ac *actionContext) error {
	if err := requireGame(ac); err != nil {
		return err
	}
	if ac.req.WhiteId == nil {
		return ErrMissingCards
	}
	return ac.game.validatePlay(ac.participant, ac.req.WhiteId)
}

func (playCard) apply(s *Server, ac *actionContext) (any, error) {
	g, p := ac.game, ac.participant
	g.applyPlay(p, ac.req.WhiteId, s.ids.Generate())
	ac.changes.touch(g)
	return payload{"player": g.selfView(p)}, nil
}

type pickCard struct{}

func (pickCard) validate(s *Server, ac *actionContext) error {
	if err := requireGame(ac); err != nil {
		return err
	}
	if ac.req.WinnerId == "" {
		return ErrMissingWinner
	}
	return ac.game.validatePick(ac.participant, ac.req.WinnerId)
}

func (pickCard) apply(s *Server, ac *actionContext) (any, error) {
	g := ac.game
	winner := g.applyPick(ac.req.WinnerId)

	if g.Status == StatusFinished {
		ac.changes.list = true
		log.Info().Str("game", g.Id).Str("winner", winner.Id).Int("score", winner.Score).Msg("game finished")
	} else {
		s.armAdvance(g)
	}
	ac.changes.touch(g)
	return payload{"game": g.View(ac.participant)}, nil
}
