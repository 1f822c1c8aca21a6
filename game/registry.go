package game

import (
	"slices"
)

// ClientRegistry and GameRegistry are owned by the server loop and are not
// safe for concurrent use.

type ClientRegistry struct {
	clients map[string]*Client
	byConn  map[Conn]*Client
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		byConn:  make(map[Conn]*Client),
	}
}

func (r *ClientRegistry) Get(id string) (*Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

func (r *ClientRegistry) ByConn(conn Conn) (*Client, bool) {
	c, ok := r.byConn[conn]
	return c, ok
}

func (r *ClientRegistry) Add(c *Client) {
	r.clients[c.Id] = c
}

func (r *ClientRegistry) Remove(id string) {
	c, ok := r.clients[id]
	if !ok {
		return
	}
	if c.conn != nil {
		delete(r.byConn, c.conn)
	}
	delete(r.clients, id)
}

// Attach makes conn the client's live connection, releasing its previous one.
func (r *ClientRegistry) Attach(c *Client, conn Conn) {
	if c.conn != nil && c.conn != conn {
		delete(r.byConn, c.conn)
	}
	c.conn = conn
	r.byConn[conn] = c
}

func (r *ClientRegistry) Detach(c *Client) {
	if c.conn == nil {
		return
	}
	delete(r.byConn, c.conn)
	c.conn = nil
}

// Connected returns every client that currently has a live connection.
func (r *ClientRegistry) Connected() []*Client {
	connected := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		connected = append(connected, c)
	}
	return connected
}

func (r *ClientRegistry) Len() int {
	return len(r.clients)
}

type GameRegistry struct {
	games map[string]*Game
	order []string
}

func NewGameRegistry() *GameRegistry {
	return &GameRegistry{games: make(map[string]*Game)}
}

func (r *GameRegistry) Get(id string) (*Game, bool) {
	if id == "" {
		return nil, false
	}
	g, ok := r.games[id]
	return g, ok
}

func (r *GameRegistry) Add(g *Game) {
	if _, exists := r.games[g.Id]; !exists {
		r.order = append(r.order, g.Id)
	}
	r.games[g.Id] = g
}

func (r *GameRegistry) Remove(id string) {
	if _, exists := r.games[id]; !exists {
		return
	}
	delete(r.games, id)
	r.order = slices.DeleteFunc(r.order, func(gid string) bool { return gid == id })
}

// All returns the games in creation order.
func (r *GameRegistry) All() []*Game {
	all := make([]*Game, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.games[id])
	}
	return all
}

func (r *GameRegistry) Len() int {
	return len(r.games)
}
