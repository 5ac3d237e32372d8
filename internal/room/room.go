// Package room implements the process coordinator for the game: a single
// actor goroutine that owns either the staging lobby or the active round,
// plus the process-wide settings. Connections post typed messages into its
// inbox; all shared-state mutation happens inside the loop.
package room

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/croissant676/SpyfallServer/internal/metrics"
	"github.com/croissant676/SpyfallServer/internal/protocol"
	"github.com/croissant676/SpyfallServer/internal/words"
	"go.uber.org/zap"
)

// Client is one live connection as the room sees it. Name is empty until a
// join succeeds and immutable afterwards; only the room loop touches it.
type Client struct {
	ID     string
	Name   string
	Outbox chan []byte
}

func NewClient(id string) *Client {
	return &Client{ID: id, Outbox: make(chan []byte, 32)}
}

type Msg interface{ isRoomMsg() }

// FromClient carries one decoded inbound frame.
type FromClient struct {
	Client *Client
	Data   protocol.Incoming
}

// Disconnect reports that a client's transport closed.
type Disconnect struct{ Client *Client }

// GetView reflects internal state without data races; test-only.
type GetView struct {
	Reply chan View
}

type Shutdown struct{}

// voteTimerFired is posted by the automatic vote timer. Fires whose gen no
// longer matches the game's counter are stale and dropped.
type voteTimerFired struct{ gen int }

func (FromClient) isRoomMsg()     {}
func (Disconnect) isRoomMsg()     {}
func (GetView) isRoomMsg()        {}
func (Shutdown) isRoomMsg()       {}
func (voteTimerFired) isRoomMsg() {}

type View struct {
	InLobby      bool
	Readiness    map[string]bool
	Settings     protocol.Settings
	Players      []string
	Spectators   []string
	Imposters    []string
	Topic        string
	Word         string
	Threads      int
	Votes        map[string]string
	VotingOpen   bool
	LastVoteCall time.Time
}

type Options struct {
	Words    words.List
	Settings protocol.Settings
	Logger   *zap.SugaredLogger
	Rand     *rand.Rand
}

type Room struct {
	inbox    chan Msg
	settings protocol.Settings
	lobby    *lobbyState // nil while a game is running
	game     *Game       // nil while the lobby is staging
	words    words.List
	rng      *rand.Rand
	log      *zap.SugaredLogger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Settings.NumImposter < 1 || opts.Settings.VoteInterval < 1 {
		opts.Settings = protocol.Settings{NumImposter: 1, VoteInterval: 300}
	}

	r := &Room{
		inbox:    make(chan Msg, 64),
		settings: opts.Settings,
		lobby:    newLobbyState(),
		words:    opts.Words,
		rng:      opts.Rand,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	go r.loop()
	return r
}

// Inbox exposes the actor's mailbox to the transport layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case FromClient:
				r.dispatch(msg.Client, msg.Data)

			case Disconnect:
				r.handleDisconnect(msg.Client)

			case voteTimerFired:
				r.handleVoteTimer(msg.gen)

			case GetView:
				msg.Reply <- r.view()

			case Shutdown:
				r.cancel()
				return
			}
		}
	}
}

func (r *Room) dispatch(c *Client, in protocol.Incoming) {
	switch data := in.(type) {
	case protocol.JoinRq:
		r.handleJoin(c, data.Name)
	case protocol.UpdSettings:
		r.handleSettings(data.Settings)
	case protocol.LobbyReadiness:
		r.handleReadiness(c, data.NewReadiness)
	case protocol.ThreadCreate:
		r.handleThreadCreate(c, data.Question, data.User)
	case protocol.ThreadSend:
		r.handleThreadSend(c, data.ThreadID, data.Text)
	case protocol.VoteSessionReq:
		r.handleVoteSessionReq()
	case protocol.Vote:
		r.handleVote(c, data.VoteFor)
	case protocol.ImposterGuess:
		r.handleImposterGuess(c, data.Guess)
	}
}

func (r *Room) handleJoin(c *Client, name string) {
	if c.Name != "" {
		r.log.Debugw("ignoring repeat name claim", "client", c.ID, "name", name)
		return
	}
	if name == "" {
		r.send(c, protocol.NameValidity{IsValid: false})
		return
	}

	if r.lobby != nil {
		if r.lobby.hasName(name) {
			r.log.Warnw("name already taken in lobby", "name", name)
			r.send(c, protocol.NameValidity{IsValid: false})
			return
		}
		r.send(c, protocol.NewSettings{Settings: r.settings})
		c.Name = name
		r.send(c, protocol.NameValidity{IsValid: true})
		r.lobby.add(c)
		r.broadcastLobby()
		r.log.Infow("player joined lobby", "name", name)
		return
	}

	// A round is running: the newcomer becomes a spectator.
	g := r.game
	if g.hasName(name) {
		r.log.Warnw("name already taken in game", "name", name)
		r.send(c, protocol.NameValidity{IsValid: false})
		return
	}
	c.Name = name
	r.send(c, protocol.NameValidity{IsValid: true})
	g.spectators = append(g.spectators, c)
	r.introduceSpectator(c)
	r.log.Infow("spectator joined mid-round", "name", name)
}

func (r *Room) handleSettings(s protocol.Settings) {
	if s.NumImposter < 1 || s.VoteInterval < 1 {
		r.log.Warnw("ignoring out-of-range settings", "numImposter", s.NumImposter, "voteInterval", s.VoteInterval)
		return
	}
	r.settings = s
	if r.lobby != nil {
		r.lobbyBroadcast(protocol.NewSettings{Settings: s})
	}
}

func (r *Room) handleReadiness(c *Client, ready bool) {
	lobby := r.lobby
	if lobby == nil || !lobby.has(c) {
		return
	}
	lobby.ready[c] = ready
	r.broadcastLobby()
	if !ready || !lobby.isAllReady() {
		return
	}

	if err := r.formGame(); err != nil {
		r.lobbyBroadcast(protocol.GameNotValid{})
		r.lobbyBroadcast(protocol.ServerMsg{Data: "can't start the game: " + err.Error()})
		lobby.resetReadiness()
		r.broadcastLobby()
		r.log.Infow("game formation rejected", "err", err, "players", len(lobby.order))
	}
}

func (r *Room) handleDisconnect(c *Client) {
	// A connection that never claimed a name was a member of nothing.
	if c.Name == "" {
		return
	}

	if r.lobby != nil {
		if r.lobby.remove(c) {
			r.broadcastLobby()
			r.lobbyBroadcast(protocol.ServerMsg{Data: fmt.Sprintf("player %s disconnected", c.Name)})
		}
		return
	}

	g := r.game
	removed := g.removePlayer(c)
	if !removed {
		removed = g.removeSpectator(c)
	}
	if !removed {
		return
	}
	if g.voting != nil {
		delete(g.voting, c)
		// Votes pointing at the departed player are stale: left in place
		// they could win the tally and drag a dead connection back in as a
		// spectator.
		for voter, target := range g.voting {
			if target == c {
				delete(g.voting, voter)
			}
		}
	}
	wasImposter := g.isImposter(c)
	if wasImposter {
		g.removeImposter(c)
	}
	r.gameBroadcast(protocol.ServerMsg{Data: fmt.Sprintf("player %s disconnected", c.Name)})
	r.log.Infow("participant disconnected mid-round", "name", c.Name, "imposter", wasImposter)
	if wasImposter {
		r.checkImpostersGone()
	}
}

func (r *Room) view() View {
	v := View{Settings: r.settings}
	if r.lobby != nil {
		v.InLobby = true
		v.Readiness = r.lobby.readiness()
		return v
	}
	g := r.game
	v.Players = g.playerNames()
	v.Spectators = clientNames(g.spectators)
	v.Imposters = g.imposterNames()
	v.Topic = g.topic
	v.Word = g.word
	v.Threads = len(g.threads)
	v.LastVoteCall = g.lastVoteCall
	if g.voting != nil {
		v.VotingOpen = true
		v.Votes = g.votingRecords()
	}
	return v
}

// push delivers one encoded frame; a full outbox drops the frame for that
// client so one slow connection never blocks the rest of a broadcast.
func (r *Room) push(c *Client, frame []byte) {
	select {
	case c.Outbox <- frame:
	default:
		metrics.OutboundDropped.Inc()
		r.log.Warnw("dropping frame for slow client", "client", c.ID, "name", c.Name)
	}
}

func (r *Room) send(c *Client, o protocol.Outgoing) {
	r.push(c, protocol.Encode(o))
}

func (r *Room) lobbyBroadcast(o protocol.Outgoing) {
	frame := protocol.Encode(o)
	for _, c := range r.lobby.order {
		r.push(c, frame)
	}
}

func (r *Room) broadcastLobby() {
	r.lobbyBroadcast(protocol.LobbyData{Readiness: r.lobby.readiness()})
}

func (r *Room) gameBroadcast(o protocol.Outgoing) {
	frame := protocol.Encode(o)
	for _, c := range r.game.players {
		r.push(c, frame)
	}
	for _, c := range r.game.spectators {
		r.push(c, frame)
	}
}

// lobbyState tracks staged connections in join order plus their ready flags.
type lobbyState struct {
	order []*Client
	ready map[*Client]bool
}

func newLobbyState() *lobbyState {
	return &lobbyState{ready: make(map[*Client]bool)}
}

func (l *lobbyState) add(c *Client) {
	l.order = append(l.order, c)
	l.ready[c] = false
}

func (l *lobbyState) remove(c *Client) bool {
	if !l.has(c) {
		return false
	}
	for i, m := range l.order {
		if m == c {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	delete(l.ready, c)
	return true
}

func (l *lobbyState) has(c *Client) bool {
	_, ok := l.ready[c]
	return ok
}

func (l *lobbyState) hasName(name string) bool {
	for _, c := range l.order {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (l *lobbyState) isAllReady() bool {
	for _, ready := range l.ready {
		if !ready {
			return false
		}
	}
	return true
}

func (l *lobbyState) resetReadiness() {
	for c := range l.ready {
		l.ready[c] = false
	}
}

func (l *lobbyState) readiness() map[string]bool {
	m := make(map[string]bool, len(l.order))
	for _, c := range l.order {
		m[c.Name] = l.ready[c]
	}
	return m
}

func clientNames(cs []*Client) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	return names
}
