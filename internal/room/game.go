package room

import (
	"errors"
	"strings"
	"time"

	"github.com/croissant676/SpyfallServer/internal/metrics"
	"github.com/croissant676/SpyfallServer/internal/protocol"
)

var ErrTooFewPlayers = errors.New("at least 3 players are required")
var ErrTooManyImposters = errors.New("imposter count must be below the player count")

const minPlayers = 3

// Game is one active round. It lives entirely inside the room loop; the
// lobby is torn down when a Game forms and recreated when it ends.
type Game struct {
	settings   protocol.Settings
	players    []*Client
	spectators []*Client
	imposters  []*Client // fixed at assignment; shrinks only on disconnect
	initial    []string  // roster at round start, for the end-of-round reveal
	topic      string
	word       string
	threads    []*thread
	voting     map[*Client]*Client // voter -> target, nil when no session

	voteTimer    *time.Timer
	timerGen     int
	lastVoteCall time.Time
}

type thread struct {
	id       int
	asker    string
	question string
	receiver string
	msgs     []protocol.ThreadMsg
}

func (t *thread) rep() protocol.ThreadRep {
	msgs := t.msgs
	if msgs == nil {
		msgs = []protocol.ThreadMsg{}
	}
	return protocol.ThreadRep{
		ID:       t.id,
		Asker:    t.asker,
		Question: t.question,
		Receiver: t.receiver,
		Msgs:     msgs,
	}
}

// formGame validates the staged lobby and, on success, replaces it with a
// running round: topic broadcast, secret imposter assignment, private role
// delivery, and the automatic vote timer. Validation failures leave the
// lobby untouched.
func (r *Room) formGame() error {
	staged := r.lobby.order
	if len(staged) < minPlayers {
		return ErrTooFewPlayers
	}
	if len(staged) <= r.settings.NumImposter {
		return ErrTooManyImposters
	}

	pair := r.words.Random(r.rng)
	g := &Game{
		settings: r.settings,
		players:  append([]*Client(nil), staged...),
		initial:  clientNames(staged),
		topic:    pair.Topic,
		word:     pair.Word,
	}
	r.game = g
	r.lobby = nil

	r.gameBroadcast(protocol.GameStart{GameTopic: g.topic})

	// Rejection-sample distinct imposters.
	for len(g.imposters) < g.settings.NumImposter {
		candidate := g.players[r.rng.Intn(len(g.players))]
		if !g.isImposter(candidate) {
			g.imposters = append(g.imposters, candidate)
		}
	}

	for _, p := range g.players {
		if g.isImposter(p) {
			r.send(p, protocol.GameRole{Text: nil})
		} else {
			word := g.word
			r.send(p, protocol.GameRole{Text: &word})
		}
	}
	impostersMsg := protocol.GameImposters{Imposters: g.imposterNames()}
	for _, imp := range g.imposters {
		r.send(imp, impostersMsg)
	}

	r.armVoteTimer()
	metrics.GamesStarted.Inc()
	r.log.Infow("game started",
		"topic", g.topic,
		"players", len(g.players),
		"imposters", len(g.imposters),
	)
	return nil
}

func (r *Room) armVoteTimer() {
	g := r.game
	g.timerGen++
	gen := g.timerGen
	interval := time.Duration(g.settings.VoteInterval) * time.Second
	g.voteTimer = time.AfterFunc(interval, func() {
		select {
		case r.inbox <- voteTimerFired{gen: gen}:
		case <-r.ctx.Done():
		}
	})
	g.lastVoteCall = time.Now()
}

// stopVoteTimer bumps the generation so a fire already in flight is
// recognized as stale even when Stop loses the race.
func (r *Room) stopVoteTimer() {
	g := r.game
	g.timerGen++
	if g.voteTimer != nil {
		g.voteTimer.Stop()
	}
}

func (r *Room) handleVoteTimer(gen int) {
	g := r.game
	if g == nil || gen != g.timerGen || g.voting != nil {
		return
	}
	r.startVotingSession()
}

func (r *Room) handleVoteSessionReq() {
	g := r.game
	if g == nil || g.voting != nil {
		return
	}
	r.startVotingSession()
}

func (r *Room) startVotingSession() {
	g := r.game
	r.stopVoteTimer()
	g.voting = make(map[*Client]*Client)
	r.gameBroadcast(protocol.VoteSessionStart{})
	r.broadcastVoteInfo()
}

func (r *Room) handleVote(c *Client, voteFor string) {
	g := r.game
	if g == nil || g.voting == nil {
		return
	}
	if !g.hasPlayer(c) {
		r.log.Debugw("ignoring vote from non-player", "name", c.Name)
		return
	}
	target := g.playerByName(voteFor)
	if target == nil {
		r.log.Debugw("ignoring vote for unknown player", "voteFor", voteFor)
		return
	}
	g.voting[c] = target
	metrics.VotesCast.Inc()
	r.broadcastVoteInfo()
	if len(g.voting) == len(g.players) {
		r.resolveVoting()
	}
}

// resolveVoting tallies the completed session. The strictly highest target
// is eliminated; a tie at the top eliminates no one. Either way the session
// is over afterwards.
func (r *Room) resolveVoting() {
	g := r.game
	tally := make(map[*Client]int)
	for _, target := range g.voting {
		tally[target]++
	}
	g.voting = nil

	var best *Client
	bestCount := -1
	tied := false
	for target, n := range tally {
		if n > bestCount {
			best, bestCount, tied = target, n, false
		} else if n == bestCount {
			tied = true
		}
	}

	if tied || best == nil {
		r.gameBroadcast(protocol.VoteRes{VotedOut: nil})
		// Tie: voting stays manual until the next elimination re-arms the
		// timer.
		return
	}

	// best must still be an active player; a tally winner who is gone from
	// the roster ends the session with no elimination.
	if !g.removePlayer(best) {
		r.gameBroadcast(protocol.VoteRes{VotedOut: nil})
		return
	}
	g.spectators = append(g.spectators, best)
	name := best.Name
	r.gameBroadcast(protocol.VoteRes{VotedOut: &name})
	r.log.Infow("player voted out", "name", name, "votes", bestCount)

	if r.checkImpostersGone() {
		return
	}
	r.updateStateAll()
	r.armVoteTimer()
}

func (r *Room) broadcastVoteInfo() {
	r.gameBroadcast(protocol.VoteInfo{VotingRecords: r.game.votingRecords()})
}

func (r *Room) handleImposterGuess(c *Client, guess string) {
	g := r.game
	if g == nil || !g.hasPlayer(c) || !g.isImposter(c) {
		return
	}
	if strings.EqualFold(guess, g.word) {
		r.log.Infow("imposter guessed the word", "name", c.Name)
		r.endGame(true)
	}
}

func (r *Room) handleThreadCreate(c *Client, question, receiver string) {
	g := r.game
	if g == nil || c.Name == "" {
		return
	}
	id := len(g.threads)
	g.threads = append(g.threads, &thread{
		id:       id,
		asker:    c.Name,
		question: question,
		receiver: receiver,
	})
	r.gameBroadcast(protocol.NewThread{
		ThreadID: id,
		Asker:    c.Name,
		Question: question,
		Receiver: receiver,
	})
}

func (r *Room) handleThreadSend(c *Client, id int, text string) {
	g := r.game
	if g == nil || c.Name == "" {
		return
	}
	if id < 0 || id >= len(g.threads) {
		r.send(c, protocol.BadRequest{})
		return
	}
	t := g.threads[id]
	t.msgs = append(t.msgs, protocol.ThreadMsg{UserName: c.Name, Text: text})
	r.gameBroadcast(protocol.NewMsg{ThreadID: id, Text: text, User: c.Name})
}

// checkImpostersGone ends the round as a non-imposter win once no active
// player is an imposter. Reports whether the round ended.
func (r *Room) checkImpostersGone() bool {
	g := r.game
	for _, p := range g.players {
		if g.isImposter(p) {
			return false
		}
	}
	r.endGame(false)
	return true
}

// updateStateAll refreshes every participant's snapshot with role-scoped
// visibility: imposters see the imposter list, regular players see the
// word, spectators see both.
func (r *Room) updateStateAll() {
	g := r.game
	imposterView := protocol.Encode(g.stateView(false, true))
	playerView := protocol.Encode(g.stateView(true, false))
	spectatorView := protocol.Encode(g.stateView(true, true))
	for _, p := range g.players {
		if g.isImposter(p) {
			r.push(p, imposterView)
		} else {
			r.push(p, playerView)
		}
	}
	for _, s := range g.spectators {
		r.push(s, spectatorView)
	}
}

// introduceSpectator catches a mid-round joiner up: full-visibility state,
// the whole thread history, and the in-flight tally if a vote is open.
func (r *Room) introduceSpectator(c *Client) {
	g := r.game
	r.send(c, g.stateView(true, true))

	reps := make([]protocol.ThreadRep, 0, len(g.threads))
	for _, t := range g.threads {
		reps = append(reps, t.rep())
	}
	r.send(c, protocol.ThreadSet{ThreadInfo: reps})

	if g.voting != nil {
		r.send(c, protocol.VoteInfo{VotingRecords: g.votingRecords()})
	}
}

// endGame broadcasts the full reveal, then replaces the round with a fresh
// lobby holding every remaining participant, all not-ready.
func (r *Room) endGame(imposterWin bool) {
	g := r.game
	r.stopVoteTimer()
	r.gameBroadcast(protocol.GameEnd{
		ImposterWin: imposterWin,
		GameTopic:   g.topic,
		GameWord:    g.word,
		Players:     g.initial,
		Imposters:   g.imposterNames(),
	})

	lobby := newLobbyState()
	for _, c := range g.players {
		lobby.add(c)
	}
	for _, c := range g.spectators {
		lobby.add(c)
	}
	r.game = nil
	r.lobby = lobby
	r.broadcastLobby()
	r.log.Infow("round ended", "imposterWin", imposterWin, "topic", g.topic)
}

func (g *Game) stateView(showWord, showImposters bool) protocol.GameState {
	var word *string
	if showWord {
		w := g.word
		word = &w
	}
	var imposters []string
	if showImposters {
		imposters = g.imposterNames()
	}
	return protocol.GameState{
		GameTopic: g.topic,
		GameWord:  word,
		Players:   g.playerNames(),
		Imposters: imposters,
	}
}

func (g *Game) hasName(name string) bool {
	for _, c := range g.players {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	for _, c := range g.spectators {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (g *Game) hasPlayer(c *Client) bool {
	for _, p := range g.players {
		if p == c {
			return true
		}
	}
	return false
}

func (g *Game) playerByName(name string) *Client {
	for _, p := range g.players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (g *Game) isImposter(c *Client) bool {
	for _, imp := range g.imposters {
		if imp == c {
			return true
		}
	}
	return false
}

func (g *Game) removePlayer(c *Client) bool {
	for i, p := range g.players {
		if p == c {
			g.players = append(g.players[:i], g.players[i+1:]...)
			return true
		}
	}
	return false
}

func (g *Game) removeSpectator(c *Client) bool {
	for i, s := range g.spectators {
		if s == c {
			g.spectators = append(g.spectators[:i], g.spectators[i+1:]...)
			return true
		}
	}
	return false
}

func (g *Game) removeImposter(c *Client) {
	for i, imp := range g.imposters {
		if imp == c {
			g.imposters = append(g.imposters[:i], g.imposters[i+1:]...)
			return
		}
	}
}

func (g *Game) playerNames() []string {
	return clientNames(g.players)
}

func (g *Game) imposterNames() []string {
	return clientNames(g.imposters)
}

func (g *Game) votingRecords() map[string]string {
	records := make(map[string]string, len(g.voting))
	for voter, target := range g.voting {
		records[voter.Name] = target.Name
	}
	return records
}
