// Package protocol defines the tagged JSON envelope exchanged with clients.
// Every frame is an object whose "type" field selects the variant; the
// remaining fields belong to that variant.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown message type")

// Inbound tags.
const (
	TagJoinRq         = "join_rq"
	TagUpdSettings    = "upd_settings"
	TagLobbyReadiness = "lobby_readiness_data"
	TagThreadCreate   = "thread_create"
	TagThreadSend     = "thread_send"
	TagVoteSessionReq = "vote_session_req"
	TagVote           = "vote"
	TagImposterGuess  = "imposter_guess"
)

// Outbound tags. Note vote_session_req is reused: as an outbound frame it
// announces that a voting session has started.
const (
	TagServerVerification = "server_verification"
	TagNameValidity       = "name_validity"
	TagLobbyData          = "lobby_data"
	TagNewSettings        = "new_settings"
	TagGameStart          = "game_start"
	TagGameNotValid       = "game_not_valid"
	TagGameRole           = "game_role"
	TagGameImposters      = "game_imposters"
	TagNewThread          = "new_thread"
	TagNewMsg             = "new_msg"
	TagThreadSet          = "thread_set"
	TagVoteInfo           = "vote_info"
	TagVoteRes            = "vote_res"
	TagGameState          = "game_state"
	TagGameEnd            = "game_end"
	TagServerMsg          = "server_msg"
	TagBadRequest         = "bad_request"
)

// Settings is the process-wide game configuration. It replaces the prior
// value entirely on update and applies to the next game constructed.
type Settings struct {
	NumImposter  int `json:"numImposter"`
	VoteInterval int `json:"voteInterval"` // seconds
}

type Incoming interface{ isIncoming() }

type JoinRq struct {
	Name string `json:"name"`
}

type UpdSettings struct {
	Settings Settings `json:"settings"`
}

type LobbyReadiness struct {
	NewReadiness bool `json:"newReadiness"`
}

type ThreadCreate struct {
	Question string `json:"question"`
	User     string `json:"user"`
}

type ThreadSend struct {
	ThreadID int    `json:"threadId"`
	Text     string `json:"text"`
}

type VoteSessionReq struct{}

type Vote struct {
	VoteFor string `json:"voteFor"`
}

type ImposterGuess struct {
	Guess string `json:"guess"`
}

func (JoinRq) isIncoming()         {}
func (UpdSettings) isIncoming()    {}
func (LobbyReadiness) isIncoming() {}
func (ThreadCreate) isIncoming()   {}
func (ThreadSend) isIncoming()     {}
func (VoteSessionReq) isIncoming() {}
func (Vote) isIncoming()           {}
func (ImposterGuess) isIncoming()  {}

// Decode parses a raw text frame into its typed variant. Unknown tags and
// undecodable payloads yield an error; callers drop those frames.
func Decode(data []byte) (Incoming, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case TagJoinRq:
		var m JoinRq
		return m, json.Unmarshal(data, &m)
	case TagUpdSettings:
		var m UpdSettings
		return m, json.Unmarshal(data, &m)
	case TagLobbyReadiness:
		var m LobbyReadiness
		return m, json.Unmarshal(data, &m)
	case TagThreadCreate:
		var m ThreadCreate
		return m, json.Unmarshal(data, &m)
	case TagThreadSend:
		var m ThreadSend
		return m, json.Unmarshal(data, &m)
	case TagVoteSessionReq:
		return VoteSessionReq{}, nil
	case TagVote:
		var m Vote
		return m, json.Unmarshal(data, &m)
	case TagImposterGuess:
		var m ImposterGuess
		return m, json.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
}

// Outgoing is a server-to-client variant. Tag reports the wire tag that
// Encode injects into the marshalled object.
type Outgoing interface{ Tag() string }

type ServerVerification struct{}

type NameValidity struct {
	IsValid bool `json:"isValid"`
}

type LobbyData struct {
	Readiness map[string]bool `json:"readiness"`
}

type NewSettings struct {
	Settings Settings `json:"settings"`
}

type GameStart struct {
	GameTopic string `json:"gameTopic"`
}

type GameNotValid struct{}

// GameRole privately tells a player their role: the secret word for a
// regular player, null for an imposter.
type GameRole struct {
	Text *string `json:"text"`
}

type GameImposters struct {
	Imposters []string `json:"imposters"`
}

type NewThread struct {
	ThreadID int    `json:"threadId"`
	Asker    string `json:"asker"`
	Question string `json:"question"`
	Receiver string `json:"receiver"`
}

type NewMsg struct {
	ThreadID int    `json:"threadId"`
	Text     string `json:"text"`
	User     string `json:"user"`
}

type ThreadMsg struct {
	UserName string `json:"userName"`
	Text     string `json:"text"`
}

type ThreadRep struct {
	ID       int         `json:"id"`
	Asker    string      `json:"asker"`
	Question string      `json:"question"`
	Receiver string      `json:"receiver"`
	Msgs     []ThreadMsg `json:"msgs"`
}

type ThreadSet struct {
	ThreadInfo []ThreadRep `json:"threadInfo"`
}

// VoteSessionStart announces a new voting session; it shares its tag with
// the inbound session request.
type VoteSessionStart struct{}

type VoteInfo struct {
	VotingRecords map[string]string `json:"votingRecords"`
}

type VoteRes struct {
	VotedOut *string `json:"votedOut"`
}

// GameState is a role-visibility-filtered snapshot: GameWord is null for
// imposters, Imposters is null for regular players.
type GameState struct {
	GameTopic string   `json:"gameTopic"`
	GameWord  *string  `json:"gameWord"`
	Players   []string `json:"players"`
	Imposters []string `json:"imposters"`
}

type GameEnd struct {
	ImposterWin bool     `json:"imposterWin"`
	GameTopic   string   `json:"gameTopic"`
	GameWord    string   `json:"gameWord"`
	Players     []string `json:"players"`
	Imposters   []string `json:"imposters"`
}

type ServerMsg struct {
	Data string `json:"data"`
}

type BadRequest struct{}

func (ServerVerification) Tag() string { return TagServerVerification }
func (NameValidity) Tag() string       { return TagNameValidity }
func (LobbyData) Tag() string          { return TagLobbyData }
func (NewSettings) Tag() string        { return TagNewSettings }
func (GameStart) Tag() string          { return TagGameStart }
func (GameNotValid) Tag() string       { return TagGameNotValid }
func (GameRole) Tag() string           { return TagGameRole }
func (GameImposters) Tag() string      { return TagGameImposters }
func (NewThread) Tag() string          { return TagNewThread }
func (NewMsg) Tag() string             { return TagNewMsg }
func (ThreadSet) Tag() string          { return TagThreadSet }
func (VoteSessionStart) Tag() string   { return TagVoteSessionReq }
func (VoteInfo) Tag() string           { return TagVoteInfo }
func (VoteRes) Tag() string            { return TagVoteRes }
func (GameState) Tag() string          { return TagGameState }
func (GameEnd) Tag() string            { return TagGameEnd }
func (ServerMsg) Tag() string          { return TagServerMsg }
func (BadRequest) Tag() string         { return TagBadRequest }

// Encode marshals an outbound variant with its tag spliced in as the
// leading "type" field.
func Encode(o Outgoing) []byte {
	body, _ := json.Marshal(o)
	head := `{"type":"` + o.Tag() + `"`
	if len(body) <= 2 {
		return []byte(head + "}")
	}
	return append([]byte(head+","), body[1:]...)
}
