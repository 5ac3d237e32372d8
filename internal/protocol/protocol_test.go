package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Incoming
	}{
		{
			name: "join",
			raw:  `{"type":"join_rq","name":"alice"}`,
			want: JoinRq{Name: "alice"},
		},
		{
			name: "settings update",
			raw:  `{"type":"upd_settings","settings":{"numImposter":2,"voteInterval":120}}`,
			want: UpdSettings{Settings: Settings{NumImposter: 2, VoteInterval: 120}},
		},
		{
			name: "readiness",
			raw:  `{"type":"lobby_readiness_data","newReadiness":true}`,
			want: LobbyReadiness{NewReadiness: true},
		},
		{
			name: "thread create",
			raw:  `{"type":"thread_create","question":"where are we?","user":"bob"}`,
			want: ThreadCreate{Question: "where are we?", User: "bob"},
		},
		{
			name: "thread send",
			raw:  `{"type":"thread_send","threadId":3,"text":"hmm"}`,
			want: ThreadSend{ThreadID: 3, Text: "hmm"},
		},
		{
			name: "vote session request",
			raw:  `{"type":"vote_session_req"}`,
			want: VoteSessionReq{},
		},
		{
			name: "vote",
			raw:  `{"type":"vote","voteFor":"carol"}`,
			want: Vote{VoteFor: "carol"},
		},
		{
			name: "imposter guess",
			raw:  `{"type":"imposter_guess","guess":"beach"}`,
			want: ImposterGuess{Guess: "beach"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([]byte(`{"type":"teleport","x":1}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestDecodeMissingTag(t *testing.T) {
	_, err := Decode([]byte(`{"name":"alice"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestDecodeBadJSON(t *testing.T) {
	_, err := Decode([]byte(`not json at all`))
	require.Error(t, err)
}

func TestEncodeInjectsTag(t *testing.T) {
	assert.JSONEq(t, `{"type":"server_verification"}`, string(Encode(ServerVerification{})))
	assert.JSONEq(t, `{"type":"bad_request"}`, string(Encode(BadRequest{})))
	assert.JSONEq(t, `{"type":"name_validity","isValid":true}`, string(Encode(NameValidity{IsValid: true})))
}

func TestEncodeNullableFields(t *testing.T) {
	assert.JSONEq(t, `{"type":"vote_res","votedOut":null}`, string(Encode(VoteRes{})))

	name := "carol"
	assert.JSONEq(t, `{"type":"vote_res","votedOut":"carol"}`, string(Encode(VoteRes{VotedOut: &name})))

	assert.JSONEq(t, `{"type":"game_role","text":null}`, string(Encode(GameRole{})))
}

func TestEncodeGameStateVisibility(t *testing.T) {
	word := "Beach"
	full := Encode(GameState{
		GameTopic: "Places",
		GameWord:  &word,
		Players:   []string{"alice", "bob"},
		Imposters: []string{"bob"},
	})
	assert.JSONEq(t,
		`{"type":"game_state","gameTopic":"Places","gameWord":"Beach","players":["alice","bob"],"imposters":["bob"]}`,
		string(full))

	imposterView := Encode(GameState{
		GameTopic: "Places",
		Players:   []string{"alice", "bob"},
		Imposters: []string{"bob"},
	})
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(imposterView, &decoded))
	assert.Nil(t, decoded["gameWord"])
}

func TestVoteSessionStartReusesRequestTag(t *testing.T) {
	assert.JSONEq(t, `{"type":"vote_session_req"}`, string(Encode(VoteSessionStart{})))
}

func TestDecodeEncodedSettingsRoundTrip(t *testing.T) {
	frame := Encode(NewSettings{Settings: Settings{NumImposter: 2, VoteInterval: 90}})
	var decoded struct {
		Type     string   `json:"type"`
		Settings Settings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, TagNewSettings, decoded.Type)
	assert.Equal(t, Settings{NumImposter: 2, VoteInterval: 90}, decoded.Settings)
}
