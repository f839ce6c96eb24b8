// Package game holds the trivia command handlers. Each handler is a pure
// mapping from (session state, stores, request payload) to exactly one reply
// message plus an optional store mutation; all socket work stays in the
// server package.
package game

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/quizwire/trivia-server/internal/session"
	"github.com/quizwire/trivia-server/internal/store"
	"github.com/quizwire/trivia-server/pkg/wire"
)

// PointsPerQuestion is the fixed score increment for a correct answer.
const PointsPerQuestion = 5

const (
	reasonLoginFirst      = "Login first before using this command"
	reasonUnknownCommand  = "Command does not exist"
	reasonUnknownUsername = "Username does not exist"
	reasonWrongPassword   = "Password does not match"
	reasonBadLoginData    = "Login data is malformed"
	reasonBadAnswerData   = "Answer data is malformed"
	reasonUnknownQuestion = "Question id does not exist"
)

// State is the mutable game state, exclusively owned by the server's dispatch
// goroutine. Handlers never lock: single-writer by construction.
type State struct {
	Users    map[string]*store.User
	Bank     *store.Bank
	Sessions *session.Table
	Store    store.UserStore
	Rand     *rand.Rand
}

// Result is a handler verdict: the reply to enqueue (nil for logout), whether
// the connection should be torn down, and any non-fatal store error worth
// logging.
type Result struct {
	Reply      *wire.Message
	Disconnect bool
	StoreErr   error
}

func reply(command string, payload string) *wire.Message {
	return &wire.Message{Command: command, Payload: []byte(payload)}
}

func errorReply(reason string) *wire.Message {
	return reply(wire.CmdError, reason)
}

// Dispatch routes one decoded message for the given connection. An
// unauthenticated session may only log in; anything else is answered with an
// error frame and the connection stays open.
func (g *State) Dispatch(id session.ConnId, msg wire.Message) Result {
	if !g.Sessions.IsAuthenticated(id) {
		if msg.Command == wire.CmdLogin {
			return Result{Reply: g.handleLogin(id, msg.Payload)}
		}
		return Result{Reply: errorReply(reasonLoginFirst)}
	}

	username, _ := g.Sessions.Username(id)

	switch msg.Command {
	case wire.CmdLogout:
		return Result{Disconnect: true}
	case wire.CmdMyScore:
		return Result{Reply: g.handleMyScore(username)}
	case wire.CmdHighscore:
		return Result{Reply: g.handleHighscore()}
	case wire.CmdLogged:
		return Result{Reply: g.handleLogged()}
	case wire.CmdGetQuestion:
		return Result{Reply: g.handleGetQuestion(username)}
	case wire.CmdSendAnswer:
		replyMsg, storeErr := g.handleSendAnswer(username, msg.Payload)
		return Result{Reply: replyMsg, StoreErr: storeErr}
	default:
		// Well-formed frames whose command no handler serves, including a
		// second LOGIN on an authenticated session.
		return Result{Reply: errorReply(reasonUnknownCommand)}
	}
}

func (g *State) handleLogin(id session.ConnId, payload []byte) *wire.Message {
	fields, err := wire.SplitFields(string(payload), 2)
	if err != nil {
		return errorReply(reasonBadLoginData)
	}
	username, password := fields[0], fields[1]

	user, has := g.Users[username]
	if !has {
		return errorReply(reasonUnknownUsername)
	}
	if user.Password != password {
		return errorReply(reasonWrongPassword)
	}

	if err := g.Sessions.Authenticate(id, username); err != nil {
		return errorReply(err.Error())
	}
	return reply(wire.CmdLoginOk, "")
}

func (g *State) handleMyScore(username string) *wire.Message {
	user, has := g.Users[username]
	if !has {
		return errorReply(reasonUnknownUsername)
	}
	return reply(wire.CmdYourScore, strconv.Itoa(user.Score))
}

func (g *State) handleHighscore() *wire.Message {
	top := store.TopScores(g.Users, 5)
	lines := make([]string, 0, len(top))
	for _, entry := range top {
		lines = append(lines, fmt.Sprintf("%s: %d", entry.Username, entry.Score))
	}
	return reply(wire.CmdAllScore, strings.Join(lines, "\n"))
}

func (g *State) handleLogged() *wire.Message {
	return reply(wire.CmdLoggedAnswer, strings.Join(g.Sessions.LoggedUsernames(), ", "))
}

func (g *State) handleGetQuestion(username string) *wire.Message {
	user, has := g.Users[username]
	if !has {
		return errorReply(reasonUnknownUsername)
	}

	question := g.Bank.PickUnasked(user, g.Rand)
	if question == nil {
		return reply(wire.CmdNoQuestions, "")
	}

	fields := append([]string{question.Id, question.Text}, question.Answers(g.Rand)...)
	return reply(wire.CmdYourQuestion, wire.JoinFields(fields...))
}

// handleSendAnswer records the question as asked whether or not the answer is
// right, then persists the user table write-through. An unknown question id is
// a protocol error: reported, nothing recorded, nothing persisted.
func (g *State) handleSendAnswer(username string, payload []byte) (*wire.Message, error) {
	fields, err := wire.SplitFields(string(payload), 2)
	if err != nil {
		return errorReply(reasonBadAnswerData), nil
	}
	questionId, answer := fields[0], fields[1]

	user, has := g.Users[username]
	if !has {
		return errorReply(reasonUnknownUsername), nil
	}
	question, has := g.Bank.Get(questionId)
	if !has {
		return errorReply(reasonUnknownQuestion), nil
	}

	user.MarkAsked(questionId)

	var replyMsg *wire.Message
	if answer == question.CorrectAnswer {
		user.Score += PointsPerQuestion
		replyMsg = reply(wire.CmdCorrectAnswer, "")
	} else {
		replyMsg = reply(wire.CmdWrongAnswer, question.CorrectAnswer)
	}

	return replyMsg, g.Store.Save(g.Users)
}
