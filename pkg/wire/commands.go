package wire

// Client-to-server commands.
const (
	CmdLogin       = "LOGIN"
	CmdLogout      = "LOGOUT"
	CmdMyScore     = "MY_SCORE"
	CmdHighscore   = "HIGHSCORE"
	CmdLogged      = "LOGGED"
	CmdGetQuestion = "GET_QUESTION"
	CmdSendAnswer  = "SEND_ANSWER"
)

// Server-to-client commands.
const (
	CmdError         = "ERROR"
	CmdLoginOk       = "LOGIN_OK"
	CmdYourScore     = "YOUR_SCORE"
	CmdAllScore      = "ALL_SCORE"
	CmdLoggedAnswer  = "LOGGED_ANSWER"
	CmdYourQuestion  = "YOUR_QUESTION"
	CmdNoQuestions   = "NO_QUESTIONS"
	CmdCorrectAnswer = "CORRECT_ANSWER"
	CmdWrongAnswer   = "WRONG_ANSWER"
)

var knownCommands = map[string]struct{}{
	CmdLogin:         {},
	CmdLogout:        {},
	CmdMyScore:       {},
	CmdHighscore:     {},
	CmdLogged:        {},
	CmdGetQuestion:   {},
	CmdSendAnswer:    {},
	CmdError:         {},
	CmdLoginOk:       {},
	CmdYourScore:     {},
	CmdAllScore:      {},
	CmdLoggedAnswer:  {},
	CmdYourQuestion:  {},
	CmdNoQuestions:   {},
	CmdCorrectAnswer: {},
	CmdWrongAnswer:   {},
}

// IsKnownCommand reports whether cmd belongs to the protocol vocabulary
// shared by client and server.
func IsKnownCommand(cmd string) bool {
	_, has := knownCommands[cmd]
	return has
}
