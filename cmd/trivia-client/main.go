// Main package for the interactive trivia client: a line-based menu that
// speaks the frame protocol over one TCP connection.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/quizwire/trivia-server/pkg/wire"
)

type client struct {
	conn  net.Conn
	stdin *bufio.Scanner
}

func main() {
	addr := flag.String("addr", "127.0.0.1:5678", "Trivia server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	c := &client{conn: conn, stdin: bufio.NewScanner(os.Stdin)}

	if !c.login() {
		return
	}

	fmt.Println()
	printMenu()
	for {
		fmt.Println()
		operation := strings.ToUpper(c.prompt("Type command here...\n"))
		switch operation {
		case "LOGOUT":
			c.logout()
			return
		case "MENU":
			printMenu()
		case "SCORE":
			c.showScore()
		case "HIGHSCORE":
			c.showHighscore()
		case "LOGGED":
			c.showLoggedUsers()
		case "PLAY":
			c.playQuestion()
		default:
			fmt.Println("No such command!")
		}
	}
}

func printMenu() {
	fmt.Println("All commands:\n" +
		"LOGOUT ------- logs out the user\n" +
		"MENU --------- lists all commands\n" +
		"SCORE -------- prints current score of user\n" +
		"HIGHSCORE ---- prints a table of high scores\n" +
		"LOGGED ------- prints all connected users\n" +
		"PLAY --------- get a question and choose the answer")
}

func (c *client) prompt(text string) string {
	fmt.Print(text)
	if !c.stdin.Scan() {
		fmt.Println()
		c.logout()
		os.Exit(0)
	}
	return c.stdin.Text()
}

// exchange sends one request frame and waits for the single reply the server
// owes every command.
func (c *client) exchange(command, payload string) (wire.Message, error) {
	frame, err := wire.Encode(command, []byte(payload))
	if err != nil {
		return wire.Message{}, err
	}
	if _, err := c.conn.Write(frame); err != nil {
		return wire.Message{}, err
	}
	return wire.ReadFrame(c.conn)
}

func (c *client) exchangeOrExit(command, payload string) wire.Message {
	msg, err := c.exchange(command, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lost connection to server: %v\n", err)
		os.Exit(1)
	}
	return msg
}

// login loops until the server accepts a username/password pair.
func (c *client) login() bool {
	for {
		username := c.prompt("Enter username:\n")
		password := c.prompt("Enter password:\n")
		if wire.ContainsDelimiter(username) {
			fmt.Println("Username can't contain | nor #. Please try again:")
			continue
		}
		if wire.ContainsDelimiter(password) {
			fmt.Println("Password can't contain | nor #. Please try again:")
			continue
		}

		reply := c.exchangeOrExit(wire.CmdLogin, wire.JoinFields(username, password))
		if reply.Command == wire.CmdLoginOk {
			fmt.Println("Login successful!")
			return true
		}
		fmt.Printf("%s. Please try again:\n\n", reply.Payload)
	}
}

func (c *client) logout() {
	// Fire-and-forget: the server answers a logout by closing the socket.
	if frame, err := wire.Encode(wire.CmdLogout, nil); err == nil {
		c.conn.Write(frame)
	}
	fmt.Println("Logout successful!")
}

func (c *client) showScore() {
	reply := c.exchangeOrExit(wire.CmdMyScore, "")
	if reply.Command != wire.CmdYourScore {
		fmt.Printf("Server error: %s\n", reply.Payload)
		return
	}
	fmt.Printf("Your score is %s\n", reply.Payload)
}

func (c *client) showHighscore() {
	reply := c.exchangeOrExit(wire.CmdHighscore, "")
	if reply.Command != wire.CmdAllScore {
		fmt.Printf("Server error: %s\n", reply.Payload)
		return
	}
	fmt.Printf("High-score table:\n%s\n", reply.Payload)
}

func (c *client) showLoggedUsers() {
	reply := c.exchangeOrExit(wire.CmdLogged, "")
	if reply.Command != wire.CmdLoggedAnswer {
		fmt.Printf("Server error: %s\n", reply.Payload)
		return
	}
	fmt.Printf("Logged users:\n%s\n", reply.Payload)
}

func (c *client) playQuestion() {
	reply := c.exchangeOrExit(wire.CmdGetQuestion, "")
	if reply.Command == wire.CmdNoQuestions {
		fmt.Println("You are so smart... or not. No questions left!")
		return
	}
	if reply.Command != wire.CmdYourQuestion {
		fmt.Printf("Server error: %s\n", reply.Payload)
		return
	}

	fields, err := wire.SplitFields(string(reply.Payload), 6)
	if err != nil {
		fmt.Printf("Server sent an unreadable question: %v\n", err)
		return
	}
	questionId, question, answers := fields[0], fields[1], fields[2:]

	fmt.Printf("Question: %s\n", question)
	for i, answer := range answers {
		fmt.Printf("\t%d: %s\n", i+1, answer)
	}

	var choice int
	for {
		answer := c.prompt("Enter the answer (1-4): ")
		if len(answer) == 1 && answer[0] >= '1' && answer[0] <= '4' {
			choice = int(answer[0] - '1')
			break
		}
		fmt.Println("Invalid answer!")
	}

	verdict := c.exchangeOrExit(wire.CmdSendAnswer, wire.JoinFields(questionId, answers[choice]))
	switch verdict.Command {
	case wire.CmdCorrectAnswer:
		fmt.Println("U R RIGHT!!!")
	case wire.CmdWrongAnswer:
		fmt.Printf("Wrong! The answer was %s\n", verdict.Payload)
	default:
		fmt.Printf("Server error: %s\n", verdict.Payload)
	}
}
