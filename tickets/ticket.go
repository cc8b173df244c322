package tickets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidTicket is returned for tickets that can't be written as a line
// of the ticket file.
var ErrInvalidTicket = errors.New("invalid ticket")

// Ticket is one credential entry: a secret for a user on a server.
type Ticket struct {
	ServerAddress string
	UserName      string
	Value         string
}

// NormalizeAddress adds the "localhost:" host to an address that is only a
// port.
func NormalizeAddress(address string) string {
	if address != "" && !strings.Contains(address, ":") {
		return "localhost:" + address
	}
	return address
}

// Key is the "address=user" prefix the ticket is stored under.
func (t Ticket) Key() string {
	return NormalizeAddress(t.ServerAddress) + "=" + t.UserName
}

// Line renders the ticket file line, without a line terminator.
func (t Ticket) Line() string {
	return t.Key() + ":" + t.Value
}

// Matches reports whether the ticket is for the server and user. A blank
// user matches any user.
func (t Ticket) Matches(serverAddress, userName string) bool {
	if NormalizeAddress(t.ServerAddress) != NormalizeAddress(serverAddress) {
		return false
	}
	return userName == "" || t.UserName == userName
}

// String hides the secret.
func (t Ticket) String() string {
	return t.Key()
}

// Validate checks the ticket can be written and read back unchanged. A blank
// Value is valid and means "remove".
func (t Ticket) Validate() error {
	switch {
	case strings.TrimSpace(t.ServerAddress) == "":
		return fmt.Errorf("%w: blank server address", ErrInvalidTicket)
	case strings.TrimSpace(t.UserName) == "":
		return fmt.Errorf("%w: blank user name", ErrInvalidTicket)
	case strings.Contains(t.ServerAddress, "="):
		return fmt.Errorf("%w: server address %q contains '='", ErrInvalidTicket, t.ServerAddress)
	case strings.Contains(t.UserName, ":"):
		return fmt.Errorf("%w: user name %q contains ':'", ErrInvalidTicket, t.UserName)
	case strings.ContainsAny(t.ServerAddress+t.UserName+t.Value, "\r\n"):
		return fmt.Errorf("%w: line break in %s", ErrInvalidTicket, t.Key())
	}
	return nil
}

// ParseLine parses "address=user:value". Lines without '=', without ':'
// after the '=', or with nothing after that ':' are rejected.
func ParseLine(line string) (Ticket, bool) {
	line = strings.TrimRight(line, "\r")
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return Ticket{}, false
	}
	rest := line[eq+1:]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 || colon == len(rest)-1 {
		return Ticket{}, false
	}
	return Ticket{
		ServerAddress: line[:eq],
		UserName:      rest[:colon],
		Value:         rest[colon+1:],
	}, true
}

// Parse reads every well-formed ticket line, skipping malformed ones.
func Parse(r io.Reader) ([]Ticket, error) {
	var ret []Ticket
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		if t, ok := ParseLine(scanner.Text()); ok {
			ret = append(ret, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func find(tickets []Ticket, serverAddress, userName string) *Ticket {
	for _, t := range tickets {
		if t.Matches(serverAddress, userName) {
			found := t
			return &found
		}
	}
	return nil
}
