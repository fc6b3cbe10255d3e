package panel

import (
	"strconv"
	"strings"

	markup "github.com/aerlaedt-netizen/eviknumber2/lib/bot-markup"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

// Command is one dispatcher intent, parsed once at the bot boundary.
type Command interface {
	command()
}

type (
	Help           struct{}
	Home           struct{}
	ShowDrivers    struct{}
	SetDrivers     struct{ N int }
	AddDrivers     struct{ N int }
	SubDrivers     struct{ N int }
	AskDriverCount struct{}
	StepDrivers    struct{ Delta int }
	CancelInput    struct{}
	ListRequests   struct{ Limit int }
	ShowRequest    struct{ ID int64 }
	SetStatus      struct {
		ID     int64
		Status repository.Status
	}
	// Invalid carries the reply for input that could not be parsed.
	Invalid struct{ Reply string }
)

func (Help) command()           {}
func (Home) command()           {}
func (ShowDrivers) command()    {}
func (SetDrivers) command()     {}
func (AddDrivers) command()     {}
func (SubDrivers) command()     {}
func (AskDriverCount) command() {}
func (StepDrivers) command()    {}
func (CancelInput) command()    {}
func (ListRequests) command()   {}
func (ShowRequest) command()    {}
func (SetStatus) command()      {}
func (Invalid) command()        {}

const (
	usageRequests  = "Использование: /requests [количество], например /requests 20"
	usageRequest   = "Использование: /request <id>"
	usageSetStatus = "Использование: /setstatus <id> <new|in_work|done|cancel>"
	badID          = "ID должен быть числом."
	badStatus      = "Статус должен быть: new, in_work, done, cancel"
)

// Commands lists the slash commands ParseCommand understands.
var Commands = []string{
	"/help", "/panel", "/cancel",
	"/drivers", "/setdrivers", "/adddrivers", "/deldrivers",
	"/requests", "/request", "/setstatus",
}

// ParseCommand turns "/name args..." into a Command. ok is false for names it does not know.
func ParseCommand(name string, args []string) (cmd Command, ok bool) {
	args = nonEmpty(args)
	switch strings.ToLower(name) {
	case "/help":
		return Help{}, true
	case "/panel":
		return Home{}, true
	case "/cancel":
		return CancelInput{}, true
	case "/drivers":
		return ShowDrivers{}, true
	case "/setdrivers", "/adddrivers", "/deldrivers":
		return parseDriverCommand(strings.ToLower(name), args), true
	case "/requests":
		if len(args) == 0 {
			return ListRequests{Limit: repository.DefaultListLimit}, true
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return Invalid{usageRequests}, true
		}
		return ListRequests{Limit: repository.ClampLimit(n)}, true
	case "/request":
		if len(args) == 0 {
			return Invalid{usageRequest}, true
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return Invalid{badID}, true
		}
		return ShowRequest{ID: id}, true
	case "/setstatus":
		if len(args) != 2 {
			return Invalid{usageSetStatus}, true
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return Invalid{badID}, true
		}
		status, err := repository.ParseStatus(args[1])
		if err != nil {
			return Invalid{badStatus}, true
		}
		return SetStatus{ID: id, Status: status}, true
	}
	return nil, false
}

func parseDriverCommand(name string, args []string) Command {
	usage := "Использование: " + name + " <число>"
	if len(args) == 0 {
		return Invalid{usage}
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return Invalid{usage}
	}
	switch name {
	case "/setdrivers":
		return SetDrivers{N: n}
	case "/adddrivers":
		return AddDrivers{N: n}
	default:
		return SubDrivers{N: n}
	}
}

// ParseCallback turns a panel button press into a Command. data is the button payload without the unique.
func ParseCallback(unique, data string) (Command, bool) {
	var args []string
	if data != "" {
		args = strings.Split(data, "|")
	}
	switch unique {
	case markup.PanelHomeBtn.Unique:
		return Home{}, true
	case markup.PanelAskCountBtn.Unique:
		return AskDriverCount{}, true
	case markup.PanelIncBtn.Unique:
		return StepDrivers{Delta: 1}, true
	case markup.PanelDecBtn.Unique:
		return StepDrivers{Delta: -1}, true
	case markup.PanelCancelBtn.Unique:
		return CancelInput{}, true
	case markup.PanelRequestsBtn.Unique:
		limit := repository.DefaultListLimit
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && allowedListLimit(n) {
				limit = n
			}
		}
		return ListRequests{Limit: limit}, true
	case markup.PanelRequestBtn.Unique:
		if len(args) != 1 {
			return nil, false
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, false
		}
		return ShowRequest{ID: id}, true
	case markup.PanelSetStatusBtn.Unique:
		if len(args) != 2 {
			return nil, false
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, false
		}
		status, err := repository.ParseStatus(args[1])
		if err != nil {
			return nil, false
		}
		return SetStatus{ID: id, Status: status}, true
	}
	return nil, false
}

func allowedListLimit(n int) bool {
	for _, l := range markup.PanelListLimits {
		if l == n {
			return true
		}
	}
	return false
}

func nonEmpty(args []string) []string {
	out := args[:0:0]
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
