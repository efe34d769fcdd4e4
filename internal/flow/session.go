package flow

import (
	"fmt"

	"runpay/internal/core"
)

// Completion is what a finished flow asks the console to apply.
type Completion struct {
	Flow       core.IntegrationID
	Role       string
	Members    []core.Employee
	Automation Template
	Prompt     string
}

// Session tracks one running flow. It is not safe for concurrent use; the
// console serializes access.
type Session struct {
	def  Definition
	next int
}

// Start begins def and returns its opening step.
func Start(def Definition) (*Session, Step) {
	return &Session{def: def, next: 1}, def.Steps[0]
}

func (s *Session) Flow() core.IntegrationID { return s.def.ID }

// Step is the zero-based index of the next step to deliver.
func (s *Session) Step() int { return s.next }

func (s *Session) Done() bool { return s.next >= len(s.def.Steps) }

// Advance delivers the next step in reply to input. On the final step it
// also returns the completion, with members' e-mails taken from input in
// order.
func (s *Session) Advance(input string) (Step, *Completion, error) {
	if s.Done() {
		return Step{}, nil, fmt.Errorf("%w: %s already finished", core.ErrUnknownFlow, s.def.ID)
	}
	step := s.def.Steps[s.next]
	s.next++
	if !step.Final {
		return step, nil, nil
	}
	s.next = len(s.def.Steps)

	emails := ExtractEmails(input)
	members := make([]core.Employee, len(s.def.Members))
	for i, name := range s.def.Members {
		members[i] = core.Employee{Name: name, Role: s.def.Role, Balance: StartingBalance(name)}
		if i < len(emails) {
			members[i].Email = emails[i]
		}
	}
	return step, &Completion{
		Flow:       s.def.ID,
		Role:       s.def.Role,
		Members:    members,
		Automation: s.def.Automation,
		Prompt:     s.def.Prompt,
	}, nil
}
