// Package flow holds the canned multi-step conversations that set up an
// integration-driven bonus automation.
//
// A flow starts when the submitted text equals one of the canned prompts
// after normalization. Each later submit advances it by one step; the reply
// to the final step is scanned for e-mail addresses, the named team members
// are added and the automation is created.
package flow

import (
	"regexp"
	"strings"

	"runpay/internal/core"
	"runpay/internal/prompt"

	"github.com/shopspring/decimal"
)

type Step struct {
	Message string `json:"message"`
	// Configuring steps are shown behind a "Configuring..." status line.
	Configuring bool `json:"configuring,omitempty"`
	Final       bool `json:"final,omitempty"`
}

// Template describes the automation a completed flow creates.
type Template struct {
	Name        string
	Description string
	Amount      decimal.Decimal
	Processed   decimal.Decimal
}

type Definition struct {
	ID         core.IntegrationID
	Prompt     string
	Role       string
	Members    []string
	Steps      []Step
	Automation Template
}

const successMessage = "Success! Your automation is ready to go! Check it out in Automations."

var definitions = []Definition{
	{
		ID:      core.Linear,
		Prompt:  "Send all my engineers a $15 dollar bonus if they hit at least 80% of their sprint on Linear",
		Role:    "Engineer",
		Members: []string{"Sarah", "James"},
		Steps: []Step{
			{Configuring: true, Message: "Ok! Creating employee accounts for Sarah and James. Are there any engineers you are missing that you want to receive the bonus?"},
			{Message: "OK. Please let me know the emails for Sarah and James so I can email them their Runpay accounts to sign up."},
			{Configuring: true, Final: true, Message: successMessage},
		},
		Automation: Template{
			Name:        "Linear Sprint Completion Bonus",
			Description: "Send $15 when an engineer hits at least 80% of their sprint completion in Linear.",
			Amount:      decimal.NewFromInt(15),
			Processed:   decimal.NewFromInt(90),
		},
	},
	{
		ID:      core.Calendly,
		Prompt:  "Send all my sales people a $2 dollar bonus for every booked demo on Calendly",
		Role:    "Sales",
		Members: []string{"Maya", "Tyler"},
		Steps: []Step{
			{Configuring: true, Message: "Ok! Connecting to Calendly and pulling your event types + team members. Which meeting type should count as a demo: your Product Demo link, or all Calendly events?"},
			{Message: "Got it. I found 2 sales reps booking that event: Maya and Tyler. Do you want to include both?"},
			{Message: "Perfect. Quick confirmation: should the bonus only apply when the invitee email is unique per rep (each rep can earn $2 per unique email), or unique across the whole team (only the first rep to book that email earns it)?"},
			{Message: "OK. Please share the work emails for Maya and Tyler so I can create their Runpay accounts and invite them to sign up."},
			{Configuring: true, Final: true, Message: successMessage},
		},
		Automation: Template{
			Name:        "Calendly Product Demo Bonus",
			Description: "Send $2 for every Product Demo booked with a unique invitee email per rep within the next two weeks.",
			Amount:      decimal.NewFromInt(2),
			Processed:   decimal.NewFromInt(64),
		},
	},
	{
		ID:      core.Intercom,
		Prompt:  "Send all my customer service agents a $5 dollar bonus for every 5 star rating they get on Intercom",
		Role:    "Support",
		Members: []string{"Alex", "Priya"},
		Steps: []Step{
			{Configuring: true, Message: "Ok! Connecting to Intercom and pulling your teammates. I found 2 support agents: Alex and Priya. Do you want to include both?"},
			{Message: "Great. One quick detail: should this trigger on Conversation Ratings (the 1-5 star rating after a chat), or CSAT surveys if you are using those too?"},
			{Message: "Perfect. Do you want to pay out the $5 immediately after each 5-star rating, or batched (daily or weekly) to reduce transaction noise?"},
			{Message: "OK. Please share the work emails for Alex and Priya so I can create their Runpay accounts and email them invitations."},
			{Configuring: true, Final: true, Message: successMessage},
		},
		Automation: Template{
			Name:        "Intercom 5-Star Rating Bonus",
			Description: "Send $5 for every 5-star conversation rating, paid out in daily batches.",
			Amount:      decimal.NewFromInt(5),
			Processed:   decimal.NewFromInt(120),
		},
	},
}

var normalized = func() map[string]int {
	m := make(map[string]int, len(definitions))
	for i, d := range definitions {
		m[prompt.Normalize(d.Prompt)] = i
	}
	return m
}()

// Definitions returns the canned flows in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the flow whose prompt equals text after normalization.
func Lookup(text string) (Definition, bool) {
	i, ok := normalized[prompt.Normalize(text)]
	if !ok {
		return Definition{}, false
	}
	return definitions[i], true
}

// Get returns the flow for an integration.
func Get(id core.IntegrationID) (Definition, bool) {
	for _, d := range definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

var startingBalances = map[string]decimal.Decimal{
	"sarah": decimal.NewFromInt(45),
	"james": decimal.NewFromInt(30),
	"maya":  decimal.NewFromInt(22),
	"tyler": decimal.NewFromInt(18),
	"alex":  decimal.NewFromInt(25),
	"priya": decimal.NewFromInt(19),
}

// StartingBalance is the balance a newly added team member opens with.
// Unknown names start at zero.
func StartingBalance(name string) decimal.Decimal {
	if b, ok := startingBalances[strings.ToLower(strings.TrimSpace(name))]; ok {
		return b
	}
	return decimal.Zero
}

var emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)

// ExtractEmails returns every e-mail address in s, in order.
func ExtractEmails(s string) []string {
	return emailPattern.FindAllString(s, -1)
}
