/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Messages coming from clients, before validation
type ClientMessage struct {
	Type    string  `json:"type"`               // "add", "vote", "get_story"
	Text    *string `json:"text,omitempty"`     // add
	TwistID string  `json:"twist_id,omitempty"` // vote
	Vote    string  `json:"vote,omitempty"`     // vote: "yes" or "no"
}

// inboundEvent is implemented only by the event types below.
type inboundEvent interface {
	inbound()
}

type addEvent struct {
	text string
}

type voteEvent struct {
	twistID string
	yes     bool
}

type getStoryEvent struct{}

func (addEvent) inbound()      {}
func (voteEvent) inbound()     {}
func (getStoryEvent) inbound() {}

// parseClientMessage validates a raw frame into one of the inbound event
// types. Errors wrap errMalformedEvent or errUnknownEvent.
func parseClientMessage(data []byte) (inboundEvent, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	switch msg.Type {
	case "add":
		if msg.Text == nil {
			return nil, fmt.Errorf("%w: add without text", errMalformedEvent)
		}
		text := strings.TrimSpace(*msg.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: add with empty text", errMalformedEvent)
		}
		return addEvent{text: text}, nil

	case "vote":
		if msg.TwistID == "" {
			return nil, fmt.Errorf("%w: vote without twist_id", errMalformedEvent)
		}
		switch msg.Vote {
		case "yes":
			return voteEvent{twistID: msg.TwistID, yes: true}, nil
		case "no":
			return voteEvent{twistID: msg.TwistID}, nil
		default:
			return nil, fmt.Errorf("%w: vote must be yes or no, got %q", errMalformedEvent, msg.Vote)
		}

	case "get_story":
		return getStoryEvent{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", errMalformedEvent)
	}

	return nil, fmt.Errorf("%w: %q", errUnknownEvent, msg.Type)
}

// Messages sent to clients

// StoryUpdateMessage carries the full story after any change.
type StoryUpdateMessage struct {
	Type          string `json:"type"` // "story_update"
	Story         string `json:"story"`
	AddedBy       string `json:"added_by,omitempty"`
	TwistAccepted bool   `json:"twist_accepted,omitempty"`
}

// StoryMessage answers get_story, and greets new sessions.
type StoryMessage struct {
	Type  string `json:"type"` // "story"
	Story string `json:"story"`
}

type TwistSuggestionMessage struct {
	Type    string `json:"type"` // "twist_suggestion"
	Twist   string `json:"twist"`
	TwistID string `json:"twist_id"`
}

type TwistRejectedMessage struct {
	Type string `json:"type"` // "twist_rejected"
}

// TwistAcceptedMessage is only sent when twists merge without a vote.
type TwistAcceptedMessage struct {
	Type  string `json:"type"` // "twist_accepted"
	Twist string `json:"twist"`
}

type UserLeftMessage struct {
	Type     string `json:"type"` // "user_left"
	Username string `json:"username"`
}
