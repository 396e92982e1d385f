package models

import (
	"fmt"
	"strings"
)

type ActionType uint8

const (
	ActionTypeKick ActionType = iota
	ActionTypeBan
)

func (a ActionType) String() string {
	switch a {
	case ActionTypeKick:
		return "Kick"
	case ActionTypeBan:
		return "Ban"
	default:
		return "Unknown"
	}
}

// ParseActionType accepts the config spelling of an action ("kick", "ban").
func ParseActionType(s string) (ActionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kick":
		return ActionTypeKick, nil
	case "ban":
		return ActionTypeBan, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Action is one punitive call the raid detector issued against a member.
type Action struct {
	Type       ActionType
	Member     Member
	Reason     string
	DeleteDays int
	Err        error
}

func NewKickAction(member Member, reason string) *Action {
	return &Action{Type: ActionTypeKick, Member: member, Reason: reason}
}

func NewBanAction(member Member, deleteDays int, reason string) *Action {
	return &Action{Type: ActionTypeBan, Member: member, Reason: reason, DeleteDays: deleteDays}
}

func (a *Action) Succeeded() bool {
	return a.Err == nil
}
